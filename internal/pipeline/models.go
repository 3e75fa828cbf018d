package pipeline

import "github.com/dvloznov/carteira/internal/domain"

// ImportRequest is one uploaded statement.
type ImportRequest struct {
	UserID   int64
	Filename string
	Content  []byte
}

// ImportResult reports what an import did.
type ImportResult struct {
	RunID      string                `json:"run_id,omitempty"`
	ArchiveURI string                `json:"archive_uri,omitempty"`
	Extracted  int                   `json:"extracted"`
	Created    []*domain.Transaction `json:"created"`
}
