package gcs

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/history"
)

const (
	// StatementsPrefix holds archived statement uploads, one folder per user.
	StatementsPrefix = "statements"

	historyPrefix = history.Collection + "/"
	historySuffix = ".json"
)

var unsafeObjectChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ParseURI splits "gs://bucket/path/to/object" into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// statementObjectName builds statements/{user}/{yyyy/mm/dd}/{id}-{filename}.
func statementObjectName(userID int64, filename, id string, now time.Time) string {
	base := unsafeObjectChars.ReplaceAllString(filepath.Base(filename), "_")
	if base == "" || base == "." || base == "_" {
		base = "statement"
	}
	return fmt.Sprintf("%s/%d/%s/%s-%s", StatementsPrefix, userID, now.UTC().Format("2006/01/02"), id, base)
}

// historyObjectName maps a document id to its object, e.g. historical-data/PETR4_max.json.
func historyObjectName(symbol, rangeKey string) string {
	return historyPrefix + history.DocID(symbol, rangeKey) + historySuffix
}

// symbolFromObjectName recovers the symbol from a history object name. The
// range never contains an underscore, so the last one separates the two.
func symbolFromObjectName(name string) (string, bool) {
	if !strings.HasPrefix(name, historyPrefix) || !strings.HasSuffix(name, historySuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, historyPrefix), historySuffix)
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 || strings.Contains(id, "/") {
		return "", false
	}
	return id[:i], true
}
