package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// mockArchiver is a mock implementation of Archiver for testing.
type mockArchiver struct {
	ArchiveFunc func(ctx context.Context, userID int64, filename string, content []byte) (string, error)
}

func (m *mockArchiver) Archive(ctx context.Context, userID int64, filename string, content []byte) (string, error) {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, userID, filename, content)
	}
	return "gs://bucket/statements/1/" + filename, nil
}

// mockRecorder records audit calls.
type mockRecorder struct {
	subject    string
	failed     []error
	succeeded  []store.RunStats
	successErr error
}

func (m *mockRecorder) StartRun(ctx context.Context, kind, subject string, userID int64) (string, error) {
	m.subject = subject
	return "run-42", nil
}

func (m *mockRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	m.failed = append(m.failed, runErr)
}

func (m *mockRecorder) MarkRunSucceeded(ctx context.Context, runID string, stats store.RunStats) error {
	m.succeeded = append(m.succeeded, stats)
	return m.successErr
}

func newTestImporter(gen Generator, archiver Archiver, rec store.RunRecorder, s *memStore) *Importer {
	log := zerolog.New(io.Discard)
	e, _ := newTestExtractor(gen)
	return NewImporter(archiver, e, NewPersister(s, s, log), rec, log)
}

func TestImporter_Import(t *testing.T) {
	gen := &mockGenerator{responses: []string{pagueMenosJSON, pagueMenosJSON}}
	rec := &mockRecorder{}
	s := newMemStore()
	im := newTestImporter(gen, &mockArchiver{}, rec, s)

	req := ImportRequest{UserID: 1, Filename: "extrato.txt", Content: []byte("26/10 SUPERMERCADO PAGUE MENOS 345,60 D\n")}

	result, err := im.Import(context.Background(), req)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.RunID != "run-42" || result.ArchiveURI != "gs://bucket/statements/1/extrato.txt" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Extracted != 1 || len(result.Created) != 1 {
		t.Errorf("expected 1 extracted and created, got %d and %d", result.Extracted, len(result.Created))
	}
	if rec.subject != result.ArchiveURI {
		t.Errorf("run subject = %q, want archive URI", rec.subject)
	}

	result, err = im.Import(context.Background(), req)
	if err != nil {
		t.Fatalf("second Import failed: %v", err)
	}
	if len(result.Created) != 0 {
		t.Errorf("second import should create nothing, got %d", len(result.Created))
	}
	if len(rec.succeeded) != 2 || rec.succeeded[1].ItemsCreated != 0 || rec.succeeded[1].ItemsTotal != 1 {
		t.Errorf("unexpected success audits %+v", rec.succeeded)
	}
}

func TestImporter_ArchiveFailureIsNotFatal(t *testing.T) {
	gen := &mockGenerator{responses: []string{pagueMenosJSON}}
	archiver := &mockArchiver{ArchiveFunc: func(ctx context.Context, userID int64, filename string, content []byte) (string, error) {
		return "", errors.New("bucket not found")
	}}
	im := newTestImporter(gen, archiver, &mockRecorder{}, newMemStore())

	result, err := im.Import(context.Background(), ImportRequest{UserID: 1, Filename: "extrato.txt", Content: []byte("text")})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.ArchiveURI != "" {
		t.Errorf("expected no archive URI, got %q", result.ArchiveURI)
	}
}

func TestImporter_AuditSuccessFailureKeepsCreated(t *testing.T) {
	gen := &mockGenerator{responses: []string{pagueMenosJSON}}
	rec := &mockRecorder{successErr: errors.New("bigquery: quota exceeded")}
	im := newTestImporter(gen, &mockArchiver{}, rec, newMemStore())

	result, err := im.Import(context.Background(), ImportRequest{UserID: 1, Filename: "extrato.txt", Content: []byte("text")})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(result.Created) != 1 {
		t.Errorf("expected 1 created transaction, got %d", len(result.Created))
	}
	if len(rec.failed) != 0 {
		t.Errorf("run should not be marked failed, got %v", rec.failed)
	}
}

func TestImporter_UnsupportedDocument(t *testing.T) {
	gen := &mockGenerator{}
	rec := &mockRecorder{}
	im := newTestImporter(gen, nil, rec, newMemStore())

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err := im.Import(context.Background(), ImportRequest{UserID: 1, Filename: "photo.png", Content: png})
	if !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
	}
	if len(gen.prompts) != 0 || len(rec.failed) != 0 {
		t.Error("nothing should run before text extraction succeeds")
	}
}

func TestImporter_EmptyText(t *testing.T) {
	im := newTestImporter(&mockGenerator{}, nil, &mockRecorder{}, newMemStore())

	_, err := im.Import(context.Background(), ImportRequest{UserID: 1, Filename: "empty.txt", Content: []byte("   \n")})
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestImporter_ExtractionFailureMarksRun(t *testing.T) {
	gen := &mockGenerator{responses: []string{"sorry, no JSON"}}
	rec := &mockRecorder{}
	im := newTestImporter(gen, nil, rec, newMemStore())

	result, err := im.Import(context.Background(), ImportRequest{UserID: 1, Filename: "extrato.txt", Content: []byte("text")})
	if !errors.Is(err, ErrUnparseableResponse) {
		t.Fatalf("expected ErrUnparseableResponse, got %v", err)
	}
	if len(rec.failed) != 1 || len(rec.succeeded) != 0 {
		t.Errorf("expected one failed audit, got %+v", rec)
	}
	if result == nil || result.RunID != "run-42" || result.Created == nil {
		t.Errorf("expected partial result with run id, got %+v", result)
	}
	if rec.subject != "extrato.txt" {
		t.Errorf("without archive the subject should be the filename, got %q", rec.subject)
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"pdf magic", "x.bin", []byte("%PDF-1.7\n"), "application/pdf"},
		{"plain text", "x", []byte("hello"), "text/plain; charset=utf-8"},
		{"binary with pdf extension", "x.pdf", []byte{0x00, 0x01, 0x02}, "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectContentType(tt.filename, tt.content); got != tt.want {
				t.Errorf("detectContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}
