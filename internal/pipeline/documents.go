package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedDocument is returned for uploads that are neither PDF nor plain text.
var ErrUnsupportedDocument = errors.New("unsupported document type: upload a PDF or plain-text statement")

// detectContentType sniffs the upload, trusting the .pdf/.txt extension only
// when the sniffer cannot decide.
func detectContentType(filename string, content []byte) string {
	ct := http.DetectContentType(content)
	if ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt", ".csv":
		return "text/plain; charset=utf-8"
	}
	return ct
}

// extractText returns the statement text of a PDF or plain-text upload.
func extractText(filename string, content []byte) (string, error) {
	ct := detectContentType(filename, content)
	switch {
	case strings.HasPrefix(ct, "application/pdf"):
		return extractPDFText(content)
	case strings.HasPrefix(ct, "text/plain"):
		return string(content), nil
	default:
		return "", fmt.Errorf("%w (detected %s)", ErrUnsupportedDocument, ct)
	}
}

// extractPDFText concatenates the plain text of every page.
func extractPDFText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extractPDFText: opening PDF: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extractPDFText: reading text: %w", err)
	}
	var b bytes.Buffer
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("extractPDFText: reading text: %w", err)
	}
	return b.String(), nil
}
