package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/carteira/internal/history"
	"github.com/dvloznov/carteira/internal/pipeline"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// Client wraps one bucket. It archives statement uploads and stores
// historical price documents. It assumes Application Default Credentials are
// configured (gcloud auth application-default login).
type Client struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewClient opens a storage client bound to bucket.
func NewClient(ctx context.Context, bucket string) (*Client, error) {
	if bucket == "" {
		return nil, errors.New("NewClient: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewClient: create storage client: %w", err)
	}
	return &Client{client: client, bucket: bucket, now: time.Now}, nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Archive uploads a statement and returns its gs:// URI.
func (c *Client) Archive(ctx context.Context, userID int64, filename string, content []byte) (string, error) {
	objectName := statementObjectName(userID, filename, uuid.NewString(), c.now())
	contentType := http.DetectContentType(content)
	if err := c.write(ctx, objectName, contentType, content); err != nil {
		return "", fmt.Errorf("Archive: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", c.bucket, objectName), nil
}

// GetDocument reads historical-data/{symbol}_{range}.json.
func (c *Client) GetDocument(ctx context.Context, symbol, rangeKey string) (*history.Document, error) {
	objectName := historyObjectName(symbol, rangeKey)
	data, err := c.read(ctx, c.bucket, objectName)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}

	var doc history.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("GetDocument: decoding %s: %w", objectName, err)
	}
	return &doc, nil
}

// PutDocument overwrites the document object.
func (c *Client) PutDocument(ctx context.Context, doc *history.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("PutDocument: encoding %s: %w", doc.ID(), err)
	}
	if err := c.write(ctx, historyObjectName(doc.Symbol, doc.Range), "application/json", data); err != nil {
		return fmt.Errorf("PutDocument: %w", err)
	}
	return nil
}

// ListSymbols lists the history prefix and returns the sorted unique symbols.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: historyPrefix})

	seen := make(map[string]struct{})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSymbols: iterating objects: %w", err)
		}
		if symbol, ok := symbolFromObjectName(attrs.Name); ok {
			seen[symbol] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI. The URI may
// point at any bucket the credentials can read.
func (c *Client) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}
	data, err := c.read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}
	return data, nil
}

func (c *Client) read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object reader %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func (c *Client) write(ctx context.Context, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer %s: %w", object, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", object, err)
	}
	return nil
}

var (
	_ history.Store     = (*Client)(nil)
	_ pipeline.Archiver = (*Client)(nil)
)
