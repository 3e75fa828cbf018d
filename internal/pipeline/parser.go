package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

var (
	// ErrEmptyText is returned when there is no statement text to extract from.
	ErrEmptyText = errors.New("statement text is empty")

	// ErrUnparseableResponse is returned when the model output holds no JSON array.
	ErrUnparseableResponse = errors.New("could not parse JSON from the model response")
)

// GeminiGenerator is the Generator backed by the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client. An empty model selects DefaultModelName.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiGenerator: GEMINI_API_KEY is not configured")
	}
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}

// Extractor asks the model for the transactions contained in statement text.
type Extractor struct {
	gen         Generator
	log         zerolog.Logger
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewExtractor creates an extractor with the default retry policy.
func NewExtractor(gen Generator, log zerolog.Logger) *Extractor {
	return &Extractor{
		gen:         gen,
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       sleepContext,
	}
}

// Extract returns the raw records found in text. Only overload errors from
// the model are retried; parse failures surface immediately.
func (e *Extractor) Extract(ctx context.Context, text string) ([]domain.RawTransaction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	prompt := buildExtractionPrompt(text)

	var (
		raw string
		err error
	)
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		e.log.Debug().Int("attempt", attempt).Int("max_attempts", e.maxAttempts).Msg("Calling model")
		raw, err = e.gen.Generate(ctx, prompt)
		if err == nil {
			break
		}
		if !isOverloaded(err) || attempt == e.maxAttempts {
			return nil, fmt.Errorf("Extract: attempt %d: %w", attempt, err)
		}
		e.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", e.retryDelay).Msg("Model overloaded, retrying")
		if err := e.sleep(ctx, e.retryDelay); err != nil {
			return nil, fmt.Errorf("Extract: %w", err)
		}
	}

	records, err := parseModelJSON(raw)
	if err != nil {
		e.log.Error().Err(err).Str("raw_response", truncate(raw, 500)).Msg("Failed to parse model response")
		return nil, fmt.Errorf("Extract: %w", err)
	}
	return records, nil
}

// isOverloaded reports whether err is the transient overload signature:
// an HTTP 503 API error, or a message mentioning both 503 and "overloaded".
func isOverloaded(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusServiceUnavailable {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "503") && strings.Contains(msg, "overloaded")
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// cleanModelJSON strips Markdown code-fence artifacts from the response.
// It removes literal substrings, so a description containing three
// backticks would be altered too.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseModelJSON decodes the cleaned response, falling back to the widest
// bracketed substring when the whole response is not valid JSON.
func parseModelJSON(raw string) ([]domain.RawTransaction, error) {
	clean := cleanModelJSON(raw)

	var records []domain.RawTransaction
	if err := json.Unmarshal([]byte(clean), &records); err == nil {
		return nonNil(records), nil
	}

	match := jsonArrayPattern.FindString(clean)
	if match == "" {
		return nil, ErrUnparseableResponse
	}
	records = nil
	if err := json.Unmarshal([]byte(match), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	return nonNil(records), nil
}

func nonNil(records []domain.RawTransaction) []domain.RawTransaction {
	if records == nil {
		return []domain.RawTransaction{}
	}
	return records
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
