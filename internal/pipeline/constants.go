package pipeline

import "time"

// Defaults for statement extraction. The model can be overridden through
// configuration.
const (
	// DefaultModelName is the Gemini model used for extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultMaxAttempts bounds model calls when the service reports overload.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed pause between overload retries.
	DefaultRetryDelay = 2 * time.Second

	// MaxCategoryLabelLength caps labels before they are stored as category names.
	MaxCategoryLabelLength = 100
)
