package llmadapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/compozy/pieceagent/engine/core"
)

// GenerationReason classifies why structured output was rejected.
type GenerationReason string

const (
	// ReasonUnparseable means the raw text was not a JSON object.
	ReasonUnparseable GenerationReason = "unparseable"
	// ReasonSchemaMismatch means the object did not satisfy the schema.
	ReasonSchemaMismatch GenerationReason = "schema_mismatch"
)

// GenerationError carries the raw model text so callers can attempt
// recovery.
type GenerationError struct {
	Reason GenerationReason
	Raw    string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model output rejected (%s)", e.Reason)
	}
	return fmt.Sprintf("model output rejected (%s): %v", e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// AsGenerationError extracts a GenerationError from an error chain.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

func newGenerationError(reason GenerationReason, raw string, err error) error {
	genErr := &GenerationError{Reason: reason, Raw: raw, Err: err}
	return core.NewError(genErr, core.ErrCodeModelGeneration, map[string]any{"reason": string(reason)})
}

var (
	transientPatterns = []string{
		"rate limit", "rate-limit", "ratelimit", "too many requests", "throttl",
		"service unavailable", "temporarily unavailable", "overloaded", "try again later",
		"timeout", "timed out", "connection reset", "connection refused",
		"429", "500", "502", "503", "504",
	}
	permanentPatterns = []string{
		"unauthorized", "invalid api key", "invalid_api_key", "invalid model",
		"model not found", "content policy", "insufficient_quota",
	}
)

// IsTransient reports whether a provider call failure is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if _, ok := AsGenerationError(err); ok {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range permanentPatterns {
		if strings.Contains(msg, pattern) {
			return false
		}
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
