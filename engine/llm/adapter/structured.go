package llmadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/schema"
	"github.com/compozy/pieceagent/pkg/config"
	"github.com/compozy/pieceagent/pkg/logger"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	defaultRetryAttempts = 3
	maxRetryAttempts     = 100
	defaultBackoffBase   = 100 * time.Millisecond
	defaultBackoffMax    = 10 * time.Second
)

const structuredSystemPrompt = "You extract structured data. Reply with a single JSON object " +
	"that conforms to the JSON schema below and nothing else.\n\nSchema:\n"

// StructuredGenerator implements ObjectGenerator on top of a text client:
// it asks for JSON, parses the reply strictly and validates it.
type StructuredGenerator struct {
	client      LLMClient
	cfg         config.LLMConfig
	limiter     *rate.Limiter
	retries     int
	backoffBase time.Duration
	backoffMax  time.Duration
}

type Option func(*StructuredGenerator)

// WithBackoff overrides the retry backoff window.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(g *StructuredGenerator) {
		g.backoffBase = base
		g.backoffMax = maxDelay
	}
}

func NewStructuredGenerator(client LLMClient, cfg *config.LLMConfig, opts ...Option) *StructuredGenerator {
	g := &StructuredGenerator{
		client:      client,
		retries:     defaultRetryAttempts,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}
	if cfg != nil {
		g.cfg = *cfg
		g.retries = min(max(cfg.RetryAttempts, 0), maxRetryAttempts)
		if cfg.RetryBackoffBase > 0 {
			g.backoffBase = cfg.RetryBackoffBase
		}
		if cfg.RetryBackoffMax > 0 {
			g.backoffMax = cfg.RetryBackoffMax
		}
		if cfg.RequestsPerSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateObject retries transient provider failures. Unusable answers are
// returned immediately as a *GenerationError wrapped in a core.Error.
func (g *StructuredGenerator) GenerateObject(ctx context.Context, req *ObjectRequest) (map[string]any, error) {
	if req == nil {
		return nil, errors.New("object request must not be nil")
	}
	schemaText, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output schema: %w", err)
	}
	llmReq := &LLMRequest{
		SystemPrompt: strings.TrimSpace(req.SystemPrompt + "\n\n" + structuredSystemPrompt + string(schemaText)),
		Messages:     []Message{{Role: RoleUser, Content: req.Prompt}},
		Options: CallOptions{
			Temperature: g.cfg.Temperature,
			MaxTokens:   int32(min(g.cfg.MaxTokens, 1<<30)), // #nosec G115 -- bounded above
			UseJSONMode: true,
		},
	}
	resp, err := g.invoke(ctx, llmReq)
	if err != nil {
		return nil, err
	}
	return decodeObject(ctx, resp.Content, req.Schema)
}

func (g *StructuredGenerator) invoke(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	log := logger.FromContext(ctx)
	backoff := retry.NewExponential(g.backoffBase)
	backoff = retry.WithCappedDuration(g.backoffMax, backoff)
	backoff = retry.WithMaxRetries(uint64(g.retries), backoff) // #nosec G115 -- clamped to [0, 100]
	var response *LLMResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		callCtx := ctx
		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}
		var callErr error
		response, callErr = g.client.GenerateContent(callCtx, req)
		if callErr != nil {
			if IsTransient(callErr) {
				log.Debug("Model call failed, will retry", "error", core.RedactError(callErr))
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		return nil
	})
	if err != nil {
		return nil, core.NewError(err, core.ErrCodeModelGeneration, map[string]any{"provider": g.cfg.Provider})
	}
	return response, nil
}

// decodeObject parses raw strictly as one JSON object. Fenced or
// prose-wrapped replies are unparseable here; recovering them is the
// caller's decision.
func decodeObject(ctx context.Context, raw string, outputSchema map[string]any) (map[string]any, error) {
	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&obj); err != nil || obj == nil {
		if err == nil {
			err = errors.New("output is not a JSON object")
		}
		return nil, newGenerationError(ReasonUnparseable, raw, err)
	}
	if dec.More() {
		return nil, newGenerationError(ReasonUnparseable, raw, errors.New("trailing content after JSON object"))
	}
	if len(outputSchema) == 0 {
		return obj, nil
	}
	if err := schema.NewValueValidator(outputSchema, obj).Validate(ctx); err != nil {
		return nil, newGenerationError(ReasonSchemaMismatch, raw, err)
	}
	return obj, nil
}
