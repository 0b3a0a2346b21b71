package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/compozy/pieceagent/engine/core"
	llmadapter "github.com/compozy/pieceagent/engine/llm/adapter"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/engine/reconcile"
	resolvermetrics "github.com/compozy/pieceagent/engine/resolver/metrics"
	"github.com/compozy/pieceagent/engine/schema"
	"github.com/compozy/pieceagent/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrentProperties = 8

// Request describes one resolution. Input holds predefined values, auth
// included; it is never mutated.
type Request struct {
	Levels      piece.Levels
	Instruction string
	Action      *piece.Action
	Operation   piece.OperationContext
	Input       core.Input
}

// Resolver fills action properties level by level with structured model
// output.
type Resolver struct {
	generator     llmadapter.ObjectGenerator
	synth         *schema.Synthesizer
	prompts       *promptRenderer
	metrics       resolvermetrics.Recorder
	maxConcurrent int
}

type Option func(*Resolver)

func WithMetrics(rec resolvermetrics.Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.metrics = rec
		}
	}
}

// WithMaxConcurrentProperties bounds schema preparation within one level.
func WithMaxConcurrentProperties(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxConcurrent = n
		}
	}
}

func New(generator llmadapter.ObjectGenerator, synth *schema.Synthesizer, opts ...Option) *Resolver {
	if synth == nil {
		synth = schema.NewSynthesizer(nil)
	}
	r := &Resolver{
		generator:     generator,
		synth:         synth,
		prompts:       newPromptRenderer(),
		metrics:       resolvermetrics.Nop(),
		maxConcurrent: defaultMaxConcurrentProperties,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type prepared struct {
	name     string
	prop     piece.Property
	schema   schema.Schema
	detail   PropertyDetail
	required bool
}

// Resolve returns a deep copy of req.Input grown with every value the model
// produced. Levels run strictly in order; a property already present is
// never asked for again.
func (r *Resolver) Resolve(ctx context.Context, req *Request) (core.Input, error) {
	if req == nil || req.Action == nil {
		return nil, errors.New("resolve request requires an action")
	}
	acc, err := req.Input.Clone()
	if err != nil {
		return nil, fmt.Errorf("copy predefined input: %w", err)
	}
	log := logger.FromContext(ctx).With("action", req.Action.Name)
	for depth, names := range req.Levels {
		pending := r.pending(req.Action, names, acc)
		if len(pending) == 0 {
			log.Debug("Skipping level without fillable properties", "level", depth)
			continue
		}
		level, err := r.prepare(ctx, req, pending, acc)
		if err != nil {
			return nil, err
		}
		if len(level) == 0 {
			log.Debug("Skipping level without fillable properties", "level", depth)
			continue
		}
		extracted, err := r.extract(ctx, req, depth, level, acc)
		if err != nil {
			return nil, err
		}
		r.reconcileLevel(ctx, level, extracted)
		if err := merge(acc, level, extracted); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (r *Resolver) pending(action *piece.Action, names []string, acc core.Input) []piece.NamedProperty {
	out := make([]piece.NamedProperty, 0, len(names))
	for _, name := range names {
		if acc.Has(name) {
			continue
		}
		prop, ok := action.Props.Get(name)
		if !ok || prop.Type.IsAuth() {
			continue
		}
		out = append(out, piece.NamedProperty{Name: name, Property: prop})
	}
	return out
}

// prepare synthesizes schema and detail for every pending property of a
// level concurrently. Results keep declaration order.
func (r *Resolver) prepare(
	ctx context.Context,
	req *Request,
	pending []piece.NamedProperty,
	acc core.Input,
) ([]prepared, error) {
	sctx := &schema.Context{Operation: req.Operation, Input: acc}
	results := make([]*prepared, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)
	for i, np := range pending {
		g.Go(func() error {
			synth, err := r.synth.Synthesize(gctx, np.Name, np.Property, sctx)
			if err != nil {
				return fmt.Errorf("synthesize schema for %s: %w", np.Name, err)
			}
			results[i] = &prepared{
				name:     np.Name,
				prop:     np.Property,
				schema:   synth.Schema,
				required: np.Property.Required,
				detail: PropertyDetail{
					Name:         np.Name,
					Type:         np.Property.Type,
					Description:  np.Property.Description,
					Required:     np.Property.Required,
					DefaultValue: np.Property.DefaultValue,
					Options:      synth.Options,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]prepared, 0, len(results))
	for _, p := range results {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *Resolver) extract(
	ctx context.Context,
	req *Request,
	depth int,
	level []prepared,
	acc core.Input,
) (map[string]any, error) {
	log := logger.FromContext(ctx)
	fields := make([]schema.Field, 0, len(level))
	details := make([]PropertyDetail, 0, len(level))
	for _, p := range level {
		fields = append(fields, schema.Field{Name: p.name, Schema: p.schema, Required: p.required})
		details = append(details, p.detail)
	}
	system, err := r.prompts.System(req.Action)
	if err != nil {
		return nil, err
	}
	prompt, err := r.prompts.Level(req.Instruction, acc, details)
	if err != nil {
		return nil, err
	}
	log.Debug("Requesting level values", "level", depth, "properties", len(level))
	start := time.Now()
	obj, err := r.generator.GenerateObject(ctx, &llmadapter.ObjectRequest{
		SystemPrompt: system,
		Prompt:       prompt,
		Schema:       schema.ObjectOf(fields, true),
	})
	if err == nil {
		r.metrics.RecordModelCall(ctx, time.Since(start), resolvermetrics.OutcomeSuccess)
		return obj, nil
	}
	r.metrics.RecordModelCall(ctx, time.Since(start), resolvermetrics.OutcomeError)
	recovered, ok := r.recoverFenced(ctx, err)
	if !ok {
		return nil, err
	}
	log.Info("Recovered level values from fenced output", "level", depth)
	return recovered, nil
}

// recoverFenced salvages an unparseable reply that is exactly one ```json fenced
// block. Any other failure is left to propagate.
func (r *Resolver) recoverFenced(ctx context.Context, err error) (map[string]any, bool) {
	genErr, ok := llmadapter.AsGenerationError(err)
	if !ok || genErr.Reason != llmadapter.ReasonUnparseable {
		return nil, false
	}
	body, ok := fencedJSON(genErr.Raw)
	if !ok {
		return nil, false
	}
	var obj map[string]any
	if jsonErr := json.Unmarshal([]byte(body), &obj); jsonErr != nil || obj == nil {
		r.metrics.RecordRecovery(ctx, resolvermetrics.OutcomeError)
		return nil, false
	}
	r.metrics.RecordRecovery(ctx, resolvermetrics.OutcomeRecovered)
	return obj, true
}

func fencedJSON(raw string) (string, bool) {
	const open, closing = "```json", "```"
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, open) || !strings.HasSuffix(text, closing) || len(text) < len(open)+len(closing) {
		return "", false
	}
	body := text[len(open) : len(text)-len(closing)]
	if strings.Contains(body, closing) {
		return "", false
	}
	return strings.TrimSpace(body), true
}

func (r *Resolver) reconcileLevel(ctx context.Context, level []prepared, extracted map[string]any) {
	log := logger.FromContext(ctx)
	for _, p := range level {
		if !p.prop.Type.IsChoice() || len(p.detail.Options) == 0 {
			continue
		}
		value, ok := extracted[p.name]
		if !ok || value == nil {
			continue
		}
		var kinds []reconcile.MatchKind
		if p.prop.Type.IsMultiChoice() {
			var values []any
			values, kinds = reconcile.ReconcileEach(value, p.detail.Options)
			extracted[p.name] = values
		} else {
			res := reconcile.Reconcile(value, p.detail.Options)
			extracted[p.name] = res.Value
			kinds = []reconcile.MatchKind{res.Match}
		}
		for _, kind := range kinds {
			r.metrics.RecordReconcile(ctx, string(kind))
			if kind == reconcile.MatchFallback {
				log.Warn("No option matched extracted value, using first option",
					"property", p.name, "value", value)
			}
		}
	}
}

// merge adds the level's values to acc. Only properties of the level that
// are still absent are taken, and nulls mean absent.
func merge(acc core.Input, level []prepared, extracted map[string]any) error {
	fresh := make(map[string]any, len(level))
	for _, p := range level {
		value, ok := extracted[p.name]
		if !ok || value == nil || acc.Has(p.name) {
			continue
		}
		fresh[p.name] = value
	}
	dst := acc.AsMap()
	if err := mergo.Merge(&dst, fresh); err != nil {
		return fmt.Errorf("merge resolved values: %w", err)
	}
	return nil
}
