package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/engine/resolver"
	resolvermetrics "github.com/compozy/pieceagent/engine/resolver/metrics"
	"github.com/compozy/pieceagent/engine/schema"
	"github.com/compozy/pieceagent/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "pieceagent.executor"

// Executor resolves an action's input from an instruction and runs it.
type Executor struct {
	actions  piece.ActionLookup
	resolver *resolver.Resolver
	runtimes map[StepKind]Runtime
	metrics  resolvermetrics.Recorder
	tracer   trace.Tracer
	newID    func() string
}

type Option func(*Executor)

// WithRuntime registers the runtime for a step kind.
func WithRuntime(kind StepKind, rt Runtime) Option {
	return func(e *Executor) {
		e.runtimes[kind] = rt
	}
}

func WithMetrics(rec resolvermetrics.Recorder) Option {
	return func(e *Executor) {
		if rec != nil {
			e.metrics = rec
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func New(actions piece.ActionLookup, res *resolver.Resolver, opts ...Option) *Executor {
	e := &Executor{
		actions:  actions,
		resolver: res,
		runtimes: map[StepKind]Runtime{},
		metrics:  resolvermetrics.Nop(),
		tracer:   otel.Tracer(tracerName),
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute never returns an error: every failure, panics included, becomes a
// failed Result with a message.
func (e *Executor) Execute(ctx context.Context, op *Operation) (result *Result) {
	start := time.Now()
	runID := e.newID()
	ctx, span := e.tracer.Start(ctx, tracerName+".execute", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	log := logger.FromContext(ctx).With("run_id", runID)
	var resolved core.Input
	defer func() {
		if r := recover(); r != nil {
			result = failed(runID, fmt.Errorf("panic during execution: %v", r))
		}
		if result.ResolvedInput == nil {
			result.ResolvedInput = safeInput(resolved, op)
		}
		if result.Status == StatusFailed {
			span.SetStatus(codes.Error, result.ErrorMessage)
		}
		span.SetAttributes(attribute.String("status", string(result.Status)))
		span.End()
		e.metrics.RecordExecution(ctx, time.Since(start), string(result.Status))
		log.Info("Action execution finished", "status", result.Status, "duration", time.Since(start))
	}()
	if op == nil {
		return failed(runID, errors.New("operation is required"))
	}
	span.SetAttributes(attribute.String("action", op.Action.String()))
	if err := schema.NewStructValidator(op).Validate(ctx); err != nil {
		return failed(runID, fmt.Errorf("invalid operation: %w", err))
	}
	action, err := e.actions.GetActionOrThrow(ctx, op.Action)
	if err != nil {
		return failed(runID, err)
	}
	levels, err := piece.SortLevels(action.Props)
	if err != nil {
		return failed(runID, err)
	}
	resolved, err = e.resolver.Resolve(ctx, &resolver.Request{
		Levels:      levels,
		Instruction: op.Instruction,
		Action:      action,
		Operation:   operationContext(op),
		Input:       op.Input,
	})
	if err != nil {
		return failed(runID, err)
	}
	step := &Step{
		Name: op.Action.ActionName,
		Kind: StepKindPiece,
		Settings: StepSettings{
			PieceName:    op.Action.PieceName,
			PieceVersion: op.Action.PieceVersion,
			ActionName:   op.Action.ActionName,
			Input:        resolved,
		},
	}
	return e.run(ctx, runID, step, op, resolved)
}

func (e *Executor) run(ctx context.Context, runID string, step *Step, op *Operation, resolved core.Input) *Result {
	rt, ok := e.runtimes[step.Kind]
	if !ok {
		return failed(runID, core.Errorf(core.ErrCodeRuntimeNotFound,
			map[string]any{"kind": string(step.Kind)}, "no runtime registered for step kind %s", step.Kind))
	}
	out, err := rt.Run(ctx, step, &ExecutionContext{
		RunID:         runID,
		ProjectID:     op.ProjectID,
		FlowVersionID: op.FlowVersionID,
	})
	if err != nil {
		return failed(runID, err)
	}
	var stepOut StepOutput
	if out != nil {
		stepOut = out.Steps[step.Name]
	}
	res := &Result{
		RunID:         runID,
		Output:        stepOut.Output,
		ResolvedInput: core.RedactAuth(resolved),
		ErrorMessage:  stepOut.ErrorMessage,
		Status:        StatusSuccess,
	}
	if stepOut.Status == StepStatusFailed {
		res.Status = StatusFailed
	}
	return res
}

func operationContext(op *Operation) piece.OperationContext {
	return piece.OperationContext{
		ActionRef:     op.Action,
		ProjectID:     op.ProjectID,
		FlowVersionID: op.FlowVersionID,
		StepName:      op.StepName,
	}
}

func failed(runID string, err error) *Result {
	return &Result{
		RunID:        runID,
		Status:       StatusFailed,
		ErrorMessage: core.RedactError(err),
	}
}

// safeInput picks the most complete input known so far, auth redacted.
func safeInput(resolved core.Input, op *Operation) core.Input {
	if resolved != nil {
		return core.RedactAuth(resolved)
	}
	if op != nil && op.Input != nil {
		return core.RedactAuth(op.Input)
	}
	return nil
}
