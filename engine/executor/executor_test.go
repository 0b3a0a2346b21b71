package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/compozy/pieceagent/engine/core"
	llmadapter "github.com/compozy/pieceagent/engine/llm/adapter"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/engine/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(ctx context.Context, ref piece.ActionRef) (*piece.Action, error)

func (f lookupFunc) GetActionOrThrow(ctx context.Context, ref piece.ActionRef) (*piece.Action, error) {
	return f(ctx, ref)
}

type generatorFunc func(ctx context.Context, req *llmadapter.ObjectRequest) (map[string]any, error)

func (f generatorFunc) GenerateObject(ctx context.Context, req *llmadapter.ObjectRequest) (map[string]any, error) {
	return f(ctx, req)
}

var transferRef = piece.ActionRef{PieceName: "bank", PieceVersion: "1.0.0", ActionName: "send_money"}

func transferAction() *piece.Action {
	return &piece.Action{
		Name: "send_money",
		Props: piece.Properties{
			{Name: "currency", Property: piece.Property{
				Type:     piece.Dropdown,
				Required: true,
				Options:  []piece.Option{{Label: "USD", Value: "USD"}, {Label: "EUR", Value: "EUR"}},
			}},
			{Name: "amount", Property: piece.Property{Type: piece.Number, Required: true}},
		},
	}
}

func staticLookup(action *piece.Action) piece.ActionLookup {
	return lookupFunc(func(_ context.Context, ref piece.ActionRef) (*piece.Action, error) {
		if ref != transferRef {
			return nil, core.Errorf(core.ErrCodeActionNotFound, nil, "action %s not found", ref)
		}
		return action, nil
	})
}

func inferUSD() llmadapter.ObjectGenerator {
	return generatorFunc(func(context.Context, *llmadapter.ObjectRequest) (map[string]any, error) {
		return map[string]any{"amount": float64(50), "currency": "USD"}, nil
	})
}

func newOperation() *Operation {
	return &Operation{
		Instruction: "send $50 to Alice's account",
		Action:      transferRef,
		ProjectID:   "proj-1",
		Input:       core.Input{"auth": map[string]any{"token": "sk-live-123"}},
	}
}

func TestExecutor_Execute(t *testing.T) {
	t.Run("Should resolve, run and redact auth end to end", func(t *testing.T) {
		var seen *Step
		var seenCtx *ExecutionContext
		rt := RuntimeFunc(func(_ context.Context, step *Step, ec *ExecutionContext) (*RunOutput, error) {
			seen = step
			seenCtx = ec
			return &RunOutput{Steps: map[string]StepOutput{
				"send_money": {Output: map[string]any{"id": "tx-1"}, Status: StepStatusSucceeded},
			}}, nil
		})
		exec := New(staticLookup(transferAction()), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece, rt))
		res := exec.Execute(t.Context(), newOperation())

		require.Equal(t, StatusSuccess, res.Status, res.ErrorMessage)
		assert.Equal(t, map[string]any{"id": "tx-1"}, res.Output)
		assert.Equal(t, core.Input{
			"amount":   float64(50),
			"currency": "USD",
			"auth":     core.RedactedMarker,
		}, res.ResolvedInput)
		assert.NotEmpty(t, res.RunID)

		require.NotNil(t, seen)
		assert.Equal(t, StepKindPiece, seen.Kind)
		assert.Equal(t, "send_money", seen.Name)
		assert.Equal(t, "bank", seen.Settings.PieceName)
		assert.Equal(t, map[string]any{"token": "sk-live-123"}, seen.Settings.Input["auth"])
		assert.Equal(t, res.RunID, seenCtx.RunID)
		assert.Equal(t, "proj-1", seenCtx.ProjectID)
	})

	t.Run("Should map a failed step to a failed result", func(t *testing.T) {
		rt := RuntimeFunc(func(_ context.Context, step *Step, _ *ExecutionContext) (*RunOutput, error) {
			return &RunOutput{Steps: map[string]StepOutput{
				step.Name: {ErrorMessage: "insufficient funds", Status: StepStatusFailed},
			}}, nil
		})
		exec := New(staticLookup(transferAction()), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece, rt))
		res := exec.Execute(t.Context(), newOperation())
		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, "insufficient funds", res.ErrorMessage)
		assert.Equal(t, core.RedactedMarker, res.ResolvedInput["auth"])
	})

	t.Run("Should turn every failure into data", func(t *testing.T) {
		okRuntime := RuntimeFunc(func(context.Context, *Step, *ExecutionContext) (*RunOutput, error) {
			return &RunOutput{}, nil
		})
		cyclic := &piece.Action{Name: "send_money", Props: piece.Properties{
			{Name: "a", Property: piece.Property{Type: piece.Dynamic, RefreshOn: []string{"b"}}},
			{Name: "b", Property: piece.Property{Type: piece.Dynamic, RefreshOn: []string{"a"}}},
		}}
		cases := []struct {
			name string
			exec *Executor
			op   *Operation
			msg  string
		}{
			{
				name: "unknown action",
				exec: New(staticLookup(transferAction()), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece, okRuntime)),
				op: func() *Operation {
					op := newOperation()
					op.Action.ActionName = "missing"
					return op
				}(),
				msg: "not found",
			},
			{
				name: "cyclic declaration",
				exec: New(staticLookup(cyclic), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece, okRuntime)),
				op:   newOperation(),
				msg:  "cycl",
			},
			{
				name: "model failure",
				exec: New(staticLookup(transferAction()), resolver.New(generatorFunc(
					func(context.Context, *llmadapter.ObjectRequest) (map[string]any, error) {
						return nil, errors.New("provider down")
					}), nil), WithRuntime(StepKindPiece, okRuntime)),
				op:  newOperation(),
				msg: "provider down",
			},
			{
				name: "missing runtime",
				exec: New(staticLookup(transferAction()), resolver.New(inferUSD(), nil)),
				op:   newOperation(),
				msg:  "no runtime",
			},
			{
				name: "runtime error",
				exec: New(staticLookup(transferAction()), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece,
					RuntimeFunc(func(context.Context, *Step, *ExecutionContext) (*RunOutput, error) {
						return nil, errors.New("runtime crashed")
					}))),
				op:  newOperation(),
				msg: "runtime crashed",
			},
			{
				name: "runtime panic",
				exec: New(staticLookup(transferAction()), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece,
					RuntimeFunc(func(context.Context, *Step, *ExecutionContext) (*RunOutput, error) {
						panic("boom")
					}))),
				op:  newOperation(),
				msg: "panic",
			},
			{
				name: "invalid operation",
				exec: New(staticLookup(transferAction()), resolver.New(inferUSD(), nil), WithRuntime(StepKindPiece, okRuntime)),
				op:   &Operation{Action: transferRef, Input: core.Input{"auth": "secret"}},
				msg:  "invalid operation",
			},
		}
		for _, tc := range cases {
			t.Run("Should fail on "+tc.name, func(t *testing.T) {
				res := tc.exec.Execute(t.Context(), tc.op)
				require.NotNil(t, res)
				assert.Equal(t, StatusFailed, res.Status)
				assert.Contains(t, res.ErrorMessage, tc.msg)
				assert.Equal(t, core.RedactedMarker, res.ResolvedInput["auth"])
			})
		}
	})

	t.Run("Should fail on a nil operation", func(t *testing.T) {
		res := New(staticLookup(transferAction()), resolver.New(inferUSD(), nil)).Execute(t.Context(), nil)
		assert.Equal(t, StatusFailed, res.Status)
		assert.Nil(t, res.ResolvedInput)
	})
}
