package executor

import (
	"context"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/piece"
)

// Status is the outcome reported to callers.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StepKind selects the runtime that executes a step.
type StepKind string

const StepKindPiece StepKind = "PIECE"

// StepStatus is reported by the runtime for each executed step.
type StepStatus string

const (
	StepStatusSucceeded StepStatus = "SUCCEEDED"
	StepStatusFailed    StepStatus = "FAILED"
)

type StepSettings struct {
	PieceName    string     `json:"pieceName"`
	PieceVersion string     `json:"pieceVersion"`
	ActionName   string     `json:"actionName"`
	Input        core.Input `json:"input"`
}

// Step is the executable description handed to a runtime.
type Step struct {
	Name     string       `json:"name"`
	Kind     StepKind     `json:"type"`
	Settings StepSettings `json:"settings"`
}

type StepOutput struct {
	Output       any        `json:"output,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Status       StepStatus `json:"status"`
}

// RunOutput maps step names to what the runtime observed.
type RunOutput struct {
	Steps map[string]StepOutput `json:"steps"`
}

type ExecutionContext struct {
	RunID         string `json:"runId"`
	ProjectID     string `json:"projectId,omitempty"`
	FlowVersionID string `json:"flowVersionId,omitempty"`
}

// Runtime performs the side effects of a step.
type Runtime interface {
	Run(ctx context.Context, step *Step, ec *ExecutionContext) (*RunOutput, error)
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, step *Step, ec *ExecutionContext) (*RunOutput, error)

func (f RuntimeFunc) Run(ctx context.Context, step *Step, ec *ExecutionContext) (*RunOutput, error) {
	return f(ctx, step, ec)
}

// Operation asks for one action to be resolved from an instruction and run.
// Input carries predefined values, auth included.
type Operation struct {
	Instruction   string          `json:"instruction" validate:"required"`
	Action        piece.ActionRef `json:"action"`
	ProjectID     string          `json:"projectId,omitempty"`
	FlowVersionID string          `json:"flowVersionId,omitempty"`
	StepName      string          `json:"stepName,omitempty"`
	Input         core.Input      `json:"input,omitempty"`
}

// Result never carries auth in cleartext.
type Result struct {
	RunID         string     `json:"runId"`
	Status        Status     `json:"status"`
	Output        any        `json:"output,omitempty"`
	ResolvedInput core.Input `json:"resolvedInput,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}
