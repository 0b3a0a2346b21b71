package piece

import (
	"context"

	"github.com/compozy/pieceagent/engine/core"
)

// OperationContext locates the action a collaborator call is made for.
type OperationContext struct {
	ActionRef
	ProjectID     string `json:"projectId,omitempty"`
	FlowVersionID string `json:"flowVersionId,omitempty"`
	StepName      string `json:"stepName,omitempty"`
}

// OptionsResult is the live option list of a dropdown property.
type OptionsResult struct {
	Disabled    bool     `json:"disabled"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Option `json:"options"`
}

// DynamicResult carries the sub-property declarations of a dynamic property,
// still in their raw decoded form.
type DynamicResult struct {
	Disabled   bool           `json:"disabled"`
	Properties map[string]any `json:"options"`
}

// OptionLoader discovers values and shapes that are only known at runtime.
type OptionLoader interface {
	LoadOptions(ctx context.Context, propertyName string, op OperationContext, input core.Input) (*OptionsResult, error)
	LoadDynamic(ctx context.Context, propertyName string, op OperationContext, input core.Input) (*DynamicResult, error)
}

// ActionLookup resolves action declarations.
type ActionLookup interface {
	GetActionOrThrow(ctx context.Context, ref ActionRef) (*Action, error)
}
