package transcript

import (
	"time"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/tool"
)

// ErrorsKey is the structured output entry that collects appended errors.
const ErrorsKey = "errors"

// failedStatus is the status recorded in the output of a failed tool call.
const failedStatus = "failed"

// Builder accumulates the transcript of one agent run. It is driven by a
// single agent loop and is not safe for concurrent use.
type Builder struct {
	prompt     string
	status     Status
	steps      []Block
	structured map[string]any
	matcher    *tool.Matcher
	now        func() time.Time
}

type Option func(*Builder)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func WithMatcher(m *tool.Matcher) Option {
	return func(b *Builder) {
		if m != nil {
			b.matcher = m
		}
	}
}

func NewBuilder(prompt string, opts ...Option) *Builder {
	b := &Builder{
		prompt:  prompt,
		status:  StatusInProgress,
		matcher: tool.DefaultMatcher(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) SetStatus(status Status) {
	b.status = status
}

func (b *Builder) SetStructuredOutput(output map[string]any) {
	b.structured = output
}

// AppendError adds details to the structured output's error list. Without
// structured output it does nothing.
func (b *Builder) AppendError(details any) {
	if b.structured == nil {
		return
	}
	switch existing := b.structured[ErrorsKey].(type) {
	case nil:
		b.structured[ErrorsKey] = []any{details}
	case []any:
		b.structured[ErrorsKey] = append(existing, details)
	default:
		b.structured[ErrorsKey] = []any{existing, details}
	}
}

// Fail marks the run failed. A non-empty message is narrated and appended
// as an error.
func (b *Builder) Fail(message string) {
	b.status = StatusFailed
	if message == "" {
		return
	}
	b.AddMarkdown(message)
	b.AppendError(map[string]any{"message": message})
}

// AddMarkdown extends the last block when it is markdown so streamed chunks
// stay one block.
func (b *Builder) AddMarkdown(text string) {
	if n := len(b.steps); n > 0 && b.steps[n-1].Type == BlockMarkdown {
		b.steps[n-1].Markdown += text
		return
	}
	b.steps = append(b.steps, Block{Type: BlockMarkdown, Markdown: text})
}

type StartParams struct {
	ToolName   string
	ToolCallID string
	Input      map[string]any
	Tools      []tool.Declaration
}

// StartToolCall appends an in-progress record for the tool that produced
// the call. An unmatched tool name is an ErrCodeToolNotFound error.
func (b *Builder) StartToolCall(params StartParams) error {
	decl, err := b.matcher.Resolve(params.ToolName, params.Tools)
	if err != nil {
		return err
	}
	call := &ToolCall{
		ToolCallID:  params.ToolCallID,
		ToolName:    params.ToolName,
		DisplayName: displayName(decl),
		Kind:        decl.Kind,
		Status:      ToolCallInProgress,
		StartTime:   b.now(),
		Input:       params.Input,
	}
	switch decl.Kind {
	case tool.KindPiece:
		info := &PieceInfo{ActionName: decl.Name}
		if decl.Piece != nil {
			info.PieceName = decl.Piece.PieceName
			info.PieceVersion = decl.Piece.PieceVersion
			info.ActionName = decl.Piece.ActionName
		}
		call.Piece = info
	case tool.KindFlow:
		info := &FlowInfo{}
		if decl.Flow != nil {
			info.FlowID = decl.Flow.FlowID
			info.ExternalFlowID = decl.Flow.ExternalFlowID
		}
		call.Flow = info
	case tool.KindMCP:
		called := tool.CalledName(params.ToolName, decl)
		info := &MCPInfo{ToolName: called}
		if decl.MCP != nil {
			info.ServerName = decl.MCP.ServerName
			info.ServerURL = decl.MCP.ServerURL
		}
		call.MCP = info
		call.DisplayName = called
	}
	b.steps = append(b.steps, Block{Type: BlockToolCall, ToolCall: call})
	return nil
}

func displayName(decl *tool.Declaration) string {
	if decl.DisplayName != "" {
		return decl.DisplayName
	}
	return decl.Name
}

// FinishToolCall completes the in-progress call with output.
func (b *Builder) FinishToolCall(toolCallID string, output any) error {
	return b.complete(toolCallID, output)
}

// FailToolCall completes the in-progress call with {"status": "failed"}.
func (b *Builder) FailToolCall(toolCallID string) error {
	return b.complete(toolCallID, map[string]any{"status": failedStatus})
}

func (b *Builder) complete(toolCallID string, output any) error {
	for i := len(b.steps) - 1; i >= 0; i-- {
		call := b.steps[i].ToolCall
		if call == nil || call.ToolCallID != toolCallID || call.Status != ToolCallInProgress {
			continue
		}
		end := b.now()
		call.Status = ToolCallCompleted
		call.EndTime = &end
		call.Output = output
		return nil
	}
	return core.Errorf(core.ErrCodeToolCallNotFound, map[string]any{"tool_call_id": toolCallID},
		"no in-progress tool call with id %q", toolCallID)
}

// Build returns a copy of the transcript detached from the builder.
func (b *Builder) Build() (*Transcript, error) {
	steps, err := core.DeepCopy(b.steps)
	if err != nil {
		return nil, err
	}
	structured, err := core.DeepCopy(b.structured)
	if err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []Block{}
	}
	return &Transcript{
		Status:           b.status,
		Steps:            steps,
		StructuredOutput: structured,
		Prompt:           b.prompt,
	}, nil
}
