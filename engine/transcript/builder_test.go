package transcript

import (
	"testing"
	"time"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestBuilder() (*Builder, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewBuilder("send the weekly report", WithClock(clock.Now)), clock
}

func tools() []tool.Declaration {
	return []tool.Declaration{
		{Name: "send_email", Kind: tool.KindPiece, Piece: &tool.PieceTool{
			PieceName: "gmail", PieceVersion: "0.3.1", ActionName: "send_email",
		}},
		{Name: "weekly_report", Kind: tool.KindFlow, DisplayName: "Weekly report", Flow: &tool.FlowTool{FlowID: "f-1"}},
		{Name: "github", Kind: tool.KindMCP, MCP: &tool.MCPTool{ServerName: "github"}},
	}
}

func TestBuilder_Markdown(t *testing.T) {
	t.Run("Should coalesce consecutive markdown chunks", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.AddMarkdown("a")
		b.AddMarkdown("b")
		out, err := b.Build()
		require.NoError(t, err)
		require.Len(t, out.Steps, 1)
		assert.Equal(t, "ab", out.Steps[0].Markdown)
	})

	t.Run("Should open a new block after a tool call", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.AddMarkdown("before")
		require.NoError(t, b.StartToolCall(StartParams{ToolName: "send_email", ToolCallID: "c1", Tools: tools()}))
		b.AddMarkdown("after")
		out, err := b.Build()
		require.NoError(t, err)
		require.Len(t, out.Steps, 3)
		assert.Equal(t, BlockToolCall, out.Steps[1].Type)
		assert.Equal(t, "after", out.Steps[2].Markdown)
	})
}

func TestBuilder_ToolCalls(t *testing.T) {
	t.Run("Should complete a started call with an end time", func(t *testing.T) {
		b, clock := newTestBuilder()
		require.NoError(t, b.StartToolCall(StartParams{
			ToolName:   "send_email",
			ToolCallID: "c1",
			Input:      map[string]any{"to": "alice@example.com"},
			Tools:      tools(),
		}))
		started, err := b.Build()
		require.NoError(t, err)
		require.Len(t, started.Steps, 1)
		assert.Equal(t, ToolCallInProgress, started.Steps[0].ToolCall.Status)
		assert.Nil(t, started.Steps[0].ToolCall.EndTime)

		require.NoError(t, b.FinishToolCall("c1", map[string]any{"id": "msg-1"}))
		out, err := b.Build()
		require.NoError(t, err)
		require.Len(t, out.Steps, 1)
		call := out.Steps[0].ToolCall
		assert.Equal(t, ToolCallCompleted, call.Status)
		require.NotNil(t, call.EndTime)
		assert.Equal(t, clock.now, *call.EndTime)
		assert.True(t, call.EndTime.After(call.StartTime))
		assert.Equal(t, map[string]any{"id": "msg-1"}, call.Output)
		assert.Equal(t, &PieceInfo{PieceName: "gmail", PieceVersion: "0.3.1", ActionName: "send_email"}, call.Piece)
		assert.Equal(t, ToolCallInProgress, started.Steps[0].ToolCall.Status)
	})

	t.Run("Should record failures as completed calls", func(t *testing.T) {
		b, _ := newTestBuilder()
		require.NoError(t, b.StartToolCall(StartParams{ToolName: "weekly_report", ToolCallID: "c2", Tools: tools()}))
		require.NoError(t, b.FailToolCall("c2"))
		out, err := b.Build()
		require.NoError(t, err)
		call := out.Steps[0].ToolCall
		assert.Equal(t, ToolCallCompleted, call.Status)
		assert.Equal(t, map[string]any{"status": "failed"}, call.Output)
		assert.Equal(t, "Weekly report", call.DisplayName)
		assert.Equal(t, &FlowInfo{FlowID: "f-1"}, call.Flow)
	})

	t.Run("Should strip the registered suffix from MCP calls", func(t *testing.T) {
		b, _ := newTestBuilder()
		require.NoError(t, b.StartToolCall(StartParams{ToolName: "create_issue_github", ToolCallID: "c3", Tools: tools()}))
		out, err := b.Build()
		require.NoError(t, err)
		call := out.Steps[0].ToolCall
		assert.Equal(t, tool.KindMCP, call.Kind)
		assert.Equal(t, "create_issue", call.DisplayName)
		assert.Equal(t, &MCPInfo{ServerName: "github", ToolName: "create_issue"}, call.MCP)
	})

	t.Run("Should fail for unknown tools and call ids", func(t *testing.T) {
		b, _ := newTestBuilder()
		err := b.StartToolCall(StartParams{ToolName: "unknown", ToolCallID: "c4", Tools: tools()})
		assert.True(t, core.HasCode(err, core.ErrCodeToolNotFound))

		err = b.FinishToolCall("missing", nil)
		assert.True(t, core.HasCode(err, core.ErrCodeToolCallNotFound))
		err = b.FailToolCall("missing")
		assert.True(t, core.HasCode(err, core.ErrCodeToolCallNotFound))
	})

	t.Run("Should not complete a call twice", func(t *testing.T) {
		b, _ := newTestBuilder()
		require.NoError(t, b.StartToolCall(StartParams{ToolName: "send_email", ToolCallID: "c5", Tools: tools()}))
		require.NoError(t, b.FinishToolCall("c5", "ok"))
		err := b.FailToolCall("c5")
		assert.True(t, core.HasCode(err, core.ErrCodeToolCallNotFound))
	})
}

func TestBuilder_StatusAndErrors(t *testing.T) {
	t.Run("Should ignore errors without structured output", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.AppendError(map[string]any{"message": "x"})
		out, err := b.Build()
		require.NoError(t, err)
		assert.Nil(t, out.StructuredOutput)
		assert.Equal(t, StatusInProgress, out.Status)
		assert.Equal(t, "send the weekly report", out.Prompt)
	})

	t.Run("Should collect errors into the structured output", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.SetStructuredOutput(map[string]any{"summary": "partial"})
		b.AppendError("first")
		b.Fail("report tool unavailable")
		out, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, out.Status)
		assert.Equal(t, []any{"first", map[string]any{"message": "report tool unavailable"}},
			out.StructuredOutput[ErrorsKey])
		require.Len(t, out.Steps, 1)
		assert.Equal(t, "report tool unavailable", out.Steps[0].Markdown)
	})

	t.Run("Should fail silently without a message", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.Fail("")
		b.SetStatus(StatusFailed)
		out, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, out.Status)
		assert.Empty(t, out.Steps)
	})

	t.Run("Should mark completion", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.SetStatus(StatusCompleted)
		out, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, out.Status)
	})
}
