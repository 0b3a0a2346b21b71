package transcript

import (
	"time"

	"github.com/compozy/pieceagent/engine/tool"
)

// Status is the running state of an agent run.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusFailed     Status = "failed"
	StatusCompleted  Status = "completed"
)

// ToolCallStatus moves from in-progress to completed exactly once. A failed
// call is completed with a failure output.
type ToolCallStatus string

const (
	ToolCallInProgress ToolCallStatus = "in-progress"
	ToolCallCompleted  ToolCallStatus = "completed"
)

type BlockType string

const (
	BlockMarkdown BlockType = "markdown"
	BlockToolCall BlockType = "tool_call"
)

// Block is one entry of the narration: markdown text or a tool call.
type Block struct {
	Type     BlockType `json:"type"`
	Markdown string    `json:"markdown,omitempty"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

type PieceInfo struct {
	PieceName    string `json:"pieceName"`
	PieceVersion string `json:"pieceVersion,omitempty"`
	ActionName   string `json:"actionName"`
}

type FlowInfo struct {
	FlowID         string `json:"flowId"`
	ExternalFlowID string `json:"externalFlowId,omitempty"`
}

type MCPInfo struct {
	ServerName string `json:"serverName,omitempty"`
	ServerURL  string `json:"serverUrl,omitempty"`
	// ToolName is the name the agent called, with the registered suffix removed.
	ToolName string `json:"toolName"`
}

// ToolCall records the lifecycle of one tool invocation.
type ToolCall struct {
	ToolCallID  string         `json:"toolCallId"`
	ToolName    string         `json:"toolName"`
	DisplayName string         `json:"displayName"`
	Kind        tool.Kind      `json:"kind"`
	Status      ToolCallStatus `json:"status"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	Output      any            `json:"output,omitempty"`
	Piece       *PieceInfo     `json:"piece,omitempty"`
	Flow        *FlowInfo      `json:"flow,omitempty"`
	MCP         *MCPInfo       `json:"mcp,omitempty"`
}

// Transcript is the finalized record of an agent run.
type Transcript struct {
	Status           Status         `json:"status"`
	Steps            []Block        `json:"steps"`
	StructuredOutput map[string]any `json:"structuredOutput,omitempty"`
	Prompt           string         `json:"prompt"`
}
