package tool

// Kind identifies the capability behind a tool.
type Kind string

const (
	KindPiece Kind = "piece"
	KindFlow  Kind = "flow"
	KindMCP   Kind = "mcp"
)

// PieceTool points at a piece action.
type PieceTool struct {
	PieceName    string `json:"pieceName"    yaml:"pieceName"`
	PieceVersion string `json:"pieceVersion" yaml:"pieceVersion"`
	ActionName   string `json:"actionName"   yaml:"actionName"`
}

// FlowTool points at a published sub-flow.
type FlowTool struct {
	FlowID         string `json:"flowId"                   yaml:"flowId"`
	ExternalFlowID string `json:"externalFlowId,omitempty" yaml:"externalFlowId,omitempty"`
}

// MCPTool points at a tool registered on an MCP server.
type MCPTool struct {
	ServerName string `json:"serverName"          yaml:"serverName"`
	ServerURL  string `json:"serverUrl,omitempty" yaml:"serverUrl,omitempty"`
}

// Declaration is a tool made available to an agent. Exactly one of Piece,
// Flow or MCP is set, according to Kind.
type Declaration struct {
	Name        string     `json:"name"                  yaml:"name"`
	Kind        Kind       `json:"kind"                  yaml:"kind"`
	DisplayName string     `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Piece       *PieceTool `json:"piece,omitempty"       yaml:"piece,omitempty"`
	Flow        *FlowTool  `json:"flow,omitempty"        yaml:"flow,omitempty"`
	MCP         *MCPTool   `json:"mcp,omitempty"         yaml:"mcp,omitempty"`
}
