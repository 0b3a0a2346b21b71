package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/engine/resolver/prompts"
	"github.com/tidwall/pretty"
)

// PropertyDetail is the per-property bundle shown to the model. It is
// rebuilt on every resolution and never persisted.
type PropertyDetail struct {
	Name         string
	Type         piece.PropertyType
	Description  string
	Required     bool
	DefaultValue any
	Options      []piece.Option
}

type promptRenderer struct {
	system *template.Template
	level  *template.Template
}

type systemPromptData struct {
	ActionName        string
	ActionDescription string
}

type levelPromptData struct {
	Instruction string
	Resolved    string
	Properties  []PropertyDetail
}

func newPromptRenderer() *promptRenderer {
	tpl := template.Must(
		template.New("resolver").
			Funcs(sprig.TxtFuncMap()).
			ParseFS(prompts.TemplateFS, "templates/*.tmpl"),
	)
	return &promptRenderer{
		system: tpl.Lookup("system.tmpl"),
		level:  tpl.Lookup("level.tmpl"),
	}
}

func (r *promptRenderer) System(action *piece.Action) (string, error) {
	data := systemPromptData{}
	if action != nil {
		data.ActionName = action.DisplayName
		if data.ActionName == "" {
			data.ActionName = action.Name
		}
		data.ActionDescription = action.Description
	}
	var buf bytes.Buffer
	if err := r.system.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

// Level renders the extraction prompt. Resolved values are shown with auth
// redacted so credentials never reach the model.
func (r *promptRenderer) Level(instruction string, resolved core.Input, details []PropertyDetail) (string, error) {
	raw, err := json.Marshal(core.RedactAuth(resolved).AsMap())
	if err != nil {
		return "", fmt.Errorf("encode resolved values: %w", err)
	}
	data := levelPromptData{
		Instruction: instruction,
		Resolved:    string(bytes.TrimSpace(pretty.Pretty(raw))),
		Properties:  details,
	}
	var buf bytes.Buffer
	if err := r.level.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render level prompt: %w", err)
	}
	return buf.String(), nil
}
