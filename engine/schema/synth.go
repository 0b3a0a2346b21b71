package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/pkg/logger"
	"github.com/tidwall/gjson"
)

// Context is the resolution state a synthesis call can observe.
type Context struct {
	Operation piece.OperationContext
	Input     core.Input
}

// Synthesized is the schema of one property plus the authoritative options
// that were available while building it.
type Synthesized struct {
	Schema  Schema
	Options []piece.Option
}

// Synthesizer turns property declarations into JSON schemas for structured
// model output.
type Synthesizer struct {
	loader piece.OptionLoader
}

// NewSynthesizer accepts a nil loader; runtime options are then treated as
// unavailable.
func NewSynthesizer(loader piece.OptionLoader) *Synthesizer {
	return &Synthesizer{loader: loader}
}

func (s *Synthesizer) Synthesize(
	ctx context.Context,
	name string,
	prop piece.Property,
	sctx *Context,
) (*Synthesized, error) {
	if sctx == nil {
		sctx = &Context{}
	}
	base, options, err := s.base(ctx, name, prop, sctx)
	if err != nil {
		return nil, err
	}
	description := prop.Description
	if hint := shapeHint(prop); hint != "" {
		description = strings.TrimSpace(description + "\n" + hint)
	}
	out := base
	if !prop.Required {
		out = Nullable(base)
	}
	if description != "" {
		out["description"] = description
	}
	return &Synthesized{Schema: out, Options: options}, nil
}

func (s *Synthesizer) base(
	ctx context.Context,
	name string,
	prop piece.Property,
	sctx *Context,
) (Schema, []piece.Option, error) {
	switch prop.Type {
	case piece.ShortText, piece.LongText, piece.DateTime, piece.File, piece.Color, piece.Custom:
		return String(), nil, nil
	case piece.Dropdown, piece.StaticDropdown:
		options := s.options(ctx, name, prop, sctx)
		if labels := optionLabels(options); len(labels) > 0 {
			return Schema{"type": "string", "enum": labels}, options, nil
		}
		return AnyOf(String(), Number(), OpenObject()), options, nil
	case piece.MultiSelectDropdown, piece.StaticMultiSelectDropdown:
		options := s.options(ctx, name, prop, sctx)
		return AnyOf(ArrayOf(String()), ArrayOf(OpenObject())), options, nil
	case piece.Number:
		return Number(), nil, nil
	case piece.Checkbox:
		return Boolean(), nil, nil
	case piece.Array:
		return ArrayOf(String()), nil, nil
	case piece.Object, piece.JSON:
		if derived, ok := objectFromDescriptor(prop.DefaultValue); ok {
			return derived, nil, nil
		}
		return OpenObject(), nil, nil
	case piece.Dynamic:
		return s.dynamic(ctx, name, sctx), nil, nil
	default:
		return nil, nil, core.Errorf(core.ErrCodeUnsupportedPropertyType,
			map[string]any{"property": name, "type": string(prop.Type)},
			"property %s has unsupported type %s", name, prop.Type)
	}
}

// options returns static options or loads live ones. Load failures are
// logged and degrade to no options so extraction can proceed unenumerated.
func (s *Synthesizer) options(
	ctx context.Context,
	name string,
	prop piece.Property,
	sctx *Context,
) []piece.Option {
	if prop.Type.HasStaticOptions() {
		return prop.Options
	}
	if s.loader == nil {
		return prop.Options
	}
	log := logger.FromContext(ctx)
	res, err := s.loader.LoadOptions(ctx, name, sctx.Operation, sctx.Input)
	if err != nil {
		log.Warn("Failed to load property options", "property", name, "error", core.RedactError(err))
		return nil
	}
	if res == nil || res.Disabled {
		log.Debug("Property options unavailable", "property", name)
		return nil
	}
	return res.Options
}

func (s *Synthesizer) dynamic(ctx context.Context, name string, sctx *Context) Schema {
	log := logger.FromContext(ctx)
	if s.loader == nil {
		return OpenObject()
	}
	res, err := s.loader.LoadDynamic(ctx, name, sctx.Operation, sctx.Input)
	if err != nil {
		log.Warn("Failed to load dynamic properties", "property", name, "error", core.RedactError(err))
		return OpenObject()
	}
	if res == nil || res.Disabled {
		return OpenObject()
	}
	subProps, failed := piece.DecodeProperties(res.Properties)
	for sub, decodeErr := range failed {
		log.Debug("Skipping malformed dynamic property", "property", name, "sub_property", sub, "error", decodeErr)
	}
	fields := make([]Field, 0, len(subProps))
	for _, np := range subProps {
		synth, err := s.Synthesize(ctx, np.Name, np.Property, sctx)
		if err != nil {
			log.Debug("Skipping unsupported dynamic property", "property", name, "sub_property", np.Name, "error", err)
			continue
		}
		fields = append(fields, Field{Name: np.Name, Schema: synth.Schema, Required: np.Property.Required})
	}
	return ObjectOf(fields, false)
}

func optionLabels(options []piece.Option) []any {
	seen := make(map[string]struct{}, len(options))
	labels := make([]any, 0, len(options))
	for _, opt := range options {
		if opt.Label == "" {
			continue
		}
		if _, dup := seen[opt.Label]; dup {
			continue
		}
		seen[opt.Label] = struct{}{}
		labels = append(labels, opt.Label)
	}
	return labels
}

// shapeHint describes the expected structure of an object property whose
// default is an example value rather than a schema descriptor.
func shapeHint(prop piece.Property) string {
	if prop.Type != piece.Object && prop.Type != piece.JSON {
		return ""
	}
	if prop.DefaultValue == nil {
		return ""
	}
	if _, ok := objectFromDescriptor(prop.DefaultValue); ok {
		return ""
	}
	raw, ok := defaultJSON(prop.DefaultValue)
	if !ok {
		raw = strings.TrimSpace(fmt.Sprint(prop.DefaultValue))
	}
	if raw == "" {
		return ""
	}
	return "Expected shape: " + raw
}

// objectFromDescriptor derives a field-accurate schema from a default value
// shaped like {type: "object", properties: {...}, required: [...]}.
func objectFromDescriptor(value any) (Schema, bool) {
	raw, ok := defaultJSON(value)
	if !ok {
		return nil, false
	}
	doc := gjson.Parse(raw)
	props := doc.Get("properties")
	if doc.Get("type").String() != "object" || !props.IsObject() {
		return nil, false
	}
	required := map[string]bool{}
	for _, r := range doc.Get("required").Array() {
		required[r.String()] = true
	}
	var fields []Field
	props.ForEach(func(key, field gjson.Result) bool {
		name := key.String()
		fieldSchema := descriptorField(field.Get("type").String())
		if desc := field.Get("description").String(); desc != "" {
			fieldSchema["description"] = desc
		}
		if !required[name] {
			fieldSchema = Nullable(fieldSchema)
		}
		fields = append(fields, Field{Name: name, Schema: fieldSchema, Required: required[name]})
		return true
	})
	return ObjectOf(fields, false), true
}

func descriptorField(kind string) Schema {
	switch kind {
	case "number", "integer":
		return Number()
	case "boolean":
		return Boolean()
	case "array":
		return Schema{"type": "array", "items": map[string]any{}}
	default:
		return String()
	}
}

func defaultJSON(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", false
		}
		if gjson.Valid(trimmed) {
			return trimmed, true
		}
		return "", false
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
