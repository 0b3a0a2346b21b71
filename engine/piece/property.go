package piece

import (
	"encoding/json"
	"fmt"
)

// PropertyType tags one variant of the closed property taxonomy.
type PropertyType string

const (
	ShortText                 PropertyType = "SHORT_TEXT"
	LongText                  PropertyType = "LONG_TEXT"
	DateTime                  PropertyType = "DATE_TIME"
	File                      PropertyType = "FILE"
	Color                     PropertyType = "COLOR"
	Dropdown                  PropertyType = "DROPDOWN"
	StaticDropdown            PropertyType = "STATIC_DROPDOWN"
	MultiSelectDropdown       PropertyType = "MULTI_SELECT_DROPDOWN"
	StaticMultiSelectDropdown PropertyType = "STATIC_MULTI_SELECT_DROPDOWN"
	Number                    PropertyType = "NUMBER"
	Array                     PropertyType = "ARRAY"
	Object                    PropertyType = "OBJECT"
	JSON                      PropertyType = "JSON"
	Dynamic                   PropertyType = "DYNAMIC"
	Checkbox                  PropertyType = "CHECKBOX"
	Custom                    PropertyType = "CUSTOM"
	BasicAuth                 PropertyType = "BASIC_AUTH"
	OAuth2                    PropertyType = "OAUTH2"
	CustomAuth                PropertyType = "CUSTOM_AUTH"
	SecretText                PropertyType = "SECRET_TEXT"
)

// IsAuth reports whether the type only carries credentials. Auth properties
// are never extracted from natural language.
func (t PropertyType) IsAuth() bool {
	switch t {
	case BasicAuth, OAuth2, CustomAuth, SecretText:
		return true
	default:
		return false
	}
}

// IsChoice reports whether values must come from an option list.
func (t PropertyType) IsChoice() bool {
	return t.IsSingleChoice() || t.IsMultiChoice()
}

func (t PropertyType) IsSingleChoice() bool {
	return t == Dropdown || t == StaticDropdown
}

func (t PropertyType) IsMultiChoice() bool {
	return t == MultiSelectDropdown || t == StaticMultiSelectDropdown
}

// HasStaticOptions reports whether options are part of the declaration.
func (t PropertyType) HasStaticOptions() bool {
	return t == StaticDropdown || t == StaticMultiSelectDropdown
}

// Option is one selectable value of a choice property.
type Option struct {
	Label string `json:"label" mapstructure:"label" yaml:"label"`
	Value any    `json:"value" mapstructure:"value" yaml:"value"`
}

// Property is one typed input slot of an action.
type Property struct {
	Type         PropertyType `json:"type"                   mapstructure:"type"         yaml:"type"`
	DisplayName  string       `json:"displayName,omitempty"  mapstructure:"displayName"  yaml:"displayName,omitempty"`
	Description  string       `json:"description,omitempty"  mapstructure:"description"  yaml:"description,omitempty"`
	Required     bool         `json:"required"               mapstructure:"required"     yaml:"required"`
	DefaultValue any          `json:"defaultValue,omitempty" mapstructure:"defaultValue" yaml:"defaultValue,omitempty"`
	Options      []Option     `json:"options,omitempty"      mapstructure:"options"      yaml:"options,omitempty"`
	RefreshOn    []string     `json:"refreshers,omitempty"   mapstructure:"refreshers"   yaml:"refreshers,omitempty"`
}

// NamedProperty keeps a property next to its declared name.
type NamedProperty struct {
	Name     string
	Property Property
}

// Properties is an ordered property map. Order is declaration order and
// drives every deterministic iteration in the engine.
type Properties []NamedProperty

func (p Properties) Get(name string) (Property, bool) {
	for _, np := range p {
		if np.Name == name {
			return np.Property, true
		}
	}
	return Property{}, false
}

func (p Properties) Names() []string {
	out := make([]string, 0, len(p))
	for _, np := range p {
		out = append(out, np.Name)
	}
	return out
}

// MarshalJSON writes the properties as an object in declaration order.
func (p Properties) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, np := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(np.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(np.Property)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal property %s: %w", np.Name, err)
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// Action is the immutable declaration of one piece action.
type Action struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName,omitempty"`
	Description string     `json:"description,omitempty"`
	RequireAuth bool       `json:"requireAuth,omitempty"`
	Props       Properties `json:"props"`
}

// ActionRef identifies an action inside a versioned piece.
type ActionRef struct {
	PieceName    string `json:"pieceName"    validate:"required"`
	PieceVersion string `json:"pieceVersion" validate:"required"`
	ActionName   string `json:"actionName"   validate:"required"`
}

func (r ActionRef) String() string {
	return fmt.Sprintf("%s@%s/%s", r.PieceName, r.PieceVersion, r.ActionName)
}

// Metadata is the cached description of a piece version.
type Metadata struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	DisplayName string            `json:"displayName,omitempty"`
	Actions     map[string]Action `json:"actions"`
}
