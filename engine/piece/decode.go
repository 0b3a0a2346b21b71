package piece

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

var knownTypes = map[PropertyType]struct{}{
	ShortText: {}, LongText: {}, DateTime: {}, File: {}, Color: {},
	Dropdown: {}, StaticDropdown: {}, MultiSelectDropdown: {}, StaticMultiSelectDropdown: {},
	Number: {}, Array: {}, Object: {}, JSON: {}, Dynamic: {}, Checkbox: {}, Custom: {},
	BasicAuth: {}, OAuth2: {}, CustomAuth: {}, SecretText: {},
}

// IsKnown reports whether t belongs to the taxonomy.
func (t PropertyType) IsKnown() bool {
	_, ok := knownTypes[t]
	return ok
}

// DecodeProperty converts a loosely typed declaration (decoded JSON or YAML)
// into a Property. Static options nested under {"options": {"options": [...]}}
// are accepted as well as a flat options list.
func DecodeProperty(raw any) (Property, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Property{}, fmt.Errorf("property declaration must be an object, got %T", raw)
	}
	m = flattenOptions(m)
	var prop Property
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &prop,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Property{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Property{}, fmt.Errorf("failed to decode property: %w", err)
	}
	if !prop.Type.IsKnown() {
		return Property{}, fmt.Errorf("unknown property type %q", prop.Type)
	}
	return prop, nil
}

// DecodeProperties decodes a name-keyed declaration map. Names are sorted
// because the source map carries no order. Declarations that fail to decode
// are returned separately instead of aborting the batch.
func DecodeProperties(raw map[string]any) (Properties, map[string]error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	props := make(Properties, 0, len(names))
	var failed map[string]error
	for _, name := range names {
		prop, err := DecodeProperty(raw[name])
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[name] = err
			continue
		}
		props = append(props, NamedProperty{Name: name, Property: prop})
	}
	return props, failed
}

func flattenOptions(m map[string]any) map[string]any {
	nested, ok := m["options"].(map[string]any)
	if !ok {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out["options"] = nested["options"]
	return out
}
