package core

// Input is the property-name keyed value map an action consumes.
type Input map[string]any

// Output is the value map produced by an action or a model call.
type Output map[string]any

func (i Input) Has(key string) bool {
	if i == nil {
		return false
	}
	_, ok := i[key]
	return ok
}

func (i Input) Prop(key string) any {
	if i == nil {
		return nil
	}
	return i[key]
}

func (i Input) AsMap() map[string]any {
	return map[string]any(i)
}

// Clone returns a deep copy of the input, or an empty input when nil.
func (i Input) Clone() (Input, error) {
	if i == nil {
		return Input{}, nil
	}
	return DeepCopy(i)
}

func (o Output) AsMap() map[string]any {
	return map[string]any(o)
}
