package core

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// deepCopyMap returns a deep copy of the provided map[string]any.
//
// If the underlying copy cannot be asserted back to map[string]any an error is returned.
func deepCopyMap(m map[string]any) (map[string]any, error) {
	copiedInterface := deepcopy.Copy(m)
	copied, ok := copiedInterface.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to copy map")
	}
	return copied, nil
}

// DeepCopy returns a deep copy of v, preserving the concrete Input / Output
// map types that the deepcopy library would otherwise devolve into plain maps.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	switch src := any(v).(type) {
	case Input:
		if src == nil {
			return zero, nil
		}
		copied, err := deepCopyMap(map[string]any(src))
		if err != nil {
			return zero, fmt.Errorf("failed to copy Input type: %w", err)
		}
		return castCopy(Input(copied), zero)
	case Output:
		if src == nil {
			return zero, nil
		}
		copied, err := deepCopyMap(map[string]any(src))
		if err != nil {
			return zero, fmt.Errorf("failed to copy Output type: %w", err)
		}
		return castCopy(Output(copied), zero)
	default:
		return castCopy(deepcopy.Copy(v), zero)
	}
}

func castCopy[T any](copied any, zero T) (T, error) {
	if copied == nil {
		return zero, nil
	}
	result, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
	}
	return result, nil
}
