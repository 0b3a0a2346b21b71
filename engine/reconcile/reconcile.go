// Package reconcile repairs model output against authoritative option lists.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/compozy/pieceagent/engine/piece"
)

type MatchKind string

const (
	MatchNone      MatchKind = "none"
	MatchExact     MatchKind = "exact"
	MatchLabel     MatchKind = "label"
	MatchContains  MatchKind = "contains"
	MatchSharedKey MatchKind = "shared_key"
	// MatchFallback means nothing matched and the first option was committed.
	MatchFallback MatchKind = "fallback"
)

type Result struct {
	Value any
	Match MatchKind
}

// Reconcile maps an extracted value onto one of options. The first matching
// rung wins: exact value, label, label contained in the value, shared key,
// then the first option. Label rungs only see scalars; objects go from the
// exact rung straight to the shared key rung. Empty options leave the value
// untouched.
func Reconcile(value any, options []piece.Option) Result {
	if len(options) == 0 {
		return Result{Value: value, Match: MatchNone}
	}
	if opt, ok := exact(value, options); ok {
		return Result{Value: opt.Value, Match: MatchExact}
	}
	if text, ok := scalarText(value); ok {
		if opt, ok := byLabel(text, options); ok {
			return Result{Value: opt.Value, Match: MatchLabel}
		}
		if opt, ok := labelWithin(text, options); ok {
			return Result{Value: opt.Value, Match: MatchContains}
		}
	}
	if extracted, ok := value.(map[string]any); ok {
		for _, opt := range options {
			if sharesKey(extracted, opt.Value) {
				return Result{Value: opt.Value, Match: MatchSharedKey}
			}
		}
	}
	return Result{Value: options[0].Value, Match: MatchFallback}
}

// ReconcileEach reconciles every element of a multi-select value. Non-slice
// values are reconciled as a single element.
func ReconcileEach(value any, options []piece.Option) ([]any, []MatchKind) {
	items, ok := value.([]any)
	if !ok {
		res := Reconcile(value, options)
		return []any{res.Value}, []MatchKind{res.Match}
	}
	values := make([]any, len(items))
	kinds := make([]MatchKind, len(items))
	for i, item := range items {
		res := Reconcile(item, options)
		values[i] = res.Value
		kinds[i] = res.Match
	}
	return values, kinds
}

func exact(value any, options []piece.Option) (piece.Option, bool) {
	want, ok := normalize(value)
	if !ok {
		return piece.Option{}, false
	}
	for _, opt := range options {
		if got, ok := normalize(opt.Value); ok && got == want {
			return opt, true
		}
	}
	return piece.Option{}, false
}

// normalize renders a value as canonical JSON; map keys are sorted by the
// encoder so equal contents compare equal.
func normalize(value any) (string, bool) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func byLabel(text string, options []piece.Option) (piece.Option, bool) {
	for _, opt := range options {
		if strings.EqualFold(text, opt.Label) {
			return opt, true
		}
	}
	return piece.Option{}, false
}

func labelWithin(text string, options []piece.Option) (piece.Option, bool) {
	lowered := strings.ToLower(text)
	for _, opt := range options {
		if opt.Label != "" && strings.Contains(lowered, strings.ToLower(opt.Label)) {
			return opt, true
		}
	}
	return piece.Option{}, false
}

// scalarText is the text form of strings, numbers and booleans. Any other
// shape has no label to compare against.
func scalarText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool, float32, float64, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return fmt.Sprint(v), true
	}
	return "", false
}

func sharesKey(extracted map[string]any, optionValue any) bool {
	candidate, ok := optionValue.(map[string]any)
	if !ok {
		return false
	}
	for key, v := range extracted {
		other, found := candidate[key]
		if !found {
			continue
		}
		left, lok := normalize(v)
		right, rok := normalize(other)
		if lok && rok && left == right {
			return true
		}
	}
	return false
}
