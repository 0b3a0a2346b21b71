package piece

import (
	"testing"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dyn(refresh ...string) Property {
	return Property{Type: Dynamic, RefreshOn: refresh}
}

func TestSortLevels(t *testing.T) {
	t.Run("Should place independent properties on level zero in declaration order", func(t *testing.T) {
		props := Properties{
			{Name: "amount", Property: Property{Type: Number, Required: true}},
			{Name: "currency", Property: Property{Type: StaticDropdown, Required: true}},
			{Name: "note", Property: Property{Type: LongText}},
		}
		levels, err := SortLevels(props)
		require.NoError(t, err)
		assert.Equal(t, Levels{{"amount", "currency", "note"}}, levels)
	})

	t.Run("Should put dependents one level after their deepest dependency", func(t *testing.T) {
		props := Properties{
			{Name: "fields", Property: dyn("table", "base")},
			{Name: "table", Property: Property{Type: Dropdown, RefreshOn: []string{"base"}}},
			{Name: "base", Property: Property{Type: Dropdown}},
			{Name: "title", Property: Property{Type: ShortText}},
		}
		levels, err := SortLevels(props)
		require.NoError(t, err)
		assert.Equal(t, Levels{{"base", "title"}, {"table"}, {"fields"}}, levels)
	})

	t.Run("Should ignore refresh names that are not declared", func(t *testing.T) {
		levels, err := SortLevels(Properties{{Name: "fields", Property: dyn("auth")}})
		require.NoError(t, err)
		assert.Equal(t, Levels{{"fields"}}, levels)
	})

	t.Run("Should ignore refreshers on types whose shape never changes", func(t *testing.T) {
		props := Properties{
			{Name: "a", Property: Property{Type: ShortText, RefreshOn: []string{"b"}}},
			{Name: "b", Property: Property{Type: ShortText, RefreshOn: []string{"a"}}},
		}
		levels, err := SortLevels(props)
		require.NoError(t, err)
		assert.Equal(t, Levels{{"a", "b"}}, levels)
	})

	t.Run("Should cover every property exactly once with increasing depth", func(t *testing.T) {
		props := Properties{
			{Name: "e", Property: dyn("d", "a")},
			{Name: "d", Property: dyn("c")},
			{Name: "c", Property: dyn("b")},
			{Name: "b", Property: dyn("a")},
			{Name: "a", Property: Property{Type: ShortText}},
		}
		levels, err := SortLevels(props)
		require.NoError(t, err)
		depth := map[string]int{}
		for d, level := range levels {
			for _, name := range level {
				_, dup := depth[name]
				require.False(t, dup, name)
				depth[name] = d
			}
		}
		assert.ElementsMatch(t, props.Names(), levels.Flatten())
		for _, np := range props {
			for _, dep := range Dependencies(np.Property) {
				assert.Greater(t, depth[np.Name], depth[dep], "%s after %s", np.Name, dep)
			}
		}
	})

	t.Run("Should fail with a cycle witness", func(t *testing.T) {
		props := Properties{
			{Name: "root", Property: Property{Type: ShortText}},
			{Name: "x", Property: dyn("z")},
			{Name: "y", Property: dyn("x")},
			{Name: "z", Property: dyn("y")},
			{Name: "tail", Property: dyn("z")},
		}
		_, err := SortLevels(props)
		require.Error(t, err)
		var coreErr *core.Error
		require.ErrorAs(t, err, &coreErr)
		assert.Equal(t, core.ErrCodeCyclicDependency, coreErr.Code)
		path, ok := coreErr.Details["cycle"].([]string)
		require.True(t, ok)
		require.Len(t, path, 4)
		assert.Equal(t, path[0], path[len(path)-1])
		assert.ElementsMatch(t, []string{"x", "y", "z"}, path[:3])
	})

	t.Run("Should treat a self reference as a cycle", func(t *testing.T) {
		_, err := SortLevels(Properties{{Name: "self", Property: dyn("self")}})
		assert.True(t, core.HasCode(err, core.ErrCodeCyclicDependency))
	})

	t.Run("Should reject duplicate names", func(t *testing.T) {
		_, err := SortLevels(Properties{
			{Name: "a", Property: Property{Type: ShortText}},
			{Name: "a", Property: Property{Type: Number}},
		})
		assert.True(t, core.HasCode(err, core.ErrCodeInvalidConfig))
	})

	t.Run("Should return no levels for an action without properties", func(t *testing.T) {
		levels, err := SortLevels(nil)
		require.NoError(t, err)
		assert.Empty(t, levels)
	})
}
