package piece

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/compozy/pieceagent/engine/core"
)

// Levels groups property names by dependency depth. Every property in
// Levels[d] depends only on properties in Levels[<d].
type Levels [][]string

// Flatten returns all names in level order.
func (l Levels) Flatten() []string {
	var out []string
	for _, level := range l {
		out = append(out, level...)
	}
	return out
}

// Dependencies returns the declared refresh dependencies of prop that
// influence its shape or options.
func Dependencies(prop Property) []string {
	switch prop.Type {
	case Dynamic, Dropdown, MultiSelectDropdown:
		return prop.RefreshOn
	default:
		return nil
	}
}

// SortLevels orders props into dependency levels. Names referenced by a
// refresh list but not declared on the action are treated as satisfied.
// Within a level, declaration order is preserved.
func SortLevels(props Properties) (Levels, error) {
	index := make(map[string]int, len(props))
	for i, np := range props {
		if _, dup := index[np.Name]; dup {
			return nil, core.Errorf(core.ErrCodeInvalidConfig, map[string]any{"property": np.Name},
				"property %q declared twice", np.Name)
		}
		index[np.Name] = i
	}
	outgoing := make([][]int, len(props))
	indeg := make([]int, len(props))
	for i, np := range props {
		seen := map[int]struct{}{}
		for _, dep := range Dependencies(np.Property) {
			j, ok := index[dep]
			if !ok {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			outgoing[j] = append(outgoing[j], i)
			indeg[i]++
		}
	}
	depth := make([]int, len(props))
	ready := &indexHeap{}
	for i := range props {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}
	visited := 0
	maxDepth := 0
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		visited++
		for _, m := range outgoing[n] {
			if depth[n]+1 > depth[m] {
				depth[m] = depth[n] + 1
			}
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
		if depth[n] > maxDepth {
			maxDepth = depth[n]
		}
	}
	if visited != len(props) {
		path := findCycle(props, outgoing, indeg)
		return nil, core.Errorf(core.ErrCodeCyclicDependency, map[string]any{"cycle": path},
			"cyclic property dependency: %s", strings.Join(path, " -> "))
	}
	if len(props) == 0 {
		return Levels{}, nil
	}
	levels := make(Levels, maxDepth+1)
	for i, np := range props {
		levels[depth[i]] = append(levels[depth[i]], np.Name)
	}
	return levels, nil
}

// findCycle walks the nodes Kahn's algorithm could not release and returns
// one cycle as a closed path of names.
func findCycle(props Properties, outgoing [][]int, indeg []int) []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(props))
	stack := make([]int, 0, len(props))
	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range outgoing[u] {
			if indeg[v] == 0 {
				continue
			}
			switch color[v] {
			case white:
				if dfs(v) {
					return true
				}
			case gray:
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == v {
						cycle = append(append(cycle, stack[k:]...), v)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}
	for i := range props {
		if indeg[i] > 0 && color[i] == white && dfs(i) {
			break
		}
	}
	out := make([]string, 0, len(cycle))
	for _, idx := range cycle {
		out = append(out, props[idx].Name)
	}
	if len(out) == 0 {
		return []string{fmt.Sprintf("%d unresolved properties", countPositive(indeg))}
	}
	return out
}

func countPositive(values []int) int {
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
