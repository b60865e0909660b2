package imports

import (
	"sort"
	"strings"
)

// detectCycles finds import cycles by depth-first search with an explicit
// recursion stack. A back edge to a module on the stack closes a cycle;
// the reported chain runs from that module through the stack and repeats
// it at the end (A -> B -> A). Cycles touching the same node set are
// reported once, regardless of entry point.
func detectCycles(g *Graph) [][]string {
	visited := make(map[string]bool)
	onStack := make(map[string]int)
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string

	var dfs func(n string)
	dfs = func(n string) {
		visited[n] = true
		onStack[n] = len(stack)
		stack = append(stack, n)

		for _, m := range g.Imports(n) {
			if idx, ok := onStack[m]; ok {
				cycle := make([]string, 0, len(stack)-idx+1)
				cycle = append(cycle, stack[idx:]...)
				cycle = append(cycle, m)
				key := canonicalKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			} else if !visited[m] {
				dfs(m)
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n)
	}

	for _, n := range g.Modules() {
		if !visited[n] {
			dfs(n)
		}
	}
	return cycles
}

// canonicalKey identifies a cycle by its sorted node set so the same
// cycle discovered from different entry points dedupes.
func canonicalKey(cycle []string) string {
	nodes := make([]string, len(cycle)-1)
	copy(nodes, cycle[:len(cycle)-1])
	sort.Strings(nodes)
	return strings.Join(nodes, "\x00")
}
