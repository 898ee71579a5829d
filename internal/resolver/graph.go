package resolver

import (
	"aiconfig/pkg/types"
)

// Graph is the dependency graph of a document: one node per prompt, an edge
// a→b when a's input references b.output.
type Graph struct {
	names []string
	index map[string]int
	deps  map[string][]string // sorted by document order
}

// Graph builds the dependency graph of doc.
func (r *Resolver) Graph(doc *types.Document) *Graph {
	g := &Graph{index: map[string]int{}, deps: map[string][]string{}}
	for i, p := range doc.Prompts {
		g.names = append(g.names, p.Name)
		g.index[p.Name] = i
	}
	for _, p := range doc.Prompts {
		refs := r.Parse(p.Input.TemplateText()).OutputRefs()
		var ds []string
		for _, ref := range refs {
			if _, ok := g.index[ref]; ok {
				ds = append(ds, ref)
			}
		}
		g.sortByDocOrder(ds)
		g.deps[p.Name] = ds
	}
	return g
}

// Dependencies returns the direct dependencies of name in document order.
func (g *Graph) Dependencies(name string) []string {
	return append([]string(nil), g.deps[name]...)
}

// Dependents returns the prompts that directly reference name.output.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, n := range g.names {
		for _, d := range g.deps[n] {
			if d == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// Order returns the prompts reachable from root in execution order:
// dependencies before dependents, ties broken by document order, root last.
// A cycle in the reachable sub-graph fails with a *types.CycleError naming
// the shortest cycle.
func (g *Graph) Order(root string) ([]string, error) {
	if _, ok := g.index[root]; !ok {
		return nil, types.ErrUnknownPrompt(root)
	}
	reach := map[string]bool{}
	stack := []string{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reach[n] {
			continue
		}
		reach[n] = true
		stack = append(stack, g.deps[n]...)
	}

	// Kahn's algorithm over the reachable nodes.
	pending := map[string]int{}
	for n := range reach {
		pending[n] = len(g.deps[n])
	}
	done := map[string]bool{}
	var order []string
	for len(order) < len(reach) {
		next := ""
		for _, n := range g.names {
			if reach[n] && !done[n] && pending[n] == 0 {
				next = n
				break
			}
		}
		if next == "" {
			return nil, &types.CycleError{Cycle: g.shortestCycle(reach, done)}
		}
		done[next] = true
		order = append(order, next)
		for n := range reach {
			for _, d := range g.deps[n] {
				if d == next {
					pending[n]--
				}
			}
		}
	}
	return order, nil
}

// shortestCycle finds the shortest cycle among the unfinished nodes by
// breadth-first search from each start, in document order.
func (g *Graph) shortestCycle(reach, done map[string]bool) []string {
	var best []string
	for _, start := range g.names {
		if !reach[start] || done[start] {
			continue
		}
		prev := map[string]string{}
		queue := []string{start}
		seen := map[string]bool{start: true}
		var found []string
	search:
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for _, d := range g.deps[n] {
				if d == start {
					found = []string{start}
					for c := n; c != start; c = prev[c] {
						found = append(found, c)
					}
					found = append(found, start)
					// found was built backwards from the closing edge
					for i, j := 1, len(found)-2; i < j; i, j = i+1, j-1 {
						found[i], found[j] = found[j], found[i]
					}
					break search
				}
				if !seen[d] && reach[d] && !done[d] {
					seen[d] = true
					prev[d] = n
					queue = append(queue, d)
				}
			}
		}
		if found != nil && (best == nil || len(found) < len(best)) {
			best = found
		}
	}
	return best
}

func (g *Graph) sortByDocOrder(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && g.index[names[j]] < g.index[names[j-1]]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
