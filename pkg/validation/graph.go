package validation

import (
	"slices"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// visibilityCycles reports options whose conditions depend on each other over
// more than one hop. Evaluation stays bounded, but the outcome depends on
// which option is asked first.
func (c *checker) visibilityCycles() {
	adj := c.edges(func(opt model.Option) []string {
		if opt.ConditionalLogic == nil {
			return nil
		}
		var out []string
		for _, cond := range opt.ConditionalLogic.Conditions {
			if cond.OptionID != opt.ID {
				out = append(out, cond.OptionID)
			}
		}
		return out
	})
	for _, scc := range tarjanSCC(adj) {
		if len(scc) < 2 {
			continue
		}
		names := c.names(scc)
		c.warnf(names[0], "conditionalLogic", "visibility cycle: %s", joinArrow(append(names, names[0])))
	}
}

// formulaCycles reports computed-formula options that read themselves through
// formula variables. Every member of the cycle is disabled.
func (c *checker) formulaCycles() {
	adj := c.edges(func(opt model.Option) []string {
		f := opt.Formula()
		if f == nil {
			return nil
		}
		var out []string
		for _, v := range f.Variables {
			if v.Kind == model.VariableKindFormula {
				out = append(out, v.OptionID)
			}
		}
		return out
	})
	for _, scc := range tarjanSCC(adj) {
		if len(scc) == 1 && !slices.Contains(adj[scc[0]], scc[0]) {
			continue
		}
		names := c.names(scc)
		cycle := joinArrow(append(slices.Clone(names), names[0]))
		for _, name := range names {
			c.errorf(name, "settings.formula.variables", "formula cycle: %s", cycle)
		}
	}
}

func (c *checker) edges(targets func(model.Option) []string) [][]int {
	index := make(map[string]int, len(c.group.Options))
	for i, opt := range c.group.Options {
		if _, dup := index[opt.ID]; !dup {
			index[opt.ID] = i
		}
	}
	adj := make([][]int, len(c.group.Options))
	for i, opt := range c.group.Options {
		for _, id := range targets(opt) {
			if j, ok := index[strings.TrimSpace(id)]; ok && !slices.Contains(adj[i], j) {
				adj[i] = append(adj[i], j)
			}
		}
	}
	return adj
}

func (c *checker) names(scc []int) []string {
	sorted := slices.Clone(scc)
	slices.Sort(sorted)
	out := make([]string, len(sorted))
	for i, idx := range sorted {
		out[i] = c.group.Options[idx].ID
	}
	return out
}

// tarjanSCC returns strongly connected components using Tarjan's algorithm.
func tarjanSCC(adj [][]int) [][]int {
	n := len(adj)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	defined := make([]bool, n)
	stack := make([]int, 0, n)
	var sccs [][]int
	counter := 0

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		defined[v] = true
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if !defined[w] {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range n {
		if !defined[v] {
			strongConnect(v)
		}
	}
	return sccs
}

func joinArrow(parts []string) string {
	return strings.Join(parts, " -> ")
}
