package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/strata/pkg/document"
	"github.com/openfroyo/strata/pkg/refs"
)

// Edge is one reference from the scalar at Owner to the value at
// Target.
type Edge struct {
	Owner  string `json:"owner"`
	Target string `json:"target"`
}

// Graph is the reference dependency graph of a merged document. Nodes
// are dotted paths: every scalar that holds a reference and every path
// referenced by one. Building the graph verifies that each reference
// either has a target or a default, and that no chain of references
// returns to itself.
//
// All iteration orders are lexicographic, so the same document always
// produces the same graph, the same levels, and the same error.
type Graph struct {
	nodes map[string]bool
	edges []Edge

	// dependencies holds the direct reference targets per owner.
	dependencies map[string][]string

	// order extends dependencies with containment edges: a mapping or
	// sequence target waits on every reference-bearing path inside
	// it, since its value is complete only once those resolve. Cycle
	// detection and leveling run over this adjacency.
	order map[string][]string

	dependents map[string][]string
	inDegree   map[string]int
	levels     [][]string

	refCount     int
	defaultCount int
}

// scalarRef is one parsed reference together with the path of the
// scalar that holds it.
type scalarRef struct {
	owner string
	ref   refs.Ref
}

// BuildGraph scans doc for references and assembles the dependency
// graph. It fails with a malformed reference error if any scalar does
// not parse, an unresolved reference error if a reference has neither
// target nor default, and a cycle error naming the full chain if the
// references are circular.
func BuildGraph(doc *document.Map) (*Graph, error) {
	g := &Graph{
		nodes:        make(map[string]bool),
		dependencies: make(map[string][]string),
		order:        make(map[string][]string),
		dependents:   make(map[string][]string),
		inDegree:     make(map[string]int),
	}

	scalarRefs, err := scanReferences(doc)
	if err != nil {
		return nil, err
	}
	if err := g.initialize(doc, scalarRefs); err != nil {
		return nil, err
	}
	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	if err := g.computeLevels(); err != nil {
		return nil, err
	}
	return g, nil
}

// scanReferences walks doc in document order and parses every scalar
// that contains a reference.
func scanReferences(doc *document.Map) ([]scalarRef, error) {
	var out []scalarRef
	err := document.Walk(doc, func(path document.Path, node any) error {
		text, ok := node.(string)
		if !ok || !refs.Contains(text) {
			return nil
		}
		parsed, err := refs.Parse(text)
		if err != nil {
			return NewError(KindMalformedReference, "reference does not parse", err).
				WithPath(path.String())
		}
		for _, ref := range parsed {
			out = append(out, scalarRef{owner: path.String(), ref: ref})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Graph) initialize(doc *document.Map, scalarRefs []scalarRef) error {
	owners := make(map[string]bool)
	for _, sr := range scalarRefs {
		owners[sr.owner] = true
	}

	seenEdge := make(map[Edge]bool)
	seenOrder := make(map[Edge]bool)
	targets := make(map[string]bool)

	addOrder := func(from, to string) {
		e := Edge{Owner: from, Target: to}
		if seenOrder[e] {
			return
		}
		seenOrder[e] = true
		g.order[from] = append(g.order[from], to)
		g.dependents[to] = append(g.dependents[to], from)
		g.inDegree[from]++
	}

	for _, sr := range scalarRefs {
		g.nodes[sr.owner] = true
		g.refCount++

		target := sr.ref.Path.String()
		if _, ok := document.Lookup(doc, sr.ref.Path); !ok {
			if sr.ref.HasDefault {
				// Absent target with a default resolves locally and
				// contributes no edge.
				g.defaultCount++
				continue
			}
			return NewError(KindUnresolvedReference,
				fmt.Sprintf("reference %q has no target and no default", target), nil).
				WithPath(sr.owner).
				WithTarget(target)
		}
		g.nodes[target] = true
		targets[target] = true

		e := Edge{Owner: sr.owner, Target: target}
		if !seenEdge[e] {
			seenEdge[e] = true
			g.edges = append(g.edges, e)
			g.dependencies[sr.owner] = append(g.dependencies[sr.owner], target)
		}
		addOrder(sr.owner, target)
	}

	for _, target := range sortedKeys(targets) {
		prefix := target + "."
		for _, owner := range sortedKeys(owners) {
			if strings.HasPrefix(owner, prefix) {
				addOrder(target, owner)
			}
		}
	}

	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].Owner != g.edges[j].Owner {
			return g.edges[i].Owner < g.edges[j].Owner
		}
		return g.edges[i].Target < g.edges[j].Target
	})
	for _, adj := range []map[string][]string{g.dependencies, g.order, g.dependents} {
		for _, list := range adj {
			sort.Strings(list)
		}
	}
	return nil
}

// detectCycles runs a depth-first search over the order adjacency and
// reports the first cycle found, as a chain in reference direction
// from the entry node back to itself.
func (g *Graph) detectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var visit func(node string, path []string) error
	visit = func(node string, path []string) error {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, dep := range g.order[node] {
			if !visited[dep] {
				if err := visit(dep, path); err != nil {
					return err
				}
			} else if recStack[dep] {
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				chain := append([]string(nil), path[start:]...)
				chain = append(chain, dep)
				return NewError(KindCycle, "circular reference chain", nil).
					WithPath(dep).
					WithCycle(chain)
			}
		}

		recStack[node] = false
		return nil
	}

	for _, node := range sortedKeys(g.nodes) {
		if !visited[node] {
			if err := visit(node, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeLevels groups nodes into resolution waves: every node in a
// level depends only on nodes in earlier levels.
func (g *Graph) computeLevels() error {
	inDegree := make(map[string]int, len(g.nodes))
	for node := range g.nodes {
		inDegree[node] = g.inDegree[node]
	}

	var current []string
	for node, deg := range inDegree {
		if deg == 0 {
			current = append(current, node)
		}
	}
	sort.Strings(current)

	processed := 0
	for len(current) > 0 {
		g.levels = append(g.levels, current)
		processed += len(current)

		var next []string
		for _, node := range current {
			for _, dependent := range g.dependents[node] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if processed != len(g.nodes) {
		return NewError(KindInternal, "graph leveling left nodes unprocessed", nil).
			WithDetail("processed", processed).
			WithDetail("nodes", len(g.nodes))
	}
	return nil
}

// Nodes returns all graph nodes in lexicographic order.
func (g *Graph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// Edges returns all direct reference edges, sorted by owner then
// target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// DependenciesOf returns the direct reference targets of the scalar at
// path, in lexicographic order.
func (g *Graph) DependenciesOf(path string) []string {
	deps := g.dependencies[path]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Levels returns the resolution waves in execution order.
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		out[i] = make([]string, len(level))
		copy(out[i], level)
	}
	return out
}

// TopologicalOrder returns all nodes in one dependency-respecting
// sequence.
func (g *Graph) TopologicalOrder() []string {
	var out []string
	for _, level := range g.levels {
		out = append(out, level...)
	}
	return out
}

// References returns the number of reference occurrences scanned.
func (g *Graph) References() int {
	return g.refCount
}

// DefaultsApplied returns how many references fall back to their
// default because the target is absent.
func (g *Graph) DefaultsApplied() int {
	return g.defaultCount
}

// Depth returns the number of resolution levels.
func (g *Graph) Depth() int {
	return len(g.levels)
}

// ToDOT renders the graph in Graphviz DOT format, with one cluster per
// resolution level. Reference edges are solid, containment edges
// dashed.
func (g *Graph) ToDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph references {\n")
	sb.WriteString("  rankdir=BT;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for i, level := range g.levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		sb.WriteString(fmt.Sprintf("    label=\"level %d\";\n", i))
		sb.WriteString("    style=dashed;\n")
		for _, node := range level {
			color := "lightgreen"
			if len(g.dependencies[node]) > 0 {
				color = "lightblue"
			}
			sb.WriteString(fmt.Sprintf("    %q [fillcolor=%s, style=\"rounded,filled\"];\n", node, color))
		}
		sb.WriteString("  }\n")
	}

	sb.WriteString("\n")
	for _, e := range g.edges {
		sb.WriteString(fmt.Sprintf("  %q -> %q;\n", e.Owner, e.Target))
	}
	for _, from := range sortedKeys(g.order) {
		direct := make(map[string]bool, len(g.dependencies[from]))
		for _, to := range g.dependencies[from] {
			direct[to] = true
		}
		for _, to := range g.order[from] {
			if !direct[to] {
				sb.WriteString(fmt.Sprintf("  %q -> %q [style=dashed];\n", from, to))
			}
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func sortedKeys[V any](set map[string]V) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
