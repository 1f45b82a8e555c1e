package signal

import (
	"sort"

	"github.com/emirpasic/gods/sets/treeset"

	"dexspect/internal/callgraph"
)

// StringRef is a classified const-string operand.
type StringRef struct {
	Offset     uint32   `json:"offset"`
	Value      string   `json:"value"`
	Categories []string `json:"categories"`
}

// APICall is a call into a platform class that carries a category.
type APICall struct {
	Offset   uint32 `json:"offset"`
	Callee   string `json:"callee"`
	Category string `json:"category"`
}

// Func is one method of the signal graph.
type Func struct {
	Name         string      `json:"name"`
	Owner        string      `json:"owner,omitempty"`
	StringRefs   []StringRef `json:"string_refs,omitempty"`
	APICalls     []APICall   `json:"api_calls,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
	Severity     string      `json:"severity,omitempty"`
	Role         string      `json:"role,omitempty"` // "signal", "context" or ""
	IsEntryPoint bool        `json:"is_entry_point,omitempty"`
}

// Edge is a deduplicated call between two methods of the program.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the signal graph.
type Graph struct {
	Funcs []Func `json:"funcs"`
	Edges []Edge `json:"edges"`
	Stats Stats  `json:"stats"`
}

// Stats summarizes a signal graph.
type Stats struct {
	TotalFuncs   int            `json:"total_funcs"`
	SignalFuncs  int            `json:"signal_funcs"`
	ContextFuncs int            `json:"context_funcs"`
	TotalEdges   int            `json:"total_edges"`
	StringRefs   int            `json:"string_refs"`
	Categories   map[string]int `json:"categories"` // methods per category
}

// Build classifies every method and expands k call hops in both
// directions from the signal methods to mark their context.
// entryPoints may be nil.
func Build(funcs []callgraph.FuncInfo, k int, entryPoints map[string]bool) *Graph {
	g := &Graph{Stats: Stats{TotalFuncs: len(funcs), Categories: make(map[string]int)}}

	signalSet := make(map[string]bool)
	fwd := make(map[string][]string)
	rev := make(map[string][]string)
	seenEdge := make(map[Edge]bool)

	for _, f := range funcs {
		sf := Func{Name: f.Name, Owner: f.Owner, IsEntryPoint: entryPoints[f.Name]}
		cats := treeset.NewWithStringComparator()

		offs := make([]uint32, 0, len(f.Strings))
		for off := range f.Strings {
			offs = append(offs, off)
		}
		sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
		for _, off := range offs {
			g.Stats.StringRefs++
			sc := ClassifyString(f.Strings[off])
			if len(sc) == 0 {
				continue
			}
			sf.StringRefs = append(sf.StringRefs, StringRef{Offset: off, Value: f.Strings[off], Categories: sc})
			for _, c := range sc {
				cats.Add(c)
			}
		}

		for _, e := range f.CallEdges {
			if e.Internal {
				edge := Edge{From: f.Name, To: e.Callee}
				if !seenEdge[edge] {
					seenEdge[edge] = true
					g.Edges = append(g.Edges, edge)
					fwd[edge.From] = append(fwd[edge.From], edge.To)
					rev[edge.To] = append(rev[edge.To], edge.From)
				}
				continue
			}
			if c := ClassifyCallee(e.Owner); c != "" {
				sf.APICalls = append(sf.APICalls, APICall{Offset: e.Offset, Callee: e.Callee, Category: c})
				cats.Add(c)
			}
		}

		if !cats.Empty() {
			for _, v := range cats.Values() {
				c := v.(string)
				sf.Categories = append(sf.Categories, c)
				g.Stats.Categories[c]++
			}
			sf.Severity = MaxSeverity(sf.Categories)
			sf.Role = "signal"
			signalSet[f.Name] = true
		}
		g.Funcs = append(g.Funcs, sf)
	}

	context := expand(signalSet, fwd, rev, k)
	for i := range g.Funcs {
		if g.Funcs[i].Role == "" && context[g.Funcs[i].Name] {
			g.Funcs[i].Role = "context"
		}
	}

	sortFuncs(g.Funcs)
	g.Stats.SignalFuncs = len(signalSet)
	g.Stats.ContextFuncs = len(context)
	g.Stats.TotalEdges = len(g.Edges)
	return g
}

// expand walks up to k hops from the seeds over forward and reverse
// edges and returns the methods reached that are not seeds.
func expand(seeds map[string]bool, fwd, rev map[string][]string, k int) map[string]bool {
	type item struct {
		name  string
		depth int
	}
	visited := make(map[string]bool, len(seeds))
	queue := make([]item, 0, len(seeds))
	for name := range seeds {
		visited[name] = true
		queue = append(queue, item{name, 0})
	}
	reached := make(map[string]bool)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if it.depth >= k {
			continue
		}
		for _, adj := range [][]string{fwd[it.name], rev[it.name]} {
			for _, next := range adj {
				if visited[next] {
					continue
				}
				visited[next] = true
				reached[next] = true
				queue = append(queue, item{next, it.depth + 1})
			}
		}
	}
	return reached
}

// sortFuncs orders signal before context before the rest. Signal
// methods put entry points first, then higher severity, then more
// categories.
func sortFuncs(funcs []Func) {
	roleOrd := map[string]int{"signal": 0, "context": 1, "": 2}
	sevOrd := map[string]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2, "": 3}
	sort.SliceStable(funcs, func(i, j int) bool {
		a, b := &funcs[i], &funcs[j]
		if a.Role != b.Role {
			return roleOrd[a.Role] < roleOrd[b.Role]
		}
		if a.Role == "signal" && a.IsEntryPoint != b.IsEntryPoint {
			return a.IsEntryPoint
		}
		if a.Severity != b.Severity {
			return sevOrd[a.Severity] < sevOrd[b.Severity]
		}
		if len(a.Categories) != len(b.Categories) {
			return len(a.Categories) > len(b.Categories)
		}
		return a.Name < b.Name
	})
}
