package render

import (
	"fmt"
	"sort"
	"strings"

	"dexspect/internal/callgraph"
)

// FindEntryPoints returns methods that no internal call site targets.
// Class initializers are always included since the runtime invokes them.
func FindEntryPoints(funcs []callgraph.FuncInfo) []string {
	targets := make(map[string]bool)
	for _, f := range funcs {
		for _, e := range f.CallEdges {
			if e.Internal {
				targets[e.Callee] = true
			}
		}
	}
	var entries []string
	for _, f := range funcs {
		if !targets[f.Name] || strings.Contains(f.Name, ".<clinit>(") {
			entries = append(entries, f.Name)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet performs BFS from entry points along internal call edges
// and returns every reachable method.
func ReachableSet(entryPoints []string, funcs []callgraph.FuncInfo) map[string]bool {
	adj := make(map[string][]string)
	for _, f := range funcs {
		for _, e := range f.CallEdges {
			if e.Internal {
				adj[f.Name] = append(adj[f.Name], e.Callee)
			}
		}
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}
	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ReachabilityDOT renders the internal call graph restricted to the
// reachable set, with entry points highlighted.
func ReachabilityDOT(funcs []callgraph.FuncInfo, reachable map[string]bool, entryPoints []string, title string, t Theme) string {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		entrySet[ep] = true
	}
	owner := make(map[string]string, len(funcs))
	for _, f := range funcs {
		owner[f.Name] = f.Owner
	}

	type edge struct{ from, to string }
	counts := make(map[edge]int)
	nodes := make(map[string]bool)
	for _, f := range funcs {
		for _, e := range f.CallEdges {
			if !e.Internal || !reachable[f.Name] || !reachable[e.Callee] {
				continue
			}
			counts[edge{f.Name, e.Callee}]++
			nodes[f.Name] = true
			nodes[e.Callee] = true
		}
	}
	for _, ep := range entryPoints {
		nodes[ep] = true
	}

	ownerFuncs := make(map[string][]string)
	for name := range nodes {
		ownerFuncs[owner[name]] = append(ownerFuncs[owner[name]], name)
	}

	var b strings.Builder
	writeHeader(&b, "reachable", title, t, 9)

	writeNode := func(indent, name, label string) {
		if entrySet[name] {
			fmt.Fprintf(&b, "%s%s [label=%q, penwidth=1.5, color=%q];\n", indent, dotID(name), label, t.EntryBorder)
		} else {
			fmt.Fprintf(&b, "%s%s [label=%q];\n", indent, dotID(name), label)
		}
	}

	var loose []string
	owners := make([]string, 0, len(ownerFuncs))
	for o := range ownerFuncs {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	for _, o := range owners {
		names := ownerFuncs[o]
		if len(names) < 2 {
			loose = append(loose, names...)
			continue
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "  subgraph %s {\n", "cluster_"+dotID(o))
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n", t.ClusterLabel, dotEscape(o))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, name := range names {
			writeNode("    ", name, truncLabel(stripOwner(name, o), 50))
		}
		b.WriteString("  }\n")
	}
	sort.Strings(loose)
	for _, name := range loose {
		writeNode("  ", name, truncLabel(name, 50))
	}
	b.WriteByte('\n')

	edges := make([]edge, 0, len(counts))
	for e := range counts {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})
	for _, e := range edges {
		attrs := fmt.Sprintf("color=%q", t.EdgeDirect)
		if n := counts[e]; n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(e.from), dotID(e.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
