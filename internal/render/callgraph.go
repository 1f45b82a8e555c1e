package render

import (
	"fmt"
	"sort"
	"strings"

	"dexspect/internal/callgraph"
	"dexspect/internal/dalvik"
)

// edgeColor returns the DOT color for an invoke kind.
func edgeColor(k dalvik.Kind, t Theme) string {
	switch k {
	case dalvik.KindInvokeVirtual:
		return t.EdgeVirtual
	case dalvik.KindInvokeInterface:
		return t.EdgeInterface
	case dalvik.KindInvokeSuper:
		return t.EdgeSuper
	case dalvik.KindInvokeDirect:
		return t.EdgeDirect
	case dalvik.KindInvokeStatic:
		return t.EdgeStatic
	}
	return t.EdgeOther
}

// edgeStyle returns the DOT style for an invoke kind. Dispatched calls
// are dotted since the runtime target may be an override.
func edgeStyle(k dalvik.Kind) string {
	switch k {
	case dalvik.KindInvokeVirtual, dalvik.KindInvokeInterface:
		return "dotted"
	case dalvik.KindInvokeDirect, dalvik.KindInvokeStatic, dalvik.KindInvokeSuper:
		return "solid"
	}
	return "dashed"
}

type edgeKey struct {
	from, to string
	kind     dalvik.Kind
}

// CallgraphDOT renders a method call graph as DOT. Methods are grouped
// into one cluster per owner class. Targets outside the program are
// plaintext nodes. maxNodes limits the methods rendered (0 = all).
func CallgraphDOT(funcs []callgraph.FuncInfo, title string, t Theme, maxNodes int) string {
	counts := make(map[edgeKey]int)
	refNodes := make(map[string]bool)
	for _, f := range funcs {
		for _, e := range f.CallEdges {
			counts[edgeKey{f.Name, e.Callee, e.Kind}]++
			refNodes[f.Name] = true
			refNodes[e.Callee] = true
		}
	}

	// Only methods that take part in an edge are drawn.
	var rendered []callgraph.FuncInfo
	for _, f := range funcs {
		if refNodes[f.Name] {
			rendered = append(rendered, f)
		}
	}
	if maxNodes > 0 && len(rendered) > maxNodes {
		rendered = rendered[:maxNodes]
	}
	funcSet := make(map[string]bool, len(rendered))
	for _, f := range rendered {
		funcSet[f.Name] = true
	}
	known := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		known[f.Name] = true
	}

	external := make(map[string]bool)
	for k := range counts {
		if funcSet[k.from] && !funcSet[k.to] {
			external[k.to] = true
		}
	}

	ownerFuncs := make(map[string][]callgraph.FuncInfo)
	var owners []string
	for _, f := range rendered {
		if _, ok := ownerFuncs[f.Owner]; !ok {
			owners = append(owners, f.Owner)
		}
		ownerFuncs[f.Owner] = append(ownerFuncs[f.Owner], f)
	}

	var b strings.Builder
	writeHeader(&b, "callgraph", title, t, 9)

	var loose []callgraph.FuncInfo
	for _, owner := range owners {
		members := ownerFuncs[owner]
		if len(members) < 2 {
			loose = append(loose, members...)
			continue
		}
		fmt.Fprintf(&b, "  subgraph %s {\n", "cluster_"+dotID(owner))
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(owner))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, f := range members {
			fmt.Fprintf(&b, "    %s [label=%q];\n", dotID(f.Name), truncLabel(stripOwner(f.Name, owner), 50))
		}
		b.WriteString("  }\n")
	}
	for _, f := range loose {
		fmt.Fprintf(&b, "  %s [label=%q];\n", dotID(f.Name), truncLabel(f.Name, 60))
	}
	b.WriteByte('\n')

	for _, name := range sortedKeys(external) {
		dim := ""
		if !known[name] {
			dim = fmt.Sprintf(", fontcolor=%q", t.ExternalText)
		}
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontsize=8%s];\n",
			dotID(name), truncLabel(name, 50), dim)
	}
	b.WriteByte('\n')

	for _, k := range sortedEdges(counts) {
		if !funcSet[k.from] {
			continue
		}
		n := counts[k]
		color := edgeColor(k.kind, t)
		attrs := fmt.Sprintf("color=%q, style=%q", color, edgeStyle(k.kind))
		if n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
			if n > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", color, n)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(k.from), dotID(k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedEdges(m map[edgeKey]int) []edgeKey {
	out := make([]edgeKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].from != out[j].from {
			return out[i].from < out[j].from
		}
		if out[i].to != out[j].to {
			return out[i].to < out[j].to
		}
		return out[i].kind < out[j].kind
	})
	return out
}

// Stats summarizes a collected call graph.
type Stats struct {
	TotalMethods  int
	TotalEdges    int
	InternalEdges int
	ExternalEdges int
	UniqueOwners  int
	StringRefs    int
	KindCounts    map[string]int
	TopCallers    []NameCount // sorted desc
	TopCallees    []NameCount // sorted desc
	TopOwners     []NameCount // sorted desc by method count
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string
	Count int
}

// ComputeStats computes call graph statistics.
func ComputeStats(funcs []callgraph.FuncInfo) Stats {
	stats := Stats{
		TotalMethods: len(funcs),
		KindCounts:   make(map[string]int),
	}
	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	ownerCount := make(map[string]int)
	for _, f := range funcs {
		ownerCount[f.Owner]++
		stats.StringRefs += len(f.Strings)
		for _, e := range f.CallEdges {
			stats.TotalEdges++
			stats.KindCounts[e.Kind.String()]++
			callerCount[f.Name]++
			calleeCount[e.Callee]++
			if e.Internal {
				stats.InternalEdges++
			} else {
				stats.ExternalEdges++
			}
		}
	}
	stats.UniqueOwners = len(ownerCount)
	stats.TopCallers = topN(callerCount, 20)
	stats.TopCallees = topN(calleeCount, 20)
	stats.TopOwners = topN(ownerCount, 30)
	return stats
}

// topN returns the n largest entries, ties broken by name.
func topN(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
