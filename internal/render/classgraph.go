package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"dexspect/internal/callgraph"
)

// ClassgraphDOT renders a class-level call graph where each class is one
// node and edges aggregate the calls between two classes. Calls into
// classes outside the program count only when external is set. maxNodes
// limits rendered classes (0 = all), keeping the most connected.
func ClassgraphDOT(funcs []callgraph.FuncInfo, title string, t Theme, maxNodes int, external bool) string {
	methodCount := make(map[string]int)
	for _, f := range funcs {
		methodCount[f.Owner]++
	}

	type classEdge struct{ from, to string }
	counts := make(map[classEdge]int)
	for _, f := range funcs {
		for _, e := range f.CallEdges {
			if e.Owner == f.Owner || (!e.Internal && !external) {
				continue
			}
			counts[classEdge{f.Owner, e.Owner}]++
		}
	}

	involvement := make(map[string]int)
	for ce, n := range counts {
		involvement[ce.from] += n
		involvement[ce.to] += n
	}
	ranked := topN(involvement, len(involvement))
	if maxNodes > 0 && len(ranked) > maxNodes {
		ranked = ranked[:maxNodes]
	}
	renderSet := make(map[string]bool, len(ranked))
	maxMethods := 1
	for _, rc := range ranked {
		renderSet[rc.Name] = true
		if c := methodCount[rc.Name]; c > maxMethods {
			maxMethods = c
		}
	}

	var b strings.Builder
	writeHeader(&b, "classgraph", title, t, 10)

	for _, rc := range ranked {
		methods := methodCount[rc.Name]
		// Scale node height by method count (log scale).
		height := 0.4 + 0.3*math.Log2(float64(methods)+1)/math.Log2(float64(maxMethods)+1)
		sub := fmt.Sprintf("%d methods", methods)
		fill := ""
		if methods == 0 {
			sub = "external"
			fill = fmt.Sprintf(", fillcolor=%q", t.ExternalFill)
		}
		label := fmt.Sprintf("<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">%s</font>>",
			dotEscape(simpleName(rc.Name)), t.ExternalText, sub)
		fmt.Fprintf(&b, "  %s [label=%s, tooltip=%q, height=%.2f%s];\n", dotID(rc.Name), label, rc.Name, height, fill)
	}
	b.WriteByte('\n')

	edges := make([]classEdge, 0, len(counts))
	maxCount := 1
	for ce, n := range counts {
		if !renderSet[ce.from] || !renderSet[ce.to] {
			continue
		}
		edges = append(edges, ce)
		if n > maxCount {
			maxCount = n
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})
	for _, ce := range edges {
		n := counts[ce]
		pw := 0.5 + 2.0*math.Log2(float64(n)+1)/math.Log2(float64(maxCount)+1)
		attrs := fmt.Sprintf("penwidth=%.1f", pw)
		if n > 1 {
			attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%d</font>>", t.ExternalText, n)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(ce.from), dotID(ce.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
