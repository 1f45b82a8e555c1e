package render

import (
	"fmt"
	"strings"

	"dexspect/internal/dalvik"
)

// maxBlockLines is the number of instructions shown per block before
// the middle is elided.
const maxBlockLines = 12

// CFGDOT renders a per-method basic-block CFG as DOT with the
// disassembly of each block. The entry block is highlighted and
// conditional edges are colored by outcome.
func CFGDOT(cfg dalvik.FuncCFG, t Theme) string {
	if len(cfg.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	b.WriteString("  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(cfg.Name))
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		var lines []string
		end := min(blk.End, len(cfg.Insts))
		for i := blk.Start; i < end; i++ {
			lines = append(lines, dotEscape(cfg.Insts[i].String()))
		}
		if len(lines) > maxBlockLines {
			kept := append(lines[:5:5], fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}
		label := strings.Join(lines, "<br align=\"left\"/>") + "<br align=\"left\"/>"

		attrs := ""
		if blk.IsEntry {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
		}
		if blk.IsTerm {
			attrs += fmt.Sprintf(", fillcolor=%q", t.TermFill)
		}
		fmt.Fprintf(&b, "  bb%d [label=<%s>%s];\n", blk.ID, label, attrs)
	}
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		for _, s := range blk.Succs {
			switch {
			case s.Cond == "T":
				fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>];\n",
					blk.ID, s.BlockID, t.BranchTaken, t.BranchTaken)
			case s.Cond == "F":
				fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>];\n",
					blk.ID, s.BlockID, t.BranchFallout, t.BranchFallout)
			case s.Cond != "":
				fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q, label=<<font point-size=\"7\" color=\"%s\">%s</font>>];\n",
					blk.ID, s.BlockID, t.EdgeStatic, t.ClusterLabel, dotEscape(s.Cond))
			default:
				fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q];\n", blk.ID, s.BlockID, t.EdgeDirect)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
