package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	latticerender "github.com/zboralski/lattice/render"

	"dexspect/internal/callgraph"
	"dexspect/internal/dalvik"
	"dexspect/internal/output"
	"dexspect/internal/render"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <input>...",
		Short: "Write call graph, class graph and CFG DOT files under original names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")
			maxNodes, _ := cmd.Flags().GetInt("max-nodes")
			withCFG, _ := cmd.Flags().GetBool("cfg")
			summary, _ := cmd.Flags().GetBool("summary")
			external, _ := cmd.Flags().GetBool("external")
			if outDir == "" {
				return fmt.Errorf("--out is required")
			}

			in, err := openInspector(args)
			if err != nil {
				return err
			}
			funcs := callgraph.Collect(in)
			log.WithField("methods", len(funcs)).Debug("graph: collected")

			docs := []struct{ name, dot string }{
				{"callgraph", render.CallgraphDOT(funcs, title, render.NASA, maxNodes)},
				{"classgraph", render.ClassgraphDOT(funcs, title+" (class level)", render.NASA, maxNodes, external)},
				{"lattice", latticerender.DOT(callgraph.BuildCallGraph(funcs), title)},
			}
			entries := render.FindEntryPoints(funcs)
			reachable := render.ReachableSet(entries, funcs)
			docs = append(docs, struct{ name, dot string }{
				"reachable", render.ReachabilityDOT(funcs, reachable, entries, title+" (reachable)", render.NASA),
			})
			if withCFG {
				docs = append(docs, struct{ name, dot string }{
					"cfg", latticerender.DOTCFG(callgraph.BuildCFG(funcs), title+" (cfg)"),
				})
			}
			if summary {
				sg := &lattice.CFGGraph{}
				for _, f := range funcs {
					sg.Funcs = append(sg.Funcs, callgraph.BuildSummaryCFG(f))
				}
				docs = append(docs, struct{ name, dot string }{
					"summary", latticerender.DOTCFG(sg, title+" (summary)"),
				})
			}
			for _, d := range docs {
				if err := output.WriteDOT(outDir, d.name, d.dot); err != nil {
					return err
				}
				log.Infof("wrote %s (%s)", filepath.Join(outDir, d.name+".dot"), humanize.Bytes(uint64(len(d.dot))))
			}

			if withCFG {
				n, err := writeMethodCFGs(outDir, funcs)
				if err != nil {
					return err
				}
				log.Infof("wrote %d per-method CFGs to %s", n, filepath.Join(outDir, "cfg"))
			}

			printStats(cmd.OutOrStdout(), render.ComputeStats(funcs), len(entries), len(reachable))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output directory for DOT files")
	cmd.Flags().String("title", "dexspect", "graph title")
	cmd.Flags().Int("max-nodes", 0, "max method nodes in the call graph (0 = all)")
	cmd.Flags().Bool("cfg", false, "also write cfg.dot and per-method CFGs under cfg/")
	cmd.Flags().Bool("summary", false, "also write summary.dot: one block of calls and strings per method")
	cmd.Flags().Bool("external", false, "include library classes in the class graph")
	return cmd
}

// writeMethodCFGs writes cfg/<method>.dot for every method with more
// than one basic block.
func writeMethodCFGs(outDir string, funcs []callgraph.FuncInfo) (int, error) {
	n := 0
	for _, f := range funcs {
		cfg := dalvik.BuildCFG(f.Name, f.Insts)
		if len(cfg.Blocks) < 2 {
			continue
		}
		if err := output.WriteDOT(outDir, filepath.Join("cfg", output.FileName(f.Name)), render.CFGDOT(cfg, render.NASA)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func printStats(w io.Writer, s render.Stats, entries, reachable int) {
	fmt.Fprintf(w, "methods:   %s\n", humanize.Comma(int64(s.TotalMethods)))
	fmt.Fprintf(w, "edges:     %s (%s internal, %s external)\n",
		humanize.Comma(int64(s.TotalEdges)), humanize.Comma(int64(s.InternalEdges)), humanize.Comma(int64(s.ExternalEdges)))
	fmt.Fprintf(w, "owners:    %d\n", s.UniqueOwners)
	fmt.Fprintf(w, "strings:   %d\n", s.StringRefs)
	fmt.Fprintf(w, "reachable: %d from %d entry points\n", reachable, entries)
	if len(s.TopCallees) > 0 {
		fmt.Fprintln(w, "top callees:")
		for _, nc := range s.TopCallees {
			fmt.Fprintf(w, "  %5d  %s\n", nc.Count, nc.Name)
		}
	}
}
