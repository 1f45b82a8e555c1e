package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dexspect/internal/callgraph"
	"dexspect/internal/output"
	"dexspect/internal/render"
	"dexspect/internal/signal"
)

var colorHigh = color.New(color.FgRed, color.Bold).SprintFunc()

func newSignalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal <input>...",
		Short: "Flag methods with security-relevant strings or platform calls",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			asJSON, _ := cmd.Flags().GetBool("json")
			outDir, _ := cmd.Flags().GetString("out")

			in, err := openInspector(args)
			if err != nil {
				return err
			}
			funcs := callgraph.Collect(in)
			entries := make(map[string]bool)
			for _, e := range render.FindEntryPoints(funcs) {
				entries[e] = true
			}
			g := signal.Build(funcs, k, entries)
			log.WithFields(log.Fields{
				"signal":  g.Stats.SignalFuncs,
				"context": g.Stats.ContextFuncs,
				"edges":   g.Stats.TotalEdges,
			}).Debug("signal: built")

			if outDir != "" {
				path := filepath.Join(outDir, "signal.json")
				if err := output.WriteJSON(path, g); err != nil {
					return err
				}
				log.Infof("wrote %s", path)
			}
			if asJSON {
				return output.EncodeJSON(cmd.OutOrStdout(), g)
			}
			printSignal(cmd.OutOrStdout(), g)
			return nil
		},
	}
	cmd.Flags().Int("k", 2, "context hops around each signal method")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cmd.Flags().StringP("out", "o", "", "also write signal.json to this directory")
	return cmd
}

func printSignal(w io.Writer, g *signal.Graph) {
	fmt.Fprintf(w, "%d signal, %d context of %d methods\n",
		g.Stats.SignalFuncs, g.Stats.ContextFuncs, g.Stats.TotalFuncs)
	for _, f := range g.Funcs {
		if f.Role != "signal" {
			break
		}
		sev := f.Severity
		if sev == signal.SeverityHigh {
			sev = colorHigh(sev)
		}
		entry := ""
		if f.IsEntryPoint {
			entry = colorFaint(" (entry)")
		}
		fmt.Fprintf(w, "%-6s %s%s  [%s]\n", sev, colorName(f.Name), entry, strings.Join(f.Categories, ","))
		for _, s := range f.StringRefs {
			fmt.Fprintf(w, "         %04x %q\n", s.Offset, s.Value)
		}
		for _, c := range f.APICalls {
			fmt.Fprintf(w, "         %04x %s\n", c.Offset, c.Callee)
		}
	}
}
