package main

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dexspect/internal/callgraph"
	"dexspect/internal/inspect"
	"dexspect/internal/output"
)

var colorHeader = color.New(color.FgCyan).SprintFunc()

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <input>...",
		Short: "Disassemble a class under its original and final names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			className, _ := cmd.Flags().GetString("class")
			methodName, _ := cmd.Flags().GetString("method")
			outDir, _ := cmd.Flags().GetString("out")
			if className == "" {
				return fmt.Errorf("--class is required")
			}

			in, err := openInspector(args)
			if err != nil {
				return err
			}
			c := in.Class(className)
			if !c.Present() {
				return fmt.Errorf("class %s not found", className)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, colorHeader(c.String()))
			annotate := output.OriginalNames(in)
			n := 0
			for _, m := range c.Methods() {
				if methodName != "" && m.OriginalName() != methodName && m.FinalName() != methodName {
					continue
				}
				n++
				text := output.FormatMethod(m, annotate)
				if outDir != "" {
					name := callgraph.Label(c.OriginalName(), m.OriginalSignature())
					if err := output.WriteASM(outDir, name, text); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(w, text)
			}
			if n == 0 && methodName != "" {
				return fmt.Errorf("method %s not found in %s; methods:\n  %s",
					methodName, c.OriginalName(), strings.Join(methodList(c), "\n  "))
			}
			log.WithFields(log.Fields{"class": c.OriginalName(), "methods": n}).Debug("dump")
			return nil
		},
	}
	cmd.Flags().StringP("class", "c", "", "class to dump, by original or final name")
	cmd.Flags().String("method", "", "only dump methods with this original or final name")
	cmd.Flags().StringP("out", "o", "", "write listings to <dir>/asm instead of stdout")
	return cmd
}

func methodList(c inspect.ClassSubject) []string {
	var names []string
	for _, m := range c.Methods() {
		names = append(names, m.String())
	}
	return names
}
