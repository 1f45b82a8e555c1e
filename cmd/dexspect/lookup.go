package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dexspect/internal/mapping"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Translate a class name through the mapping file, in either direction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("mapping")
			if path == "" {
				return fmt.Errorf("--mapping is required")
			}
			table, err := mapping.ParseFile(path)
			if err != nil {
				return err
			}
			c := table.ClassNaming(args[0])
			if c == nil {
				return fmt.Errorf("%s: no mapping entry", args[0])
			}
			printNaming(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func printNaming(w io.Writer, c *mapping.ClassNaming) {
	name := colorName(c.OriginalName)
	if c.IsRenamed() {
		name += " -> " + colorRenamed(c.RenamedName)
	}
	fmt.Fprintln(w, name)
	if c.SourceFile != "" {
		fmt.Fprintf(w, "  %s\n", colorFaint("source "+c.SourceFile))
	}
	for _, m := range c.Members() {
		line := "  " + m.Original.String()
		if m.RenamedName != m.Original.Name {
			line += " -> " + colorRenamed(m.RenamedName)
		}
		for _, r := range m.Ranges {
			line += colorFaint(fmt.Sprintf(" [%d:%d -> %d:%d]", r.ObfStart, r.ObfEnd, r.OrigStart, r.OrigEnd))
		}
		if m.OriginalClass != "" {
			line += colorFaint(" from " + m.OriginalClass)
		}
		fmt.Fprintln(w, line)
		for _, f := range m.Inlined {
			owner := c.OriginalName
			if f.Class != "" {
				owner = f.Class
			}
			fmt.Fprintf(w, "    %s %s.%s\n", colorFaint("inlined"), owner, f.Signature)
		}
	}
}
