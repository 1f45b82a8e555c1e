package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dexspect/internal/inspect"
	"dexspect/internal/output"
)

var (
	colorName    = color.New(color.Bold).SprintFunc()
	colorRenamed = color.New(color.FgYellow).SprintFunc()
	colorFaint   = color.New(color.Faint).SprintFunc()
)

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes <input>...",
		Short: "List classes with original and final names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			asYAML, _ := cmd.Flags().GetBool("yaml")
			outDir, _ := cmd.Flags().GetString("out")
			if asJSON && asYAML {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}

			in, err := openInspector(args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			switch {
			case outDir != "" && asYAML:
				return output.WriteClassesYAML(outDir, output.Classes(in))
			case outDir != "":
				return output.WriteClassesJSON(outDir, output.Classes(in))
			case asJSON:
				return output.EncodeJSON(w, output.Classes(in))
			case asYAML:
				return output.EncodeYAML(w, output.Classes(in))
			}
			printClasses(w, in)
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cmd.Flags().BoolP("yaml", "y", false, "Output as YAML")
	cmd.Flags().StringP("out", "o", "", "Write classes.json (or classes.yaml) to this directory")
	return cmd
}

func printClasses(w io.Writer, in *inspect.Inspector) {
	for _, f := range in.Program().Files() {
		fmt.Fprintf(w, "%s  dex %s  %s  %s classes  %s methods\n",
			colorName(f.Name), f.Version, humanize.Bytes(uint64(f.Size)),
			humanize.Comma(int64(f.Classes)), humanize.Comma(int64(f.Methods)))
	}
	renamed := 0
	in.AllClasses(func(c inspect.ClassSubject) {
		name := c.OriginalName()
		if c.Renamed() {
			renamed++
			name = colorRenamed(name) + colorFaint(" <- "+c.FinalName())
		}
		fmt.Fprintf(w, "%s  fields=%d methods=%d\n", name, len(c.Fields()), len(c.Methods()))
	})
	if table := in.Mapping(); table != nil {
		fmt.Fprintf(w, "%d of %d classes renamed, %s mapping entries\n",
			renamed, len(in.Classes()), humanize.Comma(int64(table.Len())))
	}
}
