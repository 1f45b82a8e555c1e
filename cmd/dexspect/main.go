package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dexspect/internal/dexfmt"
	"dexspect/internal/inspect"
)

func main() {
	log.SetHandler(clihandler.Default)
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Tests build a fresh tree per run.
func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "dexspect",
		Short:         "Inspect compiled Android programs under their original names",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			if viper.GetBool("verbose") {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dexspect/config.yaml)")
	pf.BoolP("verbose", "V", false, "verbose output")
	pf.StringP("mapping", "m", "", "Proguard/R8 mapping file")
	pf.Bool("strict", false, "fail on the first structural error instead of recording a diagnostic")
	viper.BindPFlag("verbose", pf.Lookup("verbose"))
	viper.BindPFlag("mapping", pf.Lookup("mapping"))
	viper.BindPFlag("strict", pf.Lookup("strict"))

	root.AddCommand(newClassesCmd(), newDumpCmd(), newLookupCmd(), newGraphCmd(), newSignalCmd())
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(filepath.Join(home, ".config", "dexspect"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("dexspect")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	log.Debugf("using config file %s", viper.ConfigFileUsed())
	return nil
}

// parseOptions returns the decode options selected by --strict.
func parseOptions() dexfmt.Options {
	opts := dexfmt.Options{Mode: dexfmt.ModeBestEffort}
	if viper.GetBool("strict") {
		opts.Mode = dexfmt.ModeStrict
	}
	return opts
}

// openInspector loads the inputs with the configured mapping and reports
// non-fatal findings at debug level.
func openInspector(inputs []string) (*inspect.Inspector, error) {
	in, err := inspect.Open(inputs, viper.GetString("mapping"), parseOptions())
	if err != nil {
		return nil, err
	}
	diags := in.Program().Diags()
	for _, d := range diags {
		log.Debug(d.String())
	}
	if len(diags) > 0 {
		log.Warnf("%d diagnostics while loading (use -V to list them)", len(diags))
	}
	return in, nil
}
