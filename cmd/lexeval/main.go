package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ttrsuite/lexeval/internal/config"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
	stdoutWriter io.Writer = os.Stdout
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:           "lexeval",
		Short:         "Run legal-reasoning benchmarks against local and hosted models",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "path to config file")

	root.AddCommand(newRunCmd(st))
	root.AddCommand(newConsolidateCmd(st))
	root.AddCommand(newListCmd(st))
	return root
}

// loadConfig reads the configured file, or falls back to the built-in
// catalog when no file was given and none exists at the default path.
func loadConfig(st *cliState) (*config.Config, error) {
	if st.cfg != nil {
		return st.cfg, nil
	}
	path := st.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			st.cfg = config.Default()
			return st.cfg, nil
		}
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	st.cfg = cfg
	return cfg, nil
}
