package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docsum/internal/config"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	root := &cobra.Command{
		Use:           "docsum",
		Short:         "Summarize documents section by section",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (uses ./config.yaml or ~/.config/docsum/config.yaml if not provided)")

	loadConfig := func() (*config.AppConfig, error) {
		var cfg *config.AppConfig
		var err error
		if cfgPath == "" {
			cfg, _, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(cfgPath)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		summarizeCmd(loadConfig),
		batchCmd(loadConfig),
		watchCmd(loadConfig),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
