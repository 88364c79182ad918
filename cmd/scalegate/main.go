// Package main is the entry point for the scalegate CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/gateway"
	"github.com/flemzord/scalegate/internal/security"
	"github.com/flemzord/scalegate/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func (g *globalFlags) runParams() app.RunParams {
	return app.RunParams{
		ConfigPath: g.configPath,
		DataDir:    g.dataDir,
		LogLevel:   g.logLevel,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "scalegate",
		Short:         "Conversational front end for IBM Storage Scale with risk-tiered tool access",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Persistent data directory")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		serveCmd(g),
		askCmd(g),
		chatCmd(g),
		classifyCmd(g),
		toolsCmd(),
		auditCmd(g),
		configCmd(g),
		serviceCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scalegate %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start scalegate with all configured modules",
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run(g.runParams())
		},
	}
}

// openRuntime loads the configuration and wires a started pipeline for
// one-shot commands. The HTTP gateway is never loaded. CLI commands log at
// warn unless --log-level says otherwise.
func openRuntime(g *globalFlags) (*app.Runtime, error) {
	cfg, cfgPath, err := app.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Log.Level = "warn"
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	redactor := security.NewRedactor()
	rt, err := app.Build(cfg, app.Options{
		Logger:     app.NewLogger(os.Stderr, cfg.Log, redactor),
		Redactor:   redactor,
		DataDir:    g.dataDir,
		ConfigPath: cfgPath,
		Exclude:    []string{gateway.ModuleID},
	})
	if err != nil {
		return nil, err
	}
	if err := rt.App.Start(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
