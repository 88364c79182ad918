package main

import (
	"fmt"
	"log/slog"

	"github.com/flemzord/scalegate/internal/config"
	"github.com/flemzord/scalegate/internal/security"
	"github.com/flemzord/scalegate/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(g))
	return cmd
}

func configCheckCmd(g *globalFlags) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and load every configured module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg, cfgPath, err := app.LoadConfig(path)
			if err != nil {
				return err
			}

			redactor := security.NewRedactor()
			rt, err := app.Build(cfg, app.Options{
				Logger:     slog.New(slog.DiscardHandler),
				Redactor:   redactor,
				DataDir:    g.dataDir,
				ConfigPath: cfgPath,
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			ids := config.Resolve(cfg)
			fmt.Fprintf(out, "Configuration OK: %s (%d modules)\n", cfgPath, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			if !show {
				return nil
			}

			redacted, err := config.Redacted(cfg, redactor)
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(redacted)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s", raw)
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the effective configuration with secrets redacted")
	return cmd
}
