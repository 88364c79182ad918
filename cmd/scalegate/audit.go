package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/flemzord/scalegate/internal/gate"
	auditsqlite "github.com/flemzord/scalegate/modules/audit/sqlite"
	"github.com/flemzord/scalegate/pkg/app"
	"github.com/spf13/cobra"
)

func auditCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect resolved confirmations",
	}
	cmd.AddCommand(auditListCmd(g))
	return cmd
}

func auditListCmd(g *globalFlags) *cobra.Command {
	var (
		dbPath  string
		session string
		status  string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List confirmations recorded by the audit.sqlite module, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				resolved, err := auditDBPath(g)
				if err != nil {
					return err
				}
				dbPath = resolved
			}

			ctx := commandContext(cmd)
			store, err := auditsqlite.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // read-only

			list, err := store.List(ctx, auditsqlite.Filter{
				SessionID: session,
				Status:    gate.Status(strings.ToUpper(status)),
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No confirmations recorded.")
				return nil
			}
			now := time.Now()
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "SESSION", "TOOL", "TIER", "STATUS", "REQUESTED", "RESOLVED")
			for _, c := range list {
				resolved := "-"
				if !c.ResolvedAt.IsZero() {
					resolved = humanize.RelTime(c.ResolvedAt, now, "ago", "from now")
				}
				t.Row(c.ID, c.SessionID, c.Tool, c.Tier.String(), string(c.Status),
					humanize.RelTime(c.CreatedAt, now, "ago", "from now"), resolved)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Audit database (default: modules.audit.sqlite.path, else {data-dir}/audit.db)")
	cmd.Flags().StringVar(&session, "session", "", "Only this session")
	cmd.Flags().StringVar(&status, "status", "", "Only this status (CONFIRMED, REJECTED, EXPIRED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (default 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// auditDBPath finds the database the audit.sqlite module writes to.
func auditDBPath(g *globalFlags) (string, error) {
	cfg, _, err := app.LoadConfig(g.configPath)
	if err != nil {
		return "", err
	}
	if node, ok := cfg.Modules["audit.sqlite"]; ok {
		var mc auditsqlite.Config
		if err := node.Decode(&mc); err != nil {
			return "", fmt.Errorf("decoding modules.audit.sqlite: %w", err)
		}
		if mc.Path != "" {
			return mc.Path, nil
		}
	}
	dataDir := g.dataDir
	if dataDir == "" {
		dataDir = app.DefaultDataDir()
	}
	return filepath.Join(dataDir, auditsqlite.DefaultDBFile), nil
}
