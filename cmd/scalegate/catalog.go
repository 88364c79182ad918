package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/flemzord/scalegate/internal/format"
	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/policy"
	"github.com/spf13/cobra"
)

type toolRow struct {
	Handler      string          `json:"handler"`
	Tool         string          `json:"tool"`
	Tier         policy.RiskTier `json:"tier"`
	Confirmation string          `json:"confirmation"`
	Description  string          `json:"description"`
}

func catalogRows(reg *policy.Registry) []toolRow {
	var rows []toolRow
	for _, h := range reg.Handlers() {
		for _, id := range h.Tools {
			d, err := reg.Lookup(id)
			if err != nil {
				continue
			}
			conf := "none"
			switch {
			case d.Tier.RequiresAcknowledgement():
				conf = "acknowledge " + d.AcknowledgementPhrase()
			case d.RequiresConfirmation():
				conf = "confirm"
			}
			rows = append(rows, toolRow{
				Handler:      h.ID,
				Tool:         d.ID,
				Tier:         d.Tier,
				Confirmation: conf,
				Description:  d.Description,
			})
		}
	}
	return rows
}

func toolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List handlers, their tools and risk tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := policy.Default()
			if err != nil {
				return err
			}
			rows := catalogRows(reg)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, rows)
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("HANDLER", "TOOL", "TIER", "CONFIRMATION", "DESCRIPTION")
			for _, r := range rows {
				t.Row(r.Handler, r.Tool, r.Tier.String(), r.Confirmation, r.Description)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

type classification struct {
	Intent     intent.Tag      `json:"intent"`
	Confidence float64         `json:"confidence"`
	Source     intent.Source   `json:"source"`
	Params     map[string]any  `json:"params,omitempty"`
	Candidates []intent.Tag    `json:"candidates,omitempty"`
	Handler    string          `json:"handler,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	Tier       policy.RiskTier `json:"tier,omitempty"`
	Args       map[string]any  `json:"args,omitempty"`
	Calls      []string        `json:"calls,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func classifyCmd(g *globalFlags) *cobra.Command {
	var (
		persona string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "classify <request>",
		Short: "Show how a request is classified and routed, without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(g)
			if err != nil {
				return err
			}
			defer rt.Close()

			if persona == "" {
				persona = rt.Config.Persona
			}
			text := strings.Join(args, " ")
			in, err := rt.Classifier.Classify(commandContext(cmd), text, intent.Session{ID: "cli", Persona: persona})
			if err != nil {
				return err
			}

			res := classification{
				Intent:     in.Tag,
				Confidence: in.Confidence,
				Source:     in.Source,
				Params:     in.Params(),
				Candidates: in.Candidates(),
			}
			if dec, err := rt.Router.Route(in, persona); err != nil {
				res.Error = format.Error(err)
			} else {
				res.Handler, res.Tool, res.Tier, res.Args = dec.Handler, dec.Tool, dec.Tier, dec.Args
				if dec.Overview != nil {
					for _, c := range dec.Overview.Calls {
						res.Calls = append(res.Calls, c.Tool)
					}
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			printClassification(out, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&persona, "persona", "", "Persona to route as (default: config persona)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printClassification(w io.Writer, c classification) {
	fmt.Fprintf(w, "intent:     %s\n", c.Intent)
	fmt.Fprintf(w, "confidence: %.2f\n", c.Confidence)
	fmt.Fprintf(w, "source:     %s\n", c.Source)
	for _, k := range slices.Sorted(maps.Keys(c.Params)) {
		fmt.Fprintf(w, "param:      %s=%v\n", k, c.Params[k])
	}
	if len(c.Candidates) > 0 {
		fmt.Fprintf(w, "candidates: %v\n", c.Candidates)
	}
	if c.Error != "" {
		fmt.Fprintf(w, "routing:    %s\n", c.Error)
		return
	}
	fmt.Fprintf(w, "handler:    %s\n", c.Handler)
	if len(c.Calls) > 0 {
		fmt.Fprintf(w, "overview:   %s (%s)\n", strings.Join(c.Calls, ", "), c.Tier)
		return
	}
	fmt.Fprintf(w, "tool:       %s (%s)\n", c.Tool, c.Tier)
	for _, k := range slices.Sorted(maps.Keys(c.Args)) {
		fmt.Fprintf(w, "arg:        %s=%v\n", k, c.Args[k])
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
