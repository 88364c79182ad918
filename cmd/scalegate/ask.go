package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/scalegate/internal/agent"
	"github.com/flemzord/scalegate/internal/gate"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// pipeline is the part of *agent.Pipeline a conversation drives.
type pipeline interface {
	Handle(ctx context.Context, req agent.Request) agent.Response
	Confirm(ctx context.Context, sessionID, id, ack string) agent.Response
	Reject(ctx context.Context, sessionID, id string) agent.Response
}

// conversation is one CLI session against the pipeline. Pending
// confirmations are settled on the spot through the prompter.
type conversation struct {
	pipeline pipeline
	session  string
	persona  string
	prompt   prompter
	render   *renderer
}

// say sends one utterance and returns the final response, after the
// operator has answered any confirmation it raised.
func (c *conversation) say(ctx context.Context, text string) (agent.Response, error) {
	resp := c.pipeline.Handle(ctx, agent.Request{SessionID: c.session, Persona: c.persona, Text: text})
	c.render.response(resp)
	if resp.Kind != agent.KindConfirmation || resp.Confirmation == nil {
		return resp, nil
	}
	return c.settle(ctx, *resp.Confirmation)
}

func (c *conversation) settle(ctx context.Context, conf gate.Confirmation) (agent.Response, error) {
	ack, ok, err := c.prompt.Confirm(conf)
	if err != nil {
		return agent.Response{}, err
	}
	var resp agent.Response
	if ok {
		resp = c.pipeline.Confirm(ctx, c.session, conf.ID, ack)
	} else {
		resp = c.pipeline.Reject(ctx, c.session, conf.ID)
	}
	c.render.response(resp)
	return resp, nil
}

type conversationFlags struct {
	sessionID string
	persona   string
	plain     bool
}

func (f *conversationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sessionID, "session", "", "Session id (default: random)")
	cmd.Flags().StringVar(&f.persona, "persona", "", "Persona to act as (default: config persona)")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print plain text instead of terminal markdown")
}

func (f *conversationFlags) session() string {
	if f.sessionID != "" {
		return f.sessionID
	}
	return uuid.NewString()
}

func askCmd(g *globalFlags) *cobra.Command {
	var f conversationFlags
	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Send one request and settle its confirmation interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(g)
			if err != nil {
				return err
			}
			defer rt.Close()

			c := &conversation{
				pipeline: rt.Pipeline,
				session:  f.session(),
				persona:  f.persona,
				prompt:   newPrompter(),
				render:   newRenderer(cmd.OutOrStdout(), f.plain),
			}
			resp, err := c.say(commandContext(cmd), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if resp.Kind == agent.KindError {
				return fmt.Errorf("request failed (%s)", resp.ErrorCode)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func chatCmd(g *globalFlags) *cobra.Command {
	var f conversationFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(g)
			if err != nil {
				return err
			}
			defer rt.Close()

			c := &conversation{
				pipeline: rt.Pipeline,
				session:  f.session(),
				persona:  f.persona,
				prompt:   newPrompter(),
				render:   newRenderer(cmd.OutOrStdout(), f.plain),
			}
			persona := f.persona
			if persona == "" {
				persona = rt.Config.Persona
			}
			c.render.header(fmt.Sprintf("scalegate chat: session %s, persona %s. Type exit to leave.", c.session, persona))
			return c.loop(commandContext(cmd))
		},
	}
	f.register(cmd)
	return cmd
}

// loop reads utterances until the operator quits or ctx is done.
func (c *conversation) loop(ctx context.Context) error {
	for ctx.Err() == nil {
		text, err := c.prompt.Line("scalegate")
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		if _, err := c.say(ctx, text); err != nil {
			return err
		}
	}
	return nil
}
