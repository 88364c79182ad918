package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flemzord/scalegate/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceName = "scalegate"

// program runs the serve loop under the OS service manager.
type program struct {
	params app.RunParams
	logger service.Logger

	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := app.RunContext(ctx, p.params)
		p.done <- err
		if err != nil && ctx.Err() == nil {
			if p.logger != nil {
				_ = p.logger.Error(err)
			}
			os.Exit(1)
		}
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// newService describes the installed unit. The config path is made
// absolute because service managers do not keep the working directory.
func newService(g *globalFlags) (service.Service, *program, error) {
	cfgPath := g.configPath
	if cfgPath == "" {
		resolved, err := app.ResolveConfigPath()
		if err != nil {
			return nil, nil, err
		}
		cfgPath = resolved
	}
	abs, err := filepath.Abs(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	params := g.runParams()
	params.ConfigPath = abs
	args := []string{"service", "run", "--config", abs}
	if g.dataDir != "" {
		args = append(args, "--data-dir", g.dataDir)
	}
	if g.logLevel != "" {
		args = append(args, "--log-level", g.logLevel)
	}

	prg := &program{params: params}
	s, err := service.New(prg, &service.Config{
		Name:        serviceName,
		DisplayName: "scalegate",
		Description: "Conversational gateway to IBM Storage Scale with risk-tiered confirmation.",
		Arguments:   args,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, prg, nil
}

func serviceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage scalegate as an OS service",
	}
	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the %s service", action, serviceName),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, _, err := newService(g)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(g)
			if err != nil {
				return err
			}
			st, err := s.Status()
			if errors.Is(err, service.ErrNotInstalled) {
				fmt.Fprintln(cmd.OutOrStdout(), "not installed")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusText(st))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, prg, err := newService(g)
			if err != nil {
				return err
			}
			if l, err := s.Logger(nil); err == nil {
				prg.logger = l
			}
			return s.Run()
		},
	})
	return cmd
}

func statusText(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
