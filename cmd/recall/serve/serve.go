// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apicmder "github.com/papercomputeco/recall/cmd/recall/serve/api"
	proxycmder "github.com/papercomputeco/recall/cmd/recall/serve/proxy"
	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/proxy"
)

type ServeCommander struct {
	proxyListen   string
	apiListen     string
	upstream      string
	timeout       string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	template      string
	maxContext    uint
	packing       string
	workers       uint
	eventStream   string
	kafkaTopic    string

	configDir string
	debug     bool
	cfg       *config.Config
	logger    *slog.Logger
}

const serveLongDesc string = `Run recall services.

Use subcommands to run individual services or all services together:
  recall serve          Run both proxy and API server together
  recall serve api      Run just the API server
  recall serve proxy    Run just the proxy server

When both run together they share one entry store, and edits to the
injection and learning sections of config.toml apply without a restart.`

const serveShortDesc string = "Run recall services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags,
				append([]string{config.FlagProxyListen, config.FlagAPIListen}, proxycmder.ProxyFlags...))

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyListen, &cmder.proxyListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.apiListen)
	proxycmder.AddFlags(cmd, &proxycmder.Flags{
		Upstream:      &cmder.upstream,
		Timeout:       &cmder.timeout,
		StorageDriver: &cmder.storageDriver,
		SQLitePath:    &cmder.sqlitePath,
		PostgresDSN:   &cmder.postgresDSN,
		Template:      &cmder.template,
		MaxContext:    &cmder.maxContext,
		Packing:       &cmder.packing,
		Workers:       &cmder.workers,
		EventStream:   &cmder.eventStream,
		KafkaTopic:    &cmder.kafkaTopic,
	})

	cmd.AddCommand(apicmder.NewAPICmd())
	cmd.AddCommand(proxycmder.NewProxyCmd())

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	c.logger = stack.NewLogger(c.debug)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Shared store, memory driver and publisher
	s, err := stack.Open(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	proxyConfig, err := proxycmder.NewConfig(s)
	if err != nil {
		return err
	}
	p, err := proxy.New(proxyConfig, s.Memory, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	apiServer, err := apicmder.NewServer(s)
	if err != nil {
		return err
	}
	defer apiServer.Shutdown()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 3)

	// Start proxy in goroutine
	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()

	// Start API server in goroutine
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Hot reload of injection and learning settings
	go func() {
		err := proxycmder.WatchSettings(ctx, cmd, c.configDir, p, c.logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("config hot reload disabled", "error", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}
