// Package proxycmder provides the proxy server command.
package proxycmder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/proxy"
)

type proxyCommander struct {
	listen        string
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

const proxyLongDesc string = `Run the proxy server.

The proxy sits between clients and Ollama. Generate and chat prompts are
augmented with remembered facts about the user before they are forwarded,
and every completed exchange is mined for new facts in the background.
All other Ollama routes pass through untouched.

Settings are resolved from flags, RECALL_* environment variables, and
config.toml, in that order.`

const proxyShortDesc string = "Run the recall proxy server"

// ProxyFlags are the registry keys the proxy commands bind.
var ProxyFlags = []string{
	config.FlagUpstream,
	config.FlagTimeout,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagTemplate,
	config.FlagMaxContext,
	config.FlagPacking,
	config.FlagWorkers,
	config.FlagEventStream,
	config.FlagKafkaTopic,
}

func NewProxyCmd() *cobra.Command {
	cmder := &proxyCommander{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: proxyShortDesc,
		Long:  proxyLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags,
				append([]string{config.FlagProxyListenStandalone}, ProxyFlags...))

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
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyListenStandalone, &cmder.listen)
	AddFlags(cmd, &Flags{
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

	return cmd
}

// Flags holds the flag targets shared by "recall serve" and "recall serve proxy".
type Flags struct {
	Upstream      *string
	Timeout       *string
	StorageDriver *string
	SQLitePath    *string
	PostgresDSN   *string
	Template      *string
	MaxContext    *uint
	Packing       *string
	Workers       *uint
	EventStream   *string
	KafkaTopic    *string
}

// AddFlags registers the shared proxy flags on cmd.
func AddFlags(cmd *cobra.Command, f *Flags) {
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, f.Upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, f.Timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, f.StorageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, f.SQLitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, f.PostgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagTemplate, f.Template)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxContext, f.MaxContext)
	config.AddStringFlag(cmd, config.Flags, config.FlagPacking, f.Packing)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, f.Workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, f.EventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, f.KafkaTopic)
}

func (c *proxyCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = stack.NewLogger(c.debug)

	s, err := stack.Open(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	proxyConfig, err := NewConfig(s)
	if err != nil {
		return err
	}

	p, err := proxy.New(proxyConfig, s.Memory, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	return p.Run()
}

// NewConfig builds the proxy configuration from an opened stack.
func NewConfig(s *stack.Stack) (proxy.Config, error) {
	cfg := s.Config

	timeout, err := cfg.Proxy.TimeoutDuration()
	if err != nil {
		return proxy.Config{}, err
	}

	return proxy.Config{
		ListenAddr:        cfg.Proxy.Listen,
		UpstreamURL:       cfg.Proxy.Upstream,
		Timeout:           timeout,
		Settings:          Settings(cfg),
		LearningWorkers:   uint(cfg.Learning.Workers),
		LearningQueueSize: uint(cfg.Learning.QueueSize),
		Store:             s.Store,
		Publisher:         s.Publisher,
		Templates:         s.Templates,
	}, nil
}

// Settings extracts the hot-reloadable proxy settings from cfg.
func Settings(cfg *config.Config) proxy.Settings {
	return proxy.Settings{
		InjectionEnabled: cfg.Injection.Enabled,
		Template:         cfg.Injection.Template,
		MaxContextLength: cfg.Injection.MaxContextLength,
		LearningEnabled:  cfg.Learning.Enabled,
	}
}

// WatchSettings applies config.toml edits to p until ctx is done. Flags given
// on the command line keep precedence over reloaded values.
func WatchSettings(ctx context.Context, cmd *cobra.Command, configDir string, p *proxy.Proxy, log *slog.Logger) error {
	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return err
	}

	w, err := config.NewWatcher(filepath.Join(target, "config.toml"), log)
	if err != nil {
		return err
	}
	defer w.Close()

	pinned := p.Settings()
	templatePinned := cmd.Flags().Changed(config.Flags[config.FlagTemplate].Name)
	maxContextPinned := cmd.Flags().Changed(config.Flags[config.FlagMaxContext].Name)

	return w.Run(ctx, func(cfg *config.Config) {
		s := Settings(cfg)
		if templatePinned {
			s.Template = pinned.Template
		}
		if maxContextPinned {
			s.MaxContextLength = pinned.MaxContextLength
		}
		p.UpdateSettings(s)
	})
}
