// Package apicmder provides the API recall server cobra command.
package apicmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/config"
)

type apiCommander struct {
	listen        string
	storageDriver string
	sqlitePath    string
	postgresDSN   string

	configDir string
	debug     bool
	cfg       *config.Config
	logger    *slog.Logger
}

const apiLongDesc string = `Run the recall API server for inspecting and curating stored context.

Routes:
  GET    /entries            List entries (filters: source, type, category)
  POST   /entries            Create a manual entry
  GET    /entries/search     Substring search
  GET    /entries/:id        Get, update (PUT) or delete (DELETE) an entry
  POST   /retrieve           Preview the context injected for a prompt
  GET    /templates          List injection templates
  GET    /export             Export entries as JSON or YAML
  POST   /import             Import an export document
  /mcp                       MCP tools: context_search, context_add, context_recall`

const apiShortDesc string = "Run the recall API server"

// APIFlags are the registry keys the API commands bind.
var APIFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

func NewAPICmd() *cobra.Command {
	cmder := &apiCommander{}

	cmd := &cobra.Command{
		Use:   "api",
		Short: apiShortDesc,
		Long:  apiLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags,
				append([]string{config.FlagAPIListenStandalone}, APIFlags...))

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

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListenStandalone, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)

	return cmd
}

func (c *apiCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = stack.NewLogger(c.debug)

	s, err := stack.Open(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	server, err := NewServer(s)
	if err != nil {
		return err
	}

	return server.Run()
}

// NewServer builds the API server from an opened stack.
func NewServer(s *stack.Stack) (*api.Server, error) {
	server, err := api.NewServer(api.Config{
		ListenAddr:       s.Config.API.Listen,
		Templates:        s.Templates,
		MaxContextLength: s.Config.Injection.MaxContextLength,
		DefaultTemplate:  s.Config.Injection.Template,
	}, s.Store, s.Memory, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	return server, nil
}
