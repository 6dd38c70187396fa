// Package statuscmder provides the status command, which checks that the
// configured store, backend and injection template are usable.
package statuscmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/health"
)

const statusLongDesc string = `Show the state of the local recall setup.

Reads config.toml from the .recall/ directory (or ~/.recall/), opens the
configured entry store and probes the inference backend. Exits non-zero when
the store is unusable.

Examples:
  recall status
  recall status --config-dir ~/work/.recall`

const statusShortDesc string = "Check store, backend and template health"

// probeTimeout bounds each status probe.
const probeTimeout = 3 * time.Second

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			configDir, _ := cmd.Flags().GetString("config-dir")
			cfgMsg := "no config file, using defaults"
			if cfger, err := config.NewConfiger(configDir); err == nil {
				if _, err := os.Stat(cfger.GetTarget()); err == nil {
					cfgMsg = cfger.GetTarget()
				}
			}

			storeProbe := health.StoreProbe(s.Store)
			storeProbe.Critical = true

			checker := health.NewChecker(probeTimeout,
				health.StaticProbe("config", cfgMsg),
				storeProbe,
				health.BackendProbe(&http.Client{Timeout: probeTimeout}, s.Config.Proxy.Upstream),
				health.TemplatesProbe(s.Templates.Has, s.Config.Injection.Template),
			)
			report := checker.Run(cmd.Context())

			write(cmd.OutOrStdout(), s.Config, report)
			if report.Status == health.StatusUnhealthy {
				return fmt.Errorf("recall is %s", report.Status)
			}
			return nil
		},
	}

	return cmd
}

var probeOrder = []string{"config", "store", "backend", "templates"}

func write(w io.Writer, cfg *config.Config, report *health.Report) {
	fmt.Fprintf(w, "\n  %s  %s\n", cliui.KeyStyle.Render("Status: "), cliui.ValueStyle.Render(string(report.Status)))
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Storage:"), cliui.ValueStyle.Render(cfg.Storage.Driver))
	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render("Proxy:  "),
		cliui.ValueStyle.Render(cfg.Proxy.Listen+" -> "+cfg.Proxy.Upstream))

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return slices.Index(probeOrder, a) - slices.Index(probeOrder, b)
	})

	for _, name := range names {
		check := report.Checks[name]
		mark := cliui.SuccessMark
		if !check.Healthy {
			mark = cliui.FailMark
		}
		fmt.Fprintf(w, "  %s %s %s %s\n",
			mark,
			cliui.KeyStyle.Render(fmt.Sprintf("%-10s", name)),
			cliui.ValueStyle.Render(check.Message),
			cliui.DimStyle.Render(strconv.FormatInt(check.LatencyMs, 10)+"ms"),
		)
	}
	fmt.Fprintln(w)
}
