// Command statebus replays YAML scenarios against an in-memory todos store
// and prints every subscription notification they cause.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jilio/statebus"
	"github.com/jilio/statebus/prometheus"
	"github.com/jilio/statebus/registry"
)

type options struct {
	logLevel string
	metrics  bool
	logger   *slog.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "statebus",
		Short:        "Replay entity scenarios against a statebus store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts), newAdaptersCmd())
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Apply every step of a scenario and print subscription changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}

			storeOpts := []statebus.Option{statebus.WithLogger(opts.logger)}

			var reg *prom.Registry
			if opts.metrics {
				reg = prom.NewRegistry()
				obs, err := prometheus.New(prometheus.WithRegisterer(reg))
				if err != nil {
					return err
				}
				storeOpts = append(storeOpts, statebus.WithObservability(obs))
			}

			out := cmd.OutOrStdout()
			if sc.Name != "" {
				fmt.Fprintf(out, "scenario: %s\n", sc.Name)
			}

			r, err := newRunner(registry.Default, out, storeOpts...)
			if err != nil {
				return err
			}
			defer r.close()

			failed := r.run(cmd.Context(), sc)
			fmt.Fprintf(out, "done: %d steps, %d failed\n", len(sc.Steps), failed)

			if reg != nil {
				if err := printMetrics(cmd, reg); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d steps failed", failed, len(sc.Steps))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print dispatch and selector counters after the run")
	return cmd
}

func newAdaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List registered entity adapters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, e := range registry.Default.Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tkey=%s\n", e.Name, e.KeyType)
			}
		},
	}
}

// printMetrics writes every counter sample as name{labels} value.
func printMetrics(cmd *cobra.Command, reg *prom.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "metrics:")
	for _, l := range lines {
		fmt.Fprintf(out, "  %s\n", l)
	}
	return nil
}
