package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	"github.com/ariefcatur/go-bar-pos/internal/syncclient"
)

type queueFlags struct {
	Sector    string
	Status    string
	Preset    string
	From, To  string
	Employees string
	Search    string
}

func (f *queueFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Sector, "sector", "", "sector id (required)")
	cmd.Flags().StringVar(&f.Status, "status", "pending", "pending|ready|delivered")
	cmd.Flags().StringVar(&f.Preset, "preset", "", "delivered only: today|yesterday|last7|custom")
	cmd.Flags().StringVar(&f.From, "from", "", "custom range start YYYY-MM-DD")
	cmd.Flags().StringVar(&f.To, "to", "", "custom range end YYYY-MM-DD")
	cmd.Flags().StringVar(&f.Employees, "employees", "", "comma separated employee ids")
	cmd.Flags().StringVar(&f.Search, "search", "", "product/note search, accent insensitive")
	_ = cmd.MarkFlagRequired("sector")
}

func (f *queueFlags) filters() (syncclient.Filters, error) {
	st, err := fulfillment.ParseStatus(f.Status)
	if err != nil {
		return syncclient.Filters{}, err
	}
	preset := syncclient.DatePreset(f.Preset)
	switch preset {
	case syncclient.PresetNone, syncclient.PresetToday, syncclient.PresetYesterday,
		syncclient.PresetLast7, syncclient.PresetCustom:
	default:
		return syncclient.Filters{}, fmt.Errorf("invalid preset %q", f.Preset)
	}
	return syncclient.Filters{
		Status:    st,
		Preset:    preset,
		From:      f.From,
		To:        f.To,
		Employees: fulfillment.SplitEmployees(f.Employees),
		Search:    f.Search,
	}, nil
}

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		qf   queueFlags
		poll time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a sector queue on screen",
		Long: `Keep a sector queue on screen, refreshed by push events and
a periodic poll. The screen is redrawn on every change.

Examples:
  tablet watch --sector cozinha
  tablet watch --sector bar --status delivered --preset today --search "caipirinha"`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := qf.filters()
			if err != nil {
				return err
			}
			logger := rootOpts.logger(cmd.ErrOrStderr())
			out := cmd.OutOrStdout()

			client := syncclient.New(rootOpts.fetcher(), syncclient.Options{
				SectorID:     qf.Sector,
				Filters:      f,
				PollInterval: poll,
				Log:          logger,
				OnChange: func(s syncclient.Snapshot) {
					if s.State == syncclient.StateLoading {
						return
					}
					if err := render(out, rootOpts.Format, qf.Sector, s); err != nil {
						logger.Printf("render: %v", err)
					}
				},
			})
			push := &syncclient.PushListener{URL: rootOpts.pushURL(), Client: client, Log: logger}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go push.Run(ctx)
			if err := client.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	qf.bind(cmd)
	cmd.Flags().DurationVar(&poll, "poll", syncclient.DefaultPollInterval, "poll interval")
	return cmd
}

func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	var qf queueFlags
	cmd := &cobra.Command{
		Use:          "queue",
		Short:        "Print a sector queue once",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := qf.filters()
			if err != nil {
				return err
			}
			var last syncclient.Snapshot
			client := syncclient.New(rootOpts.fetcher(), syncclient.Options{
				SectorID: qf.Sector,
				Filters:  f,
				Log:      rootOpts.logger(cmd.ErrOrStderr()),
				OnChange: func(s syncclient.Snapshot) { last = s },
			})
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			client.Load(ctx)
			if last.Error != "" {
				return fmt.Errorf("fetch queue: %s", last.Error)
			}
			return render(cmd.OutOrStdout(), rootOpts.Format, qf.Sector, last)
		},
	}
	qf.bind(cmd)
	return cmd
}
