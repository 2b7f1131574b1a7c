package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docsum/internal/batch"
	"docsum/internal/config"
	"docsum/internal/domain"
	"docsum/internal/extract"
	"docsum/internal/logger"
	"docsum/internal/progress"
	"docsum/internal/service"
	"docsum/internal/tui"
)

type configLoader func() (*config.AppConfig, error)

func summarizeCmd(load configLoader) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "summarize FILE...",
		Short: "Summarize files and follow progress in the terminal UI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := extract.ExpandPaths(args)
			names, err := service.CheckNames(paths)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, true)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg, log, outDir)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mailbox := progress.NewMailbox()
			pub := a.publisher(mailbox)
			run := func(ctx context.Context) (batch.Report, error) {
				return a.service.Run(ctx, paths, pub)
			}
			m := tui.New(ctx, mailbox, names, run)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to export summaries to (default: none)")
	return cmd
}

func batchCmd(load configLoader) *cobra.Command {
	var outDir, metricsAddr string
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Summarize files without a UI and export the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Output.Dir
			}
			log, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg, log, outDir)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				go func() {
					if err := a.metrics.Serve(ctx, metricsAddr); err != nil {
						log.Error("metrics server", logger.Error(err))
					}
				}()
			}

			report, err := a.service.Run(ctx, extract.ExpandPaths(args), a.publisher(eventLogger{log: log.Named("progress")}))
			if err != nil {
				return err
			}
			printReport(cmd, report, outDir)
			if report.Empty() {
				return errors.New("no summaries were generated")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to export summaries to (default: output.dir from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	return cmd
}

func watchCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow a batch running in another process through Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Progress.Type != "redis" || cfg.Progress.Redis == nil {
				return errors.New("watch needs progress.type: redis in the config")
			}
			log, err := newLogger(cfg, true)
			if err != nil {
				return err
			}
			defer log.Sync()

			ch := newRedisChannel(cfg, log)
			defer ch.Close()
			if err := ch.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			m := tui.New(cmd.Context(), ch, nil, nil)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

// eventLogger publishes progress events to the log.
type eventLogger struct{ log logger.Logger }

func (e eventLogger) Publish(ev domain.Event) {
	fields := []logger.Field{logger.String("file", ev.Filename), logger.String("status", string(ev.Status))}
	if ev.Result != nil && ev.Result.Error != "" {
		fields = append(fields, logger.String("reason", ev.Result.Error))
	}
	if ev.Result != nil && len(ev.Result.Failures) > 0 {
		fields = append(fields, logger.Int("failed_sections", len(ev.Result.Failures)))
	}
	e.log.Info("status", fields...)
}

func printReport(cmd *cobra.Command, r batch.Report, outDir string) {
	out := cmd.OutOrStdout()
	for _, d := range r.Documents {
		line := fmt.Sprintf("%-40s %-17s %s", d.Filename, d.Status, d.Duration.Round(time.Millisecond))
		if d.Error != "" {
			line += "  " + d.Error
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "\n%d completed, %d failed, %d skipped in %s\n",
		r.Completed(), r.Failed(), r.Skipped(), r.Elapsed.Round(time.Millisecond))
	if r.Completed() > 0 {
		fmt.Fprintf(out, "Summaries written to %s\n", outDir)
	}
}
