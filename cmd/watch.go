package main

import (
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "watch")
		if err != nil {
			return err
		}
		defer env.Close()

		schedule := watchSchedule
		if schedule == "" {
			schedule = cfg.Watch.Schedule
		}

		c := cron.New()
		_, err = c.AddFunc(schedule, func() {
			outcome, err := runPipeline(ctx, env)
			if err != nil {
				zap.L().Error("scheduled run failed", zap.Error(err))
				return
			}
			zap.L().Info("scheduled run complete",
				zap.String("run_id", outcome.RunID),
				zap.Int("analyzed", len(outcome.Analyses)),
				zap.Float64("stalled_pct", outcome.Stats.StalledPercentage),
			)
		})
		if err != nil {
			return eris.Wrapf(err, "invalid schedule %q", schedule)
		}

		zap.L().Info("watch started", zap.String("schedule", schedule))
		c.Start()

		<-ctx.Done()
		zap.L().Info("watch stopping")
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (default from config)")
	rootCmd.AddCommand(watchCmd)
}
