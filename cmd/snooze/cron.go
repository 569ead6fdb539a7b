package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"lesiw.io/snooze"
)

type cronOutput struct {
	SleepCron  string `yaml:"sleep_cron"`
	WakeCron   string `yaml:"wake_cron"`
	ActiveDays string `yaml:"active_days"`
	SleepHours string `yaml:"sleep_hours"`
}

func newCronCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cron FILE",
		Short: "Convert a sleep/wake grid to a cron pair",
		Long: `Reads a grid of seven lines (Monday first) of 24 cells each,
'#' for a sleeping hour and '.' for an awake one, and prints the derived
sleep and wake cron expressions. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			g, err := snooze.ParseGrid(string(b))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			pair, ok := snooze.GridToCron(g)
			if !ok {
				return errors.New("grid has no sleep hours")
			}
			sum := snooze.FormatGridSummary(g)
			return encode(cmd, cronOutput{
				SleepCron:  pair.Sleep,
				WakeCron:   pair.Wake,
				ActiveDays: sum.ActiveDays,
				SleepHours: sum.SleepHours,
			})
		},
	}
}

func newGridCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grid SLEEP_CRON WAKE_CRON",
		Short: "Expand a cron pair into a sleep/wake grid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, expr := range args {
				if err := snooze.ValidateCron(expr); err != nil {
					a.log.Warnw("cron expression may not round-trip",
						"expr", expr, "err", err)
				}
			}
			g := snooze.CronToGrid(args[0], args[1])
			sum := snooze.FormatGridSummary(g)
			out := cmd.OutOrStdout()
			fmt.Fprint(out, g)
			fmt.Fprintf(out, "active days: %s\nsleep hours: %s\n",
				sum.ActiveDays, sum.SleepHours)
			return nil
		},
	}
}
