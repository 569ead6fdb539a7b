package main

import (
	"cmp"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"lesiw.io/snooze"
)

// A scheduleFile is the YAML input of "schedule put".
// When Grid is set it replaces the cron pair.
type scheduleFile struct {
	snooze.Schedule `yaml:",inline"`
	Grid            string `yaml:"grid,omitempty"`
}

type scheduleOutput struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Enabled    bool     `yaml:"enabled"`
	Operator   string   `yaml:"operator"`
	Timezone   string   `yaml:"timezone"`
	SleepCron  string   `yaml:"sleep_cron"`
	WakeCron   string   `yaml:"wake_cron"`
	ActiveDays string   `yaml:"active_days"`
	SleepHours string   `yaml:"sleep_hours"`
	Rules      []string `yaml:"rules"`
	NextSleep  string   `yaml:"next_sleep,omitempty"`
	NextWake   string   `yaml:"next_wake,omitempty"`
}

func newScheduleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage stored schedules",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "put FILE",
			Short: "Create or update a schedule from a YAML file",
			Args:  cobra.ExactArgs(1),
			RunE:  a.withStore(a.putSchedule),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored schedules",
			Args:  cobra.NoArgs,
			RunE:  a.withStore(a.listSchedules),
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Show a schedule and its next transitions",
			Args:  cobra.ExactArgs(1),
			RunE:  a.withStore(a.getSchedule),
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a schedule",
			Args:  cobra.ExactArgs(1),
			RunE:  a.withStore(a.deleteSchedule),
		},
		newTargetsCmd(a),
	)
	return cmd
}

type storeFunc func(
	cmd *cobra.Command, args []string, store snooze.Store,
) error

func (a *app) withStore(f storeFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, release, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer release()
		return f(cmd, args, store)
	}
}

func (a *app) putSchedule(
	cmd *cobra.Command, args []string, store snooze.Store,
) error {
	b, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	var (
		f  scheduleFile
		op struct {
			Operator *snooze.Operator `yaml:"operator"`
		}
	)
	for _, v := range []any{&f, &op} {
		if err := yaml.Unmarshal(b, v); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	s := &f.Schedule
	s.Timezone = cmp.Or(s.Timezone, a.cfg.Schedule.Timezone)
	if op.Operator == nil {
		s.Operator = a.cfg.Operator()
	}
	if f.Grid != "" {
		g, err := snooze.ParseGrid(f.Grid)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		pair, ok := snooze.GridToCron(g)
		if !ok {
			return fmt.Errorf("%s: %w", args[0], snooze.ErrEmptyGrid)
		}
		s.SleepCron, s.WakeCron = pair.Sleep, pair.Wake
	}
	if err := a.cfg.CheckPatterns(s.Selectors); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if err := store.Put(cmd.Context(), s); err != nil {
		return err
	}
	a.log.Infow("schedule stored", "id", s.ID, "name", s.Name)
	return encode(cmd, describe(*s, time.Time{}))
}

func (a *app) listSchedules(
	cmd *cobra.Command, _ []string, store snooze.Store,
) error {
	schedules, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	out := make([]scheduleOutput, 0, len(schedules))
	for _, s := range schedules {
		if err := s.Validate(); err != nil {
			a.log.Warnw("stored schedule is invalid",
				"id", s.ID, "err", err)
		}
		out = append(out, describe(s, time.Time{}))
	}
	return encode(cmd, out)
}

func (a *app) getSchedule(
	cmd *cobra.Command, args []string, store snooze.Store,
) error {
	s, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return encode(cmd, describe(*s, timeNow()))
}

func (a *app) deleteSchedule(
	cmd *cobra.Command, args []string, store snooze.Store,
) error {
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	a.log.Infow("schedule deleted", "id", args[0])
	return nil
}

type targetsOutput struct {
	Instance  string   `yaml:"instance"`
	Schedules []string `yaml:"schedules"`
}

func newTargetsCmd(a *app) *cobra.Command {
	var instPath string
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Show which enabled schedules target each instance",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(
			cmd *cobra.Command, _ []string, store snooze.Store,
		) error {
			var instances []snooze.Instance
			if err := decodeFile(cmd, instPath, &instances); err != nil {
				return err
			}
			schedules, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return encode(cmd, targets(schedules, instances))
		}),
	}
	cmd.Flags().StringVarP(&instPath, "instances", "i", "",
		"YAML file holding a list of instances")
	_ = cmd.MarkFlagRequired("instances")
	return cmd
}

func targets(
	schedules []snooze.Schedule, instances []snooze.Instance,
) []targetsOutput {
	out := make([]targetsOutput, 0, len(instances))
	for _, inst := range instances {
		t := targetsOutput{Instance: inst.Name, Schedules: []string{}}
		for _, s := range snooze.MatchingSchedules(schedules, inst) {
			t.Schedules = append(t.Schedules, s.Name)
		}
		out = append(out, t)
	}
	return out
}

var timeNow = time.Now

// describe renders s for output. A non-zero now adds the next transitions.
func describe(s snooze.Schedule, now time.Time) scheduleOutput {
	sum := snooze.FormatGridSummary(s.Grid())
	out := scheduleOutput{
		ID:         s.ID,
		Name:       s.Name,
		Enabled:    s.Enabled,
		Operator:   s.Operator.String(),
		Timezone:   s.Timezone,
		SleepCron:  s.SleepCron,
		WakeCron:   s.WakeCron,
		ActiveDays: sum.ActiveDays,
		SleepHours: sum.SleepHours,
		Rules:      []string{},
	}
	for _, sel := range s.Selectors {
		out.Rules = append(out.Rules, snooze.DescribeSelectorRule(sel))
	}
	if now.IsZero() {
		return out
	}
	if next, err := s.Next(now); err == nil {
		out.NextSleep = next.Sleep.Format(time.RFC3339)
		out.NextWake = next.Wake.Format(time.RFC3339)
	}
	return out
}

