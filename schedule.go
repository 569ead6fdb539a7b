package snooze

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// A Schedule puts matching instances to sleep and wakes them again.
type Schedule struct {
	ID          string     `json:"id" yaml:"id,omitempty"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description,omitempty"`
	Selectors   []Selector `json:"selectors" yaml:"selectors"`
	Operator    Operator   `json:"operator" yaml:"operator"`
	Timezone    string     `json:"timezone" yaml:"timezone"`
	SleepCron   string     `json:"sleep_cron" yaml:"sleep_cron"`
	WakeCron    string     `json:"wake_cron" yaml:"wake_cron"`
	Enabled     bool       `json:"enabled" yaml:"enabled"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"-"`
}

// NewSchedule builds an enabled schedule whose cron pair is derived from g.
func NewSchedule(
	name, tz string, g Grid, selectors []Selector, op Operator,
) (*Schedule, error) {
	pair, ok := GridToCron(g)
	if !ok {
		return nil, ErrEmptyGrid
	}
	s := &Schedule{
		Name:      name,
		Selectors: selectors,
		Operator:  op,
		Timezone:  tz,
		SleepCron: pair.Sleep,
		WakeCron:  pair.Wake,
		Enabled:   true,
	}
	return s, s.Validate()
}

// Cron returns the schedule's sleep/wake pair.
func (s *Schedule) Cron() CronPair {
	return CronPair{Sleep: s.SleepCron, Wake: s.WakeCron}
}

// Grid projects the schedule's cron pair back onto a grid.
func (s *Schedule) Grid() Grid {
	return CronToGrid(s.SleepCron, s.WakeCron)
}

// Validate reports every problem with the schedule at once.
func (s *Schedule) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", s.Timezone, err))
	}
	if err := ValidateCron(s.SleepCron); err != nil {
		errs = append(errs, fmt.Errorf("sleep_cron: %w", err))
	}
	if err := ValidateCron(s.WakeCron); err != nil {
		errs = append(errs, fmt.Errorf("wake_cron: %w", err))
	}
	if err := ValidateSelectors(s.Selectors); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateCron checks that expr is a five-field cron expression.
func ValidateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return fmt.Errorf("%w: %q", ErrBadCron, expr)
	}
	return nil
}

// Matches reports whether the schedule is enabled and targets inst.
func (s *Schedule) Matches(inst Instance) bool {
	return s.Enabled && MatchInstance(inst, s.Selectors, s.Operator)
}

// MatchingSchedules returns the schedules that target inst.
func MatchingSchedules(schedules []Schedule, inst Instance) []Schedule {
	var out []Schedule
	for _, s := range schedules {
		if s.Matches(inst) {
			out = append(out, s)
		}
	}
	return out
}

// A Transition holds the next sleep and wake instants of a schedule.
type Transition struct {
	Sleep time.Time `json:"sleep"`
	Wake  time.Time `json:"wake"`
}

// Next returns the first sleep and wake instants strictly after now,
// evaluated in the schedule's timezone.
func (s *Schedule) Next(now time.Time) (t Transition, err error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return t, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	now = now.In(loc)
	if t.Sleep, err = nextTickAfter(s.SleepCron, now, false); err != nil {
		return t, fmt.Errorf("sleep_cron %q: %w", s.SleepCron, err)
	}
	if t.Wake, err = nextTickAfter(s.WakeCron, now, false); err != nil {
		return t, fmt.Errorf("wake_cron %q: %w", s.WakeCron, err)
	}
	return t, nil
}
