package snooze

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	Days  = 7
	Hours = 24
)

// Default window used when the sleep pattern cannot be reduced to one range.
const (
	DefaultSleepHour = 22
	DefaultWakeHour  = 7
)

// A Grid is a weekly sleep/wake matrix.
// Rows are days, Monday (0) through Sunday (6).
// Columns are hours of the day in the schedule's timezone.
// A true cell means the instance sleeps during that hour.
type Grid [Days][Hours]bool

// A CronPair holds the sleep and wake transitions of a schedule.
type CronPair struct {
	Sleep string `json:"sleep_cron" yaml:"sleep_cron"`
	Wake  string `json:"wake_cron" yaml:"wake_cron"`
}

// A Summary is a human-readable digest of a Grid.
type Summary struct {
	ActiveDays string `json:"active_days"`
	SleepHours string `json:"sleep_hours"`
}

var dayNames = [Days]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// EmptyGrid returns a grid in which every hour is awake.
func EmptyGrid() Grid { return Grid{} }

// GridFromRows converts a row-major boolean matrix into a Grid.
func GridFromRows(rows [][]bool) (g Grid, err error) {
	if len(rows) != Days {
		return g, fmt.Errorf("grid has %d rows, want %d", len(rows), Days)
	}
	for d, row := range rows {
		if len(row) != Hours {
			return g, fmt.Errorf("grid row %d has %d hours, want %d",
				d, len(row), Hours)
		}
		copy(g[d][:], row)
	}
	return g, nil
}

// Rows returns the grid as a row-major boolean matrix.
func (g Grid) Rows() [][]bool {
	rows := make([][]bool, Days)
	for d := range g {
		rows[d] = slices.Clone(g[d][:])
	}
	return rows
}

// ParseGrid reads the format produced by Grid.String:
// seven lines of 24 cells, '#' for sleep and '.' for awake.
// Blank lines and text after a '|' are ignored.
func ParseGrid(s string) (g Grid, err error) {
	var d int
	for line := range strings.Lines(s) {
		line, _, _ = strings.Cut(line, "|")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if d == Days {
			return g, fmt.Errorf("grid has more than %d rows", Days)
		}
		if len(line) != Hours {
			return g, fmt.Errorf("grid row %d has %d cells, want %d",
				d, len(line), Hours)
		}
		for h, c := range []byte(line) {
			switch c {
			case '#':
				g[d][h] = true
			case '.':
			default:
				return g, fmt.Errorf("grid row %d: bad cell %q at hour %d",
					d, c, h)
			}
		}
		d++
	}
	if d != Days {
		return g, fmt.Errorf("grid has %d rows, want %d", d, Days)
	}
	return g, nil
}

func (g Grid) String() string {
	var b strings.Builder
	for d := range g {
		for _, asleep := range g[d] {
			if asleep {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString(" | ")
		b.WriteString(dayNames[d])
		b.WriteByte('\n')
	}
	return b.String()
}

// GridToCron reduces a grid to a single sleep/wake cron pair.
// It reports false if the grid has no sleep hours at all.
//
// Each day's sleep hours are classified as a contiguous range or as
// "multiple". The most frequent classification wins, ties going to the
// day seen first. A winning range yields its first hour as the sleep hour
// and its last hour as the wake hour; "multiple" yields the default
// 22:00-07:00 window. The day-of-week field lists every day with any
// sleep hour, whatever its pattern. The conversion is lossy: the grid
// remains the source of truth.
func GridToCron(g Grid) (CronPair, bool) {
	type tally struct {
		key   string
		first int
		last  int
		count int
	}
	var (
		tallies []tally
		days    []int
	)
	for d := range g {
		var hours []int
		for h, asleep := range g[d] {
			if asleep {
				hours = append(hours, h)
			}
		}
		if len(hours) == 0 {
			continue
		}
		days = append(days, GridDayToCron(d))
		t := tally{key: "multiple"}
		if contiguous(hours) {
			t.first, t.last = hours[0], hours[len(hours)-1]
			t.key = fmt.Sprintf("%d-%d", t.first, t.last)
		}
		i := slices.IndexFunc(tallies, func(o tally) bool {
			return o.key == t.key
		})
		if i < 0 {
			tallies = append(tallies, t)
			i = len(tallies) - 1
		}
		tallies[i].count++
	}
	if len(days) == 0 {
		return CronPair{}, false
	}
	var best tally
	for _, t := range tallies {
		if t.count > best.count {
			best = t
		}
	}
	sleepHour, wakeHour := DefaultSleepHour, DefaultWakeHour
	if best.key != "multiple" {
		sleepHour, wakeHour = best.first, best.last
	}
	slices.Sort(days)
	dow := joinInts(days)
	return CronPair{
		Sleep: fmt.Sprintf("0 %d * * %s", sleepHour, dow),
		Wake:  fmt.Sprintf("0 %d * * %s", wakeHour, dow),
	}, true
}

func contiguous(hours []int) bool {
	for i := 1; i < len(hours); i++ {
		if hours[i] != hours[i-1]+1 {
			return false
		}
	}
	return true
}

func joinInts(a []int) string {
	s := make([]string, len(a))
	for i, n := range a {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}

// CronToGrid expands a sleep/wake cron pair into a grid.
//
// Only the hour and day-of-week fields are read. Every day named by
// either expression sleeps from the sleep hour up to (not including) the
// wake hour, wrapping past midnight when the sleep hour is later. Equal
// hours produce no sleep at all. Malformed input yields an empty grid.
func CronToGrid(sleepCron, wakeCron string) Grid {
	g := EmptyGrid()
	sleepHour, sleepDays, ok := parseCron(sleepCron)
	if !ok {
		return g
	}
	wakeHour, wakeDays, ok := parseCron(wakeCron)
	if !ok {
		return g
	}
	var days [Days]bool
	for _, d := range slices.Concat(sleepDays, wakeDays) {
		days[d] = true
	}
	for cd, set := range days {
		if !set {
			continue
		}
		row := &g[CronDayToGrid(cd)]
		if sleepHour > wakeHour {
			for h := sleepHour; h < Hours; h++ {
				row[h] = true
			}
			for h := range wakeHour {
				row[h] = true
			}
			continue
		}
		for h := sleepHour; h < wakeHour; h++ {
			row[h] = true
		}
	}
	return g
}

// parseCron reads the hour and day-of-week fields of a cron expression.
func parseCron(expr string) (hour int, days []int, ok bool) {
	fields := strings.Fields(expr)
	if len(fields) < 3 {
		return 0, nil, false
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour >= Hours {
		return 0, nil, false
	}
	dow := "*"
	if len(fields) > 4 {
		dow = fields[4]
	}
	return hour, parseDays(dow), true
}

// parseDays expands "*" or a comma-separated list of cron days.
// Anything else, ranges included, is silently dropped.
func parseDays(field string) []int {
	if field == "*" {
		return []int{0, 1, 2, 3, 4, 5, 6}
	}
	var days []int
	for tok := range strings.SplitSeq(field, ",") {
		d, err := strconv.Atoi(tok)
		if err != nil || d < 0 || d >= Days {
			continue
		}
		days = append(days, d)
	}
	return days
}

// GridDayToCron maps a grid row (0=Monday) to a cron weekday (0=Sunday).
func GridDayToCron(gridDay int) int { return (gridDay + 1) % Days }

// CronDayToGrid maps a cron weekday (0=Sunday) to a grid row (0=Monday).
func CronDayToGrid(cronDay int) int { return (cronDay + 6) % Days }

// DayName returns the abbreviated name of a grid row, or "" if out of range.
func DayName(gridDay int) string {
	if gridDay < 0 || gridDay >= Days {
		return ""
	}
	return dayNames[gridDay]
}

// FormatHour renders an hour as "10pm" or, with use24h, as "22:00".
func FormatHour(hour int, use24h bool) string {
	if use24h {
		return fmt.Sprintf("%02d:00", hour)
	}
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	return strconv.Itoa(hour) + suffix
}

// FormatGridSummary describes a grid for display.
//
// The sleep range is a majority vote: an hour counts when at least half
// of the active days (rounded up) sleep through it, and the first and
// last such hours are reported as a range. The range is an approximation
// and may hide gaps or a wrap past midnight.
func FormatGridSummary(g Grid) Summary {
	var active []int
	for d := range g {
		if slices.Contains(g[d][:], true) {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return Summary{"No active days", "No sleep hours"}
	}
	s := Summary{
		ActiveDays: formatActiveDays(active),
		SleepHours: formatSleepHours(g, active),
	}
	if s.SleepHours == "" {
		s.SleepHours = "No sleep hours"
	}
	return s
}

func formatActiveDays(days []int) string {
	switch {
	case len(days) == 1:
		return dayNames[days[0]]
	case slices.Equal(days, []int{0, 1, 2, 3, 4}):
		return "Weekdays"
	case slices.Equal(days, []int{5, 6}):
		return "Weekends"
	case len(days) == Days:
		return "Every day"
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = dayNames[d]
	}
	return strings.Join(names, ", ")
}

func formatSleepHours(g Grid, active []int) string {
	var counts [Hours]int
	for _, d := range active {
		for h, asleep := range g[d] {
			if asleep {
				counts[h]++
			}
		}
	}
	threshold := int(math.Ceil(float64(len(active)) / 2))
	var hours []int
	for h, n := range counts {
		if n >= threshold {
			hours = append(hours, h)
		}
	}
	if len(hours) == 0 {
		return ""
	}
	return FormatHour(hours[0], false) + "-" +
		FormatHour(hours[len(hours)-1], false)
}
