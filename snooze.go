// Package snooze decides when cloud database instances sleep and wake,
// and which instances a schedule applies to.
//
// A weekly schedule is edited as a 7x24 Grid and executed as a pair of
// cron expressions; GridToCron and CronToGrid translate between the two.
// Selectors decide which instances a schedule targets.
package snooze

import (
	"errors"
	"time"

	"github.com/adhocore/gronx"
)

var (
	sleep         = time.Sleep
	timeNow       = time.Now
	nextTickAfter = gronx.NextTickAfter
)

var (
	ErrBadCron   = errors.New("bad cron expression")
	ErrEmptyGrid = errors.New("grid has no sleep hours")
	ErrNotFound  = errors.New("schedule not found")
)
