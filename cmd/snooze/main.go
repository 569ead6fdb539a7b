// Command snooze converts sleep/wake grids to cron expressions, previews
// which instances a set of selectors targets, and manages stored schedules.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}
