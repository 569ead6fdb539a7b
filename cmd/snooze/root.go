package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"lesiw.io/snooze"
	"lesiw.io/snooze/internal/config"
	"lesiw.io/snooze/internal/logger"
)

var sleep = time.Sleep

type app struct {
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger

	// openStore returns the schedule store and a func releasing it.
	openStore func(ctx context.Context) (snooze.Store, func(), error)
}

func newApp() *app {
	a := new(app)
	a.openStore = a.openPgx
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "snooze",
		Short: "Sleep/wake schedules for cloud database instances",
		Long: `snooze translates weekly sleep/wake grids to cron expressions,
previews which instances a set of selectors targets, and stores schedules
in Postgres.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is ./snooze.yaml)")
	root.AddCommand(
		newCronCmd(a),
		newGridCmd(a),
		newMatchCmd(a),
		newScheduleCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.New(), a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.log == nil {
		a.log = logger.NewWriter(cmd.ErrOrStderr(), cfg.Log.Level)
	}
	a.log.Debugw("config loaded", "file", a.cfgFile,
		"timezone", cfg.Schedule.Timezone)
	return nil
}

func (a *app) openPgx(ctx context.Context) (snooze.Store, func(), error) {
	if a.cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database.url is not set")
	}
	var (
		pool *pgxpool.Pool
		err  error
	)
	for n := range 3 {
		pool, err = pgxpool.New(ctx, a.cfg.Database.URL)
		if err != nil {
			a.log.Warnw("could not connect to database",
				"attempt", n+1, "err", err)
			sleep(time.Duration(n) * time.Second)
			continue
		}
		break
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to database: %w", err)
	}
	store, err := snooze.NewPgx(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	store.Log = a.log.Writer()
	return store, pool.Close, nil
}

// readInput reads a named file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func decodeFile(cmd *cobra.Command, path string, v any) error {
	b, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func encode(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
