package snooze

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"lesiw.io/snooze/internal/stmt"
)

// A PgxConn is a pgx.Conn or pgxpool.Pool.
type PgxConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (
		pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pgx is a postgres-backed store.
type Pgx struct {
	Log  io.Writer
	conn PgxConn
}

// NewPgx instantiates a new Pgx store, creating its table if needed.
func NewPgx(ctx context.Context, conn PgxConn) (*Pgx, error) {
	p := new(Pgx)
	return p, p.Init(ctx, conn)
}

func (p *Pgx) Init(ctx context.Context, conn PgxConn) (err error) {
	p.conn = conn
	for n := range 3 {
		_, err = conn.Exec(ctx, stmt.CreateScheduleTable)
		if err != nil {
			p.log(err)
			sleep(time.Duration(math.Pow(2, float64(n))) * time.Second)
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("could not create schedule table: %w", err)
	}
	return nil
}

func (p *Pgx) log(a any) {
	w := cmp.Or[io.Writer](p.Log, os.Stderr)
	_, _ = w.Write([]byte(fmt.Sprintf("lesiw.io/snooze: %s\n", a)))
}

// Put inserts or updates s, assigning an ID if it has none.
// On update the stored creation time is kept and copied back into s.
func (p *Pgx) Put(ctx context.Context, s *Schedule) error {
	selectors := s.Selectors
	if selectors == nil {
		selectors = []Selector{}
	}
	sel, err := json.Marshal(selectors)
	if err != nil {
		return fmt.Errorf("could not encode selectors: %w", err)
	}
	c := *s
	stamp(&c, time.Time{})
	err = p.conn.QueryRow(ctx, stmt.UpsertSchedule,
		c.ID, c.Name, c.Description, sel, c.Operator.String(),
		c.Timezone, c.SleepCron, c.WakeCron, c.Enabled,
		c.CreatedAt, c.UpdatedAt,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("UpsertSchedule: %w", err)
	}
	*s = c
	return nil
}

func (p *Pgx) Get(ctx context.Context, id string) (*Schedule, error) {
	s, err := scanSchedule(p.conn.QueryRow(ctx, stmt.SelectSchedule, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("SelectSchedule: %w", err)
	}
	return s, nil
}

func (p *Pgx) List(ctx context.Context) ([]Schedule, error) {
	rows, err := p.conn.Query(ctx, stmt.ListSchedules)
	if err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	defer rows.Close()
	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSchedules: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	return out, nil
}

func (p *Pgx) Delete(ctx context.Context, id string) error {
	tag, err := p.conn.Exec(ctx, stmt.DeleteSchedule, id)
	if err != nil {
		return fmt.Errorf("DeleteSchedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var (
		s       Schedule
		sel, op string
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &sel, &op,
		&s.Timezone, &s.SleepCron, &s.WakeCron, &s.Enabled,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sel), &s.Selectors); err != nil {
		return nil, fmt.Errorf("schedule %s: bad selectors: %w", s.ID, err)
	}
	if s.Operator, err = ParseOperator(op); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	return &s, nil
}
