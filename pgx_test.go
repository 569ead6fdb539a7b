package snooze

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"lesiw.io/snooze/internal/stmt"
)

type query struct {
	Ctx context.Context
	Sql string
	Arg []any
}

// A result is what the fake returns for one query, by position.
type result struct {
	err  error
	tag  pgconn.CommandTag
	rows [][]any
}

type fakeConn struct {
	queries []query
	results []result
}

func (c *fakeConn) next(ctx context.Context, sql string, a []any) result {
	var r result
	if len(c.results) > len(c.queries) {
		r = c.results[len(c.queries)]
	}
	c.queries = append(c.queries, query{ctx, sql, a})
	return r
}

func (c *fakeConn) Exec(
	ctx context.Context, sql string, a ...any,
) (pgconn.CommandTag, error) {
	r := c.next(ctx, sql, a)
	return r.tag, r.err
}

func (c *fakeConn) QueryRow(
	ctx context.Context, sql string, a ...any,
) pgx.Row {
	r := c.next(ctx, sql, a)
	return &fakeRows{rows: r.rows, err: r.err}
}

func (c *fakeConn) Query(
	ctx context.Context, sql string, a ...any,
) (pgx.Rows, error) {
	r := c.next(ctx, sql, a)
	if r.err != nil {
		return nil, r.err
	}
	return &fakeRows{rows: r.rows, pos: -1}, nil
}

// fakeRows serves as both pgx.Row and pgx.Rows.
type fakeRows struct {
	pgx.Rows

	rows   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.pos >= len(r.rows) {
		return pgx.ErrNoRows
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.rows[r.pos][i]))
	}
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     { r.closed = true }

var opts = []cmp.Option{
	cmpopts.IgnoreInterfaces(struct{ context.Context }{}),
}

var created = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

func row(id, name string, created, updated time.Time) []any {
	return []any{
		id, name, "weekday nights",
		`[{"name":{"pattern":"prod","type":"prefix"},"provider":"aws"}]`,
		"or", "Europe/Berlin",
		"0 22 * * 1,2,3,4,5", "0 7 * * 1,2,3,4,5", true,
		created, updated,
	}
}

func rowSchedule(id, name string, created, updated time.Time) Schedule {
	return Schedule{
		ID:          id,
		Name:        name,
		Description: "weekday nights",
		Selectors: []Selector{{
			Name:     &Matcher{Pattern: "prod", Type: MatchPrefix},
			Provider: ProviderAWS,
		}},
		Operator:  Or,
		Timezone:  "Europe/Berlin",
		SleepCron: "0 22 * * 1,2,3,4,5",
		WakeCron:  "0 7 * * 1,2,3,4,5",
		Enabled:   true,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func newTestPgx(t *testing.T, results ...result) (*Pgx, *fakeConn) {
	t.Helper()
	conn := &fakeConn{results: append([]result{{}}, results...)}
	p, err := NewPgx(context.Background(), conn)
	if err != nil {
		t.Fatalf("NewPgx(conn) = _, %q, want <nil>", err)
	}
	return p, conn
}

func TestNewPgx(t *testing.T) {
	conn := new(fakeConn)

	_, err := NewPgx(context.Background(), conn)

	if err != nil {
		t.Errorf("NewPgx(conn) = _, %q, want <nil>", err)
	}
	wantExecs := []query{{context.Background(), stmt.CreateScheduleTable, nil}}
	if got, want := conn.queries, wantExecs; !cmp.Equal(got, want, opts...) {
		t.Errorf("queries -want +got\n%s", cmp.Diff(want, got, opts...))
	}
}

func TestNewPgxConnectionSlow(t *testing.T) {
	pgxErr := errors.New("pgx error")
	conn := &fakeConn{results: []result{{err: pgxErr}, {err: pgxErr}, {}}}
	sleeps := []time.Duration{}
	swap(t, &sleep, func(d time.Duration) { sleeps = append(sleeps, d) })
	var log bytes.Buffer
	p := &Pgx{Log: &log}

	err := p.Init(context.Background(), conn)

	if err != nil {
		t.Errorf("p.Init(conn) = %q, want <nil>", err)
	}
	var wantExecs []query
	for range 3 {
		wantExecs = append(wantExecs, query{
			context.Background(), stmt.CreateScheduleTable, nil,
		})
	}
	if got, want := conn.queries, wantExecs; !cmp.Equal(got, want, opts...) {
		t.Errorf("queries -want +got\n%s", cmp.Diff(want, got, opts...))
	}
	wantSleeps := []time.Duration{time.Second, 2 * time.Second}
	if got, want := sleeps, wantSleeps; !cmp.Equal(got, want, opts...) {
		t.Errorf("sleeps -want +got\n%s", cmp.Diff(want, got, opts...))
	}
	wantLog := "lesiw.io/snooze: pgx error\nlesiw.io/snooze: pgx error\n"
	if got, want := log.String(), wantLog; got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestNewPgxConnectionFail(t *testing.T) {
	pgxErr := errors.New("pgx error")
	conn := &fakeConn{results: []result{
		{err: pgxErr}, {err: pgxErr}, {err: pgxErr},
	}}
	sleeps := []time.Duration{}
	swap(t, &sleep, func(d time.Duration) { sleeps = append(sleeps, d) })
	p := &Pgx{Log: new(bytes.Buffer)}

	err := p.Init(context.Background(), conn)

	if !errors.Is(err, pgxErr) {
		t.Errorf("p.Init(conn) = %q, want %q", err, pgxErr)
	}
	wantSleeps := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
	}
	if got, want := sleeps, wantSleeps; !cmp.Equal(got, want, opts...) {
		t.Errorf("sleeps -want +got\n%s", cmp.Diff(want, got, opts...))
	}
}

func TestPgxPut(t *testing.T) {
	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	swap(t, &timeNow, func() time.Time { return now })
	p, conn := newTestPgx(t, result{rows: [][]any{{created}}})
	s := rowSchedule("a", "nights", time.Time{}, time.Time{})

	err := p.Put(context.Background(), &s)

	if err != nil {
		t.Fatalf("p.Put() = %q, want <nil>", err)
	}
	sel := []byte(
		`[{"name":{"pattern":"prod","type":"prefix"},"provider":"aws"}]`)
	wantQueries := []query{{
		context.Background(),
		stmt.CreateScheduleTable,
		nil,
	}, {
		context.Background(),
		stmt.UpsertSchedule,
		[]any{
			"a", "nights", "weekday nights", sel, "or", "Europe/Berlin",
			"0 22 * * 1,2,3,4,5", "0 7 * * 1,2,3,4,5", true, now, now,
		},
	}}
	if got, want := conn.queries, wantQueries; !cmp.Equal(got, want, opts...) {
		t.Errorf("queries -want +got\n%s", cmp.Diff(want, got, opts...))
	}
	want := rowSchedule("a", "nights", created, now)
	if !cmp.Equal(s, want) {
		t.Errorf("schedule -want +got\n%s", cmp.Diff(want, s))
	}
}

func TestPgxPutAssignsID(t *testing.T) {
	p, conn := newTestPgx(t, result{rows: [][]any{{created}}})
	s := &Schedule{Name: "nights"}

	if err := p.Put(context.Background(), s); err != nil {
		t.Fatalf("p.Put() = %q, want <nil>", err)
	}

	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("s.ID = %q, want a uuid: %v", s.ID, err)
	}
	args := conn.queries[1].Arg
	if got, want := args[0], any(s.ID); got != want {
		t.Errorf("id arg = %v, want %v", got, want)
	}
	if got, want := string(args[3].([]byte)), "[]"; got != want {
		t.Errorf("selectors arg = %s, want %s", got, want)
	}
}

func TestPgxPutError(t *testing.T) {
	pgxErr := errors.New("pgx error")
	p, _ := newTestPgx(t, result{err: pgxErr})

	s := &Schedule{Name: "nights"}

	err := p.Put(context.Background(), s)

	if !errors.Is(err, pgxErr) {
		t.Errorf("p.Put() = %v, want %v", err, pgxErr)
	}
	want := &Schedule{Name: "nights"}
	if !cmp.Equal(s, want) {
		t.Errorf("schedule after failed put -want +got\n%s",
			cmp.Diff(want, s))
	}
}

func TestPgxGet(t *testing.T) {
	updated := created.Add(time.Hour)
	p, conn := newTestPgx(t, result{
		rows: [][]any{row("a", "nights", created, updated)},
	})

	got, err := p.Get(context.Background(), "a")

	if err != nil {
		t.Fatalf("p.Get(%q) = _, %q, want <nil>", "a", err)
	}
	want := rowSchedule("a", "nights", created, updated)
	if !cmp.Equal(got, &want) {
		t.Errorf("p.Get(%q) -want +got\n%s", "a", cmp.Diff(&want, got))
	}
	wantQuery := query{context.Background(), stmt.SelectSchedule, []any{"a"}}
	if got := conn.queries[1]; !cmp.Equal(got, wantQuery, opts...) {
		t.Errorf("query -want +got\n%s", cmp.Diff(wantQuery, got, opts...))
	}
}

func TestPgxGetNotFound(t *testing.T) {
	p, _ := newTestPgx(t, result{})

	_, err := p.Get(context.Background(), "missing")

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("p.Get(%q) = _, %v, want %v", "missing", err, ErrNotFound)
	}
}

func TestPgxGetBadSelectors(t *testing.T) {
	r := row("a", "nights", created, created)
	r[3] = `{"not": "a list"}`
	p, _ := newTestPgx(t, result{rows: [][]any{r}})

	_, err := p.Get(context.Background(), "a")

	if err == nil {
		t.Errorf("p.Get(%q) = _, <nil>, want error", "a")
	}
}

func TestPgxList(t *testing.T) {
	p, conn := newTestPgx(t, result{rows: [][]any{
		row("a", "nights", created, created),
		row("b", "weekends", created, created),
	}})

	got, err := p.List(context.Background())

	if err != nil {
		t.Fatalf("p.List() = _, %q, want <nil>", err)
	}
	want := []Schedule{
		rowSchedule("a", "nights", created, created),
		rowSchedule("b", "weekends", created, created),
	}
	if !cmp.Equal(got, want) {
		t.Errorf("p.List() -want +got\n%s", cmp.Diff(want, got))
	}
	wantQuery := query{context.Background(), stmt.ListSchedules, nil}
	if got := conn.queries[1]; !cmp.Equal(got, wantQuery, opts...) {
		t.Errorf("query -want +got\n%s", cmp.Diff(wantQuery, got, opts...))
	}
}

func TestPgxListError(t *testing.T) {
	pgxErr := errors.New("pgx error")
	p, _ := newTestPgx(t, result{err: pgxErr})

	_, err := p.List(context.Background())

	if !errors.Is(err, pgxErr) {
		t.Errorf("p.List() = _, %v, want %v", err, pgxErr)
	}
}

func TestPgxDelete(t *testing.T) {
	p, conn := newTestPgx(t,
		result{tag: pgconn.NewCommandTag("DELETE 1")},
		result{tag: pgconn.NewCommandTag("DELETE 0")},
	)

	if err := p.Delete(context.Background(), "a"); err != nil {
		t.Errorf("p.Delete(%q) = %q, want <nil>", "a", err)
	}
	err := p.Delete(context.Background(), "a")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("p.Delete(%q) = %v, want %v", "a", err, ErrNotFound)
	}
	wantQuery := query{context.Background(), stmt.DeleteSchedule, []any{"a"}}
	if got := conn.queries[1]; !cmp.Equal(got, wantQuery, opts...) {
		t.Errorf("query -want +got\n%s", cmp.Diff(wantQuery, got, opts...))
	}
}
