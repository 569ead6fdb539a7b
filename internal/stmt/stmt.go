// Package stmt holds the SQL used by the Postgres schedule store.
package stmt

const CreateScheduleTable = `CREATE TABLE IF NOT EXISTS snooze_schedule (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    selectors   JSONB NOT NULL DEFAULT '[]',
    operator    TEXT NOT NULL DEFAULT 'and',
    timezone    TEXT NOT NULL DEFAULT 'UTC',
    sleep_cron  TEXT NOT NULL,
    wake_cron   TEXT NOT NULL,
    enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
)`

const UpsertSchedule = `INSERT INTO snooze_schedule (
    id, name, description, selectors, operator,
    timezone, sleep_cron, wake_cron, enabled, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    selectors = EXCLUDED.selectors,
    operator = EXCLUDED.operator,
    timezone = EXCLUDED.timezone,
    sleep_cron = EXCLUDED.sleep_cron,
    wake_cron = EXCLUDED.wake_cron,
    enabled = EXCLUDED.enabled,
    updated_at = EXCLUDED.updated_at
RETURNING created_at`

const SelectSchedule = `SELECT id, name, description, selectors, operator,
    timezone, sleep_cron, wake_cron, enabled, created_at, updated_at
FROM snooze_schedule WHERE id = $1`

const ListSchedules = `SELECT id, name, description, selectors, operator,
    timezone, sleep_cron, wake_cron, enabled, created_at, updated_at
FROM snooze_schedule ORDER BY created_at, name`

const DeleteSchedule = `DELETE FROM snooze_schedule WHERE id = $1`
