package sqlite

const schema = `
-- Plans table: one row per plan, full step list stored as JSON.
-- There is deliberately no separate step table; steps are owned by
-- their plan and are always read and written as part of it.
CREATE TABLE IF NOT EXISTS plans (
    id TEXT PRIMARY KEY,
    destination TEXT NOT NULL,
    duration_days INTEGER NOT NULL CHECK(duration_days >= 1),
    status TEXT NOT NULL DEFAULT 'planning',
    steps TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_plans_status ON plans(status);
CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);

-- Plan events table (audit trail of step transitions)
CREATE TABLE IF NOT EXISTS plan_events (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    step_id TEXT,
    step_type TEXT,
    severity TEXT NOT NULL DEFAULT 'info',
    message TEXT NOT NULL DEFAULT '',
    result TEXT,
    created_at DATETIME NOT NULL,
    FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_plan_events_plan ON plan_events(plan_id);
CREATE INDEX IF NOT EXISTS idx_plan_events_created_at ON plan_events(created_at);

-- Config key/value table
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
