package store

// The snapshot table holds at most one row (slot = 1).
const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshot (
    slot           INTEGER PRIMARY KEY CHECK (slot = 1),
    username       TEXT NOT NULL DEFAULT '',
    used           REAL NOT NULL,
    quota          REAL NOT NULL,
    remaining      REAL NOT NULL,
    percent        REAL NOT NULL,
    billed_amount  REAL NOT NULL DEFAULT 0,
    reset_at       TEXT NOT NULL,
    fetched_at     TEXT NOT NULL,
    stored_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_breakdown (
    category       TEXT PRIMARY KEY,
    amount         REAL NOT NULL
);
`
