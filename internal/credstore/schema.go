package credstore

const schemaSQL = `
CREATE TABLE IF NOT EXISTS session_kv (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
`
