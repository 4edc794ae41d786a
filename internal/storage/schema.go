package storage

const schema = `
-- The 'kv' table holds durable application state as JSON documents, one per
-- logical key. The whole card deck and its review log live under one key.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
