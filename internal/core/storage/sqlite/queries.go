package sqlite

const (
	queryGetValue = `SELECT value FROM kv_store WHERE key = ?`

	// querySetValue replaces the value for a key in one statement.
	querySetValue = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	querySchemaExists = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'kv_store'`
)
