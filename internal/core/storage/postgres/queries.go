package postgres

// SQL for the key-value table backing the event log.

const (
	queryGetValue = `SELECT value FROM kv_store WHERE key = $1`

	// querySetValue upserts the whole value for a key.
	querySetValue = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	querySchemaExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'kv_store'
		)
	`
)
