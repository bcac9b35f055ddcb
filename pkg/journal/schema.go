package journal

// SQLite schema DDL constants

const schemaLoads = `
CREATE TABLE IF NOT EXISTS loads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    at TEXT NOT NULL,
    path TEXT NOT NULL,
    module TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    version TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT ''
)`

const indexLoadsPath = `CREATE INDEX IF NOT EXISTS idx_loads_path ON loads(path, id)`

const pragmaBusyTimeout = `PRAGMA busy_timeout = 5000`

func allStatements() []string {
	return []string{pragmaBusyTimeout, schemaLoads, indexLoadsPath}
}

const columns = `id, at, path, module, name, version, kind, message`

const insertLoad = `
INSERT INTO loads (at, path, module, name, version, kind, message)
VALUES (?, ?, ?, ?, ?, ?, ?)`

const selectRecent = `SELECT ` + columns + ` FROM loads ORDER BY id DESC LIMIT ?`

const selectFailures = `SELECT ` + columns + ` FROM loads WHERE kind != '' ORDER BY id DESC LIMIT ?`

const selectLast = `SELECT ` + columns + ` FROM loads WHERE path = ? ORDER BY id DESC LIMIT 1`
