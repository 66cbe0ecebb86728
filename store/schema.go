package store

// Schema creates the run and curve tables. A run is one cook of a scenario
// container; each of its variants is one curve row.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	as_of TEXT NOT NULL,
	mask TEXT NOT NULL,
	bump REAL NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS curves (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	variant TEXT NOT NULL,
	label TEXT NOT NULL,
	body BLOB NOT NULL,
	PRIMARY KEY (run_id, variant)
);

CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label, created_at);
`
