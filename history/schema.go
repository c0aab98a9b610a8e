package history

// Schema creates the run history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      TIMESTAMP NOT NULL,
	finished_at     TIMESTAMP,
	student_model   TEXT NOT NULL DEFAULT '',
	proposer_model  TEXT NOT NULL DEFAULT '',
	judge_model     TEXT NOT NULL DEFAULT '',
	num_candidates  INTEGER NOT NULL,
	num_trials      INTEGER NOT NULL,
	minibatch_size  INTEGER NOT NULL,
	seed            INTEGER NOT NULL,
	baseline_score  REAL,
	best_candidate  INTEGER,
	best_score      REAL
);

CREATE TABLE IF NOT EXISTS candidates (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx          INTEGER NOT NULL,
	instruction  TEXT NOT NULL,
	tip          TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS trials (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	trial        INTEGER NOT NULL,
	candidate    INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	examples     TEXT NOT NULL,
	score        REAL NOT NULL,
	best_score   REAL NOT NULL,
	duration_ms  INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_trials_candidate ON trials(run_id, candidate);
`
