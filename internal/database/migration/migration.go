package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_evidence",
		SQL: `CREATE TABLE IF NOT EXISTS evidence (
  id                 TEXT        PRIMARY KEY,
  case_id            TEXT        NOT NULL,
  evidence_type      TEXT        NOT NULL,
  description        TEXT        NOT NULL DEFAULT '',
  notes              TEXT        NOT NULL DEFAULT '',
  original_filename  TEXT        NOT NULL,
  storage_path       TEXT        NOT NULL UNIQUE,
  file_size          BIGINT      NOT NULL CHECK (file_size >= 0),
  content_type       TEXT        NOT NULL,
  content_digest     CHAR(64)    NOT NULL,
  status             TEXT        NOT NULL DEFAULT 'registered',
  custodian          TEXT        NOT NULL,
  custodian_name     TEXT        NOT NULL,
  integrity_verified BOOLEAN     NOT NULL DEFAULT FALSE,
  ledger_reference   TEXT        NOT NULL DEFAULT '',
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_custody_events",
		SQL: `CREATE TABLE IF NOT EXISTS custody_events (
  id               TEXT        PRIMARY KEY,
  evidence_id      TEXT        NOT NULL REFERENCES evidence (id),
  seq              BIGINT      NOT NULL,
  event            TEXT        NOT NULL,
  actor_role       TEXT        NOT NULL,
  actor_name       TEXT        NOT NULL,
  details          TEXT        NOT NULL DEFAULT '',
  ledger_reference TEXT        NOT NULL DEFAULT '',
  occurred_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (evidence_id, seq)
);`,
	},
	{
		Name: "create_table_evidence_id_counters",
		SQL: `CREATE TABLE IF NOT EXISTS evidence_id_counters (
  year INT    PRIMARY KEY,
  next BIGINT NOT NULL
);`,
	},
	{
		Name: "create_index_evidence_case_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_evidence_case_id ON evidence (case_id);`,
	},
	{
		Name: "create_index_evidence_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_evidence_status ON evidence (status);`,
	},
	{
		Name: "create_index_evidence_custodian",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_evidence_custodian ON evidence (custodian);`,
	},
	{
		Name: "create_index_evidence_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_evidence_created_at ON evidence (created_at);`,
	},
	{
		Name: "create_index_custody_events_evidence_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_custody_events_evidence_id ON custody_events (evidence_id, seq);`,
	},
}

// EnsureMigrated checks if the 'evidence' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.evidence') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
