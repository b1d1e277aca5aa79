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
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_facilities",
		SQL: `CREATE TABLE IF NOT EXISTS facilities (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  active     BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_residents",
		SQL: `CREATE TABLE IF NOT EXISTS residents (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  facility_id UUID        NOT NULL REFERENCES facilities (id),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  title        TEXT        NOT NULL,
  description  TEXT        NOT NULL DEFAULT '',
  category     TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  filename     TEXT        NOT NULL,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  mime         TEXT        NOT NULL,
  digest       TEXT        NOT NULL,
  facility_id  UUID        NOT NULL REFERENCES facilities (id),
  resident_id  UUID        REFERENCES residents (id),
  uploader_id  UUID        NOT NULL,
  expiry_date  DATE,
  confidential BOOLEAN     NOT NULL DEFAULT FALSE,
  tags         JSONB       NOT NULL DEFAULT '[]'::jsonb,
  version      INTEGER     NOT NULL DEFAULT 1,
  active       BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	// The two partial unique indexes below ARE the dedup index: the insert
	// itself is the atomic check-and-reserve for a (scope, digest) pair, so
	// concurrent identical uploads cannot both commit.
	{
		Name: "create_unique_index_documents_resident_digest",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_resident_digest
  ON documents (resident_id, digest) WHERE resident_id IS NOT NULL AND active;`,
	},
	{
		Name: "create_unique_index_documents_facility_digest",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_facility_digest
  ON documents (facility_id, digest) WHERE resident_id IS NULL AND active;`,
	},
	{
		Name: "create_index_documents_facility_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_facility_id ON documents (facility_id);`,
	},
	{
		Name: "create_index_documents_resident_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_resident_id ON documents (resident_id);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs the
// migration steps if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
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
