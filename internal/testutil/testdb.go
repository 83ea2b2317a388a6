// Package testutil holds helpers shared by tests that need a real database.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"matchmesh/internal/config"
)

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresDSN returns a DSN bound to a fresh schema that is dropped when the
// test ends, unless TEST_KEEP_SCHEMA is set. The test is skipped when
// TEST_POSTGRES_DSN is unset.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.PostgresDSN
	schema := fmt.Sprintf("%s_%d", cfg.SchemaPrefix, time.Now().UnixNano())
	if err := execSchemaDDL(dsn, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if cfg.KeepSchema {
		t.Logf("keeping schema %s", schema)
	} else {
		t.Cleanup(func() {
			_ = execSchemaDDL(dsn, "DROP SCHEMA %s CASCADE", schema)
		})
	}
	return WithSearchPath(dsn, schema)
}

func WithSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func execSchemaDDL(dsn, format, schema string) error {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("schema %q does not match required pattern", schema)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()))
	return err
}
