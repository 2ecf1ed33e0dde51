package data

import (
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	createSchemaVersionSQL = `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`
	selectSchemaVersionSQL = `SELECT COALESCE(MAX(version), 0) FROM schema_version`
	insertSchemaVersionSQL = `INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`
)

var (
	//go:embed sql/*.sql
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// Init opens the database at dsn and applies pending schema migrations.
// A postgres:// or postgresql:// dsn selects Postgres, anything else is
// treated as a Sqlite file path.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("dsn not specified")
	}

	db, err := GetDB(dsn)
	if err != nil {
		return errors.Wrapf(err, "error opening database: %s", redact(dsn))
	}
	defer db.Close()

	if err := migrate(db); err != nil {
		return errors.Wrapf(err, "failed to migrate database: %s", redact(dsn))
	}
	return nil
}

// GetDB opens the database for dsn.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverSQLite
	if IsPostgres(dsn) {
		driver = driverPostgres
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", redact(dsn))
	}
	return conn, nil
}

// IsPostgres reports whether dsn addresses a Postgres server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// redact hides credentials in a postgres dsn.
func redact(dsn string) string {
	if !IsPostgres(dsn) {
		return dsn
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

// rebind rewrites ? placeholders to $n when db is a Postgres connection.
func rebind(db *sql.DB, query string) string {
	if _, ok := db.Driver().(*pq.Driver); !ok {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(createSchemaVersionSQL); err != nil {
		return errors.Wrap(err, "failed to create schema_version table")
	}

	var current int
	if err := db.QueryRow(selectSchemaVersionSQL).Scan(&current); err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}

	files, err := fs.Glob(f, "sql/*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to list migrations")
	}
	sort.Strings(files)

	for _, name := range files {
		version, err := migrationVersion(name)
		if err != nil {
			return err
		}
		if version <= current {
			continue
		}

		b, err := f.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration: %s", name)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrap(err, "failed to begin migration transaction")
		}
		if _, err := tx.Exec(string(b)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to apply migration: %s", name)
		}
		if _, err := tx.Exec(rebind(db, insertSchemaVersionSQL), version); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to record migration: %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "failed to commit migration: %s", name)
		}
		slog.Debug("migration applied", "name", name, "version", version)
	}
	return nil
}

// migrationVersion parses the numeric prefix of sql/0001_name.sql.
func migrationVersion(name string) (int, error) {
	base := strings.TrimPrefix(name, "sql/")
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.Errorf("migration name missing version prefix: %s", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid migration version: %s", name)
	}
	return v, nil
}
