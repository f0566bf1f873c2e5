// Package tracking records pipeline runs in a SQL table.
package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"    // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers "sqlite", which sqlx does not know the bindvar of
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Run is one row of the pipeline_runs table.
type Run struct {
	ID           string    `db:"id"`
	Family       string    `db:"family"`
	TrainRows    int       `db:"train_rows"`
	TestRows     int       `db:"test_rows"`
	RMSE         float64   `db:"rmse"`
	MAE          float64   `db:"mae"`
	R2           float64   `db:"r2"`
	ArtifactPath string    `db:"artifact_path"`
	CreatedAt    time.Time `db:"created_at"`
}

var schemas = map[string]string{
	DriverSQLite: `
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			id            TEXT PRIMARY KEY,
			family        TEXT NOT NULL,
			train_rows    INTEGER NOT NULL,
			test_rows     INTEGER NOT NULL,
			rmse          REAL NOT NULL,
			mae           REAL NOT NULL,
			r2            REAL NOT NULL,
			artifact_path TEXT NOT NULL,
			created_at    DATETIME NOT NULL
		)`,
	DriverPostgres: `
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			id            UUID PRIMARY KEY,
			family        TEXT NOT NULL,
			train_rows    INTEGER NOT NULL,
			test_rows     INTEGER NOT NULL,
			rmse          DOUBLE PRECISION NOT NULL,
			mae           DOUBLE PRECISION NOT NULL,
			r2            DOUBLE PRECISION NOT NULL,
			artifact_path TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
}

// Ledger appends and lists runs.
type Ledger struct {
	db *sqlx.DB
}

// Open connects to dsn with driver and creates the table if needed.
func Open(ctx context.Context, driver, dsn string) (*Ledger, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, errors.NewValidationError("tracking.driver", "unsupported driver", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", driver)
	}
	if driver == DriverSQLite {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create pipeline_runs")
	}
	return &Ledger{db: db}, nil
}

// NewLedger wraps an open connection. The table must exist.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// Record inserts r. An empty ID gets a new UUID and a zero CreatedAt the
// current time. The stored row is returned.
func (l *Ledger) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Second)

	const query = `
		INSERT INTO pipeline_runs (
			id, family, train_rows, test_rows, rmse, mae, r2, artifact_path, created_at
		) VALUES (
			:id, :family, :train_rows, :test_rows, :rmse, :mae, :r2, :artifact_path, :created_at
		)`
	if _, err := l.db.NamedExecContext(ctx, query, r); err != nil {
		return Run{}, errors.Wrap(err, "insert pipeline run")
	}
	return r, nil
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, family, train_rows, test_rows, rmse, mae, r2, artifact_path, created_at
		FROM pipeline_runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var runs []Run
	if err := l.db.SelectContext(ctx, &runs, l.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "list pipeline runs")
	}
	for i := range runs {
		runs[i].CreatedAt = runs[i].CreatedAt.UTC()
	}
	return runs, nil
}

// Close closes the connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
