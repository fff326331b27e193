package statistics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresDB is the generation log in PostgreSQL.
type PostgresDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// ConnString builds a lib/pq connection string.
func ConnString(host, port, dbname, user, password string) string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)
}

// NewPostgresDB connects, pings and creates the schema.
func NewPostgresDB(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &PostgresDB{db: db, logger: logger}
	if err := p.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

// InitSchema creates the generation_logs table.
func (p *PostgresDB) InitSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generation_logs (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
			report_number TEXT NOT NULL,
			document_type TEXT NOT NULL,
			backend TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			fell_back BOOLEAN NOT NULL,
			duration_ns BIGINT NOT NULL,
			size_bytes BIGINT NOT NULL,
			pages INTEGER NOT NULL,
			primary_error TEXT,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_generation_logs_timestamp ON generation_logs(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const insertGeneration = `INSERT INTO generation_logs
	(id, timestamp, report_number, document_type, backend, success, fell_back,
	 duration_ns, size_bytes, pages, primary_error, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// RecordGeneration implements Recorder.
func (p *PostgresDB) RecordGeneration(ctx context.Context, g Generation) {
	_, err := p.db.ExecContext(ctx, insertGeneration, generationArgs(g)...)
	if err != nil {
		p.logger.Error("failed to log generation",
			zap.String("generation_id", g.ID),
			zap.Error(err),
		)
	}
}

func generationArgs(g Generation) []any {
	return []any{
		g.ID,
		g.Timestamp.UTC(),
		g.ReportNumber,
		g.DocumentType,
		g.Backend,
		g.Success,
		g.FellBack,
		g.Duration.Nanoseconds(),
		int64(g.SizeBytes),
		g.Pages,
		nullString(g.PrimaryError),
		nullString(g.Error),
	}
}

// BackendCounts returns generations per backend. A zero since counts all rows.
func (p *PostgresDB) BackendCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	query := `SELECT backend, COUNT(*) FROM generation_logs`
	var args []any
	if !since.IsZero() {
		query += ` WHERE timestamp >= $1`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY backend`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var backend string
		var n uint64
		if err := rows.Scan(&backend, &n); err != nil {
			return nil, fmt.Errorf("failed to scan generation counts: %w", err)
		}
		counts[backend] = n
	}
	return counts, rows.Err()
}

// Close closes the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
