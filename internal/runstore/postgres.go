package runstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// PostgresStore backs the tracking records with a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings, and ensures the run-record table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Printf("Connected to tracking store (postgres)")
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ticket_runs (
			run_id           TEXT PRIMARY KEY,
			storage_location TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure ticket_runs table: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAudit(ctx context.Context, auditID string) (*Audit, error) {
	var audit Audit
	var ticketsPath *string

	err := s.pool.QueryRow(ctx, `
		SELECT audit_id, domain, audit_date::text, report_path, tickets_path
		FROM seo_audits
		WHERE audit_id = $1
	`, auditID).Scan(&audit.AuditID, &audit.Domain, &audit.AuditDate, &audit.ReportPath, &ticketsPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAuditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up audit %s: %w", auditID, err)
	}

	if ticketsPath != nil {
		audit.TicketsPath = *ticketsPath
	}
	return &audit, nil
}

func (s *PostgresStore) SetAuditTicketsPath(ctx context.Context, auditID, path string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE seo_audits SET tickets_path = $1 WHERE audit_id = $2
	`, path, auditID)
	if err != nil {
		return fmt.Errorf("failed to record tickets path for audit %s: %w", auditID, err)
	}
	return nil
}

func (s *PostgresStore) ListAuditsByDate(ctx context.Context, auditDate string) ([]Audit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT audit_id, domain, audit_date::text, report_path, COALESCE(tickets_path, '')
		FROM seo_audits
		WHERE audit_date::text = $1 AND report_path IS NOT NULL
	`, auditDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits for %s: %w", auditDate, err)
	}
	defer rows.Close()

	var audits []Audit
	for rows.Next() {
		var audit Audit
		if err := rows.Scan(&audit.AuditID, &audit.Domain, &audit.AuditDate, &audit.ReportPath, &audit.TicketsPath); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

func (s *PostgresStore) MaxAuditDate(ctx context.Context) (string, error) {
	var date *string
	err := s.pool.QueryRow(ctx, `SELECT MAX(audit_date::text) FROM seo_audits`).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to find latest audit date: %w", err)
	}
	if date == nil {
		return "", nil
	}
	return *date, nil
}

func (s *PostgresStore) FindRunRecord(ctx context.Context, runID string) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, storage_location, created_at
		FROM ticket_runs
		WHERE run_id = $1
	`, runID).Scan(&record.RunID, &record.StorageLocation, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run record %s: %w", runID, err)
	}
	return &record, nil
}

// LatestRunRecord returns the most recent run record, or nil when none
// exists. Run ids are dates for combined runs, so lexical order is
// chronological.
func (s *PostgresStore) LatestRunRecord(ctx context.Context) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, storage_location, created_at
		FROM ticket_runs
		ORDER BY run_id DESC
		LIMIT 1
	`).Scan(&record.RunID, &record.StorageLocation, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up latest run record: %w", err)
	}
	return &record, nil
}

// InsertRunRecord claims the run id with ON CONFLICT DO NOTHING, so only
// one of two racing invocations observes inserted == true.
func (s *PostgresStore) InsertRunRecord(ctx context.Context, runID, storageLocation string, createdAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ticket_runs (run_id, storage_location, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO NOTHING
	`, runID, storageLocation, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert run record %s: %w", runID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ClearRunRecord(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ticket_runs WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to clear run record %s: %w", runID, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
