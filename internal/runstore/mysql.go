package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// MySQLStore is the MySQL variant of the tracking store, for deployments
// whose audit metadata already lives in MySQL.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens, pings, and ensures the run-record table.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Connected to tracking store (mysql)")
	return store, nil
}

func (s *MySQLStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS ticket_runs (
			run_id           VARCHAR(255) PRIMARY KEY,
			storage_location TEXT NOT NULL,
			created_at       DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure ticket_runs table: %w", err)
	}
	return nil
}

func (s *MySQLStore) FindAudit(ctx context.Context, auditID string) (*Audit, error) {
	var audit Audit
	var ticketsPath sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT audit_id, domain, audit_date, report_path, tickets_path
		FROM seo_audits
		WHERE audit_id = ?
	`, auditID).Scan(&audit.AuditID, &audit.Domain, &audit.AuditDate, &audit.ReportPath, &ticketsPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up audit %s: %w", auditID, err)
	}

	audit.TicketsPath = ticketsPath.String
	return &audit, nil
}

func (s *MySQLStore) SetAuditTicketsPath(ctx context.Context, auditID, path string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE seo_audits SET tickets_path = ? WHERE audit_id = ?
	`, path, auditID)
	if err != nil {
		return fmt.Errorf("failed to record tickets path for audit %s: %w", auditID, err)
	}
	return nil
}

func (s *MySQLStore) ListAuditsByDate(ctx context.Context, auditDate string) ([]Audit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT audit_id, domain, audit_date, report_path, COALESCE(tickets_path, '')
		FROM seo_audits
		WHERE audit_date = ? AND report_path IS NOT NULL
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

func (s *MySQLStore) MaxAuditDate(ctx context.Context) (string, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(audit_date) FROM seo_audits`).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to find latest audit date: %w", err)
	}
	return date.String, nil
}

func (s *MySQLStore) FindRunRecord(ctx context.Context, runID string) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, storage_location, created_at
		FROM ticket_runs
		WHERE run_id = ?
	`, runID).Scan(&record.RunID, &record.StorageLocation, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run record %s: %w", runID, err)
	}
	return &record, nil
}

// LatestRunRecord returns the most recent run record, or nil when none
// exists.
func (s *MySQLStore) LatestRunRecord(ctx context.Context) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, storage_location, created_at
		FROM ticket_runs
		ORDER BY run_id DESC
		LIMIT 1
	`).Scan(&record.RunID, &record.StorageLocation, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up latest run record: %w", err)
	}
	return &record, nil
}

// InsertRunRecord claims the run id with INSERT IGNORE; a duplicate key
// affects zero rows, so only one racing invocation observes true.
func (s *MySQLStore) InsertRunRecord(ctx context.Context, runID, storageLocation string, createdAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO ticket_runs (run_id, storage_location, created_at)
		VALUES (?, ?, ?)
	`, runID, storageLocation, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert run record %s: %w", runID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result for %s: %w", runID, err)
	}
	return affected == 1, nil
}

func (s *MySQLStore) ClearRunRecord(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ticket_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to clear run record %s: %w", runID, err)
	}
	return nil
}

func (s *MySQLStore) Close() {
	s.db.Close()
}
