package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/statafdev/nomadnest-front/internal/models"
)

// ErrNotFound is returned when an entity is not found
var ErrNotFound = sql.ErrNoRows

// AuditRepo handles audit log database operations
type AuditRepo struct{}

// NewAuditRepo creates a new audit repository
func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

// Create creates a new audit log entry
func (r *AuditRepo) Create(log *models.AuditLog) error {
	result, err := DB.Exec(`
		INSERT INTO audit_logs (timestamp, actor_id, actor_email, action, target, details, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, log.Timestamp.UTC(), log.ActorID, log.ActorEmail, log.Action, log.Target, log.Details, log.IPAddress)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = id
	return nil
}

// Log creates an entry stamped with the current time. details is stored as JSON.
func (r *AuditRepo) Log(actorID, actorEmail, action, target string, details any, ipAddress string) error {
	var detailsJSON string
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(b)
		}
	}

	return r.Create(&models.AuditLog{
		Timestamp:  time.Now(),
		ActorID:    actorID,
		ActorEmail: actorEmail,
		Action:     action,
		Target:     target,
		Details:    detailsJSON,
		IPAddress:  ipAddress,
	})
}

// List retrieves audit logs, newest first, with the total matching count
func (r *AuditRepo) List(filter models.AuditFilter) ([]*models.AuditLog, int, error) {
	baseQuery := "FROM audit_logs WHERE 1=1"
	args := []any{}

	if filter.ActorID != "" {
		baseQuery += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.ActionPrefix != "" {
		baseQuery += " AND action LIKE ?"
		args = append(args, filter.ActionPrefix+"%")
	}
	if !filter.StartTime.IsZero() {
		baseQuery += " AND timestamp >= ?"
		args = append(args, filter.StartTime.UTC())
	}
	if !filter.EndTime.IsZero() {
		baseQuery += " AND timestamp <= ?"
		args = append(args, filter.EndTime.UTC())
	}

	var total int
	if err := DB.QueryRow("SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id, timestamp, actor_id, actor_email, action, target, details, ip_address " + baseQuery
	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}

// GetByID retrieves a single audit log by ID
func (r *AuditRepo) GetByID(id int64) (*models.AuditLog, error) {
	row := DB.QueryRow(`
		SELECT id, timestamp, actor_id, actor_email, action, target, details, ip_address
		FROM audit_logs WHERE id = ?
	`, id)

	log, err := scanAuditLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return log, err
}

// DeleteOlderThan deletes audit logs older than the specified time
func (r *AuditRepo) DeleteOlderThan(t time.Time) (int64, error) {
	result, err := DB.Exec("DELETE FROM audit_logs WHERE timestamp < ?", t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(s scanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	var actorID, actorEmail, target, details, ipAddress sql.NullString

	err := s.Scan(
		&log.ID, &log.Timestamp, &actorID, &actorEmail,
		&log.Action, &target, &details, &ipAddress,
	)
	if err != nil {
		return nil, err
	}

	log.ActorID = actorID.String
	log.ActorEmail = actorEmail.String
	log.Target = target.String
	log.Details = details.String
	log.IPAddress = ipAddress.String
	return log, nil
}
