package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/database"
	"github.com/statafdev/nomadnest-front/internal/models"
)

// AuditLogger records admin and session events. A nil repo makes every call
// a no-op.
type AuditLogger struct {
	repo   *database.AuditRepo
	logger *zap.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(repo *database.AuditRepo, logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{repo: repo, logger: logger}
}

// Log logs an audit event
func (l *AuditLogger) Log(actorID, actorEmail, action, target string, details any, ipAddress string) {
	if l == nil || l.repo == nil {
		return
	}
	if err := l.repo.Log(actorID, actorEmail, action, target, details, ipAddress); err != nil {
		// Audit failures never fail the request
		l.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// LogFromContext logs an audit event using the session in context
func (l *AuditLogger) LogFromContext(c echo.Context, action, target string, details any) {
	var actorID, actorEmail string
	if sess := auth.SessionFrom(c); sess != nil {
		actorID = sess.UserID()
		actorEmail = sess.Claims.Email
	}
	l.Log(actorID, actorEmail, action, target, details, c.RealIP())
}

// List returns audit entries matching filter, newest first
func (l *AuditLogger) List(filter models.AuditFilter) ([]*models.AuditLog, int, error) {
	if l == nil || l.repo == nil {
		return nil, 0, nil
	}
	return l.repo.List(filter)
}

// Get returns a single audit entry
func (l *AuditLogger) Get(id int64) (*models.AuditLog, error) {
	if l == nil || l.repo == nil {
		return nil, database.ErrNotFound
	}
	return l.repo.GetByID(id)
}

// auditFilterFromQuery reads limit, offset and action from the query string
func auditFilterFromQuery(c echo.Context) models.AuditFilter {
	filter := models.AuditFilter{
		Limit:  50,
		Offset: 0,
	}

	if limit := c.QueryParam("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 && l <= 500 {
			filter.Limit = l
		}
	}
	if offset := c.QueryParam("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}
	if action := c.QueryParam("action"); action != "" {
		filter.ActionPrefix = action
	}
	if actor := c.QueryParam("actor"); actor != "" {
		filter.ActorID = actor
	}
	return filter
}
