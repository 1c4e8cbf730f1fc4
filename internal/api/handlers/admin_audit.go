package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/pinfall/backend/internal/admin"
)

var errUnknownAction = errors.New("unknown audit action")

// auditFilter reads ?action=, ?session_id=, ?success=, ?limit= and ?offset=
func auditFilter(c *gin.Context) (admin.AuditFilter, error) {
	f := admin.AuditFilter{
		Action:    c.Query("action"),
		SessionID: c.Query("session_id"),
		Limit:     queryInt(c, "limit", 25, 200),
	}
	if f.Action != "" && !admin.KnownAction(f.Action) {
		return f, errUnknownAction
	}
	if v := c.Query("success"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return f, err
		}
		f.Success = &ok
	}
	if off, err := strconv.Atoi(c.Query("offset")); err == nil && off > 0 {
		f.Offset = off
	}
	return f, nil
}

// GetAdminAuditLogs lists admin actions, e.g. every close_session for one
// session or every failed login
func GetAdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := auditFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audit filter: " + err.Error()})
			return
		}

		entries, total, err := admin.ListAuditEntries(db, f)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch audit logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": entries, "total": total, "limit": f.Limit, "offset": f.Offset})
	}
}
