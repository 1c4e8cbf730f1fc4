package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pinfall/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid admin credentials")

// Audited actions
const (
	ActionAuth         = "auth"
	ActionCloseSession = "close_session"
)

// KnownAction reports whether action is one the admin API records
func KnownAction(action string) bool {
	return action == ActionAuth || action == ActionCloseSession
}

// GetAdminAccount retrieves an admin account by username
func GetAdminAccount(db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var acc models.AdminAccount
	err := db.Get(&acc, `SELECT username, display_name, token_hash, roles, created_at, updated_at FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// HashToken returns the bcrypt hash stored for an admin token
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// CreateAdminAccount creates or replaces an admin account
func CreateAdminAccount(db *sqlx.DB, username, displayName, plainToken string, roles []string) error {
	hashed, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO admin_accounts (username, display_name, token_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, username, displayName, hashed, pq.Array(roles))

	return err
}

// ValidateAdminToken loads the account and checks its token
func ValidateAdminToken(db *sqlx.DB, username, token string) (*models.AdminAccount, error) {
	if username == "" || token == "" {
		return nil, ErrInvalidCredentials
	}
	acc, err := GetAdminAccount(db, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !VerifyAdminToken(acc.TokenHash, token) {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// LogAdminAction records an admin action in the audit log
func LogAdminAction(db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[ADMIN] Failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO admin_audit (admin_username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, NOW())
	`, username, ip, route, action, string(detailsJSON), success)
	return err
}

// AuditFilter narrows an audit log read. Zero values match everything
type AuditFilter struct {
	Action    string
	SessionID string
	Success   *bool
	Limit     int
	Offset    int
}

// ListAuditEntries returns matching entries, newest first, and the total
// number of matches
func ListAuditEntries(db *sqlx.DB, f AuditFilter) ([]models.AuditEntry, int, error) {
	type row struct {
		models.AuditEntry
		Total int `db:"total_count"`
	}
	var rows []row
	err := db.Select(&rows, `
		SELECT id, admin_username, ip, route, action, COALESCE(details, '{}'::jsonb) AS details, success, created_at,
			COUNT(*) OVER() AS total_count
		FROM admin_audit
		WHERE ($1 = '' OR action = $1)
			AND ($2 = '' OR details->>'session_id' = $2)
			AND ($3::boolean IS NULL OR success = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, f.Action, f.SessionID, f.Success, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]models.AuditEntry, len(rows))
	total := 0
	for i, r := range rows {
		entries[i] = r.AuditEntry
		total = r.Total
	}
	return entries, total, nil
}
