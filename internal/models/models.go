package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Drop is one sphere that fell out of the board
type Drop struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Scene      string    `db:"scene" json:"scene"`
	BodyID     int64     `db:"body_id" json:"body_id"`
	Trigger    string    `db:"trigger" json:"trigger"`
	SpawnX     float64   `db:"spawn_x" json:"spawn_x"`
	ExitX      float64   `db:"exit_x" json:"exit_x"`
	Slot       int       `db:"slot" json:"slot"`
	Frames     int       `db:"frames" json:"frames"`
	LifetimeMS int64     `db:"lifetime_ms" json:"lifetime_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AdminAccount can tear down sessions through the admin API
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AuditEntry is one admin API call as recorded in admin_audit
type AuditEntry struct {
	ID            int64          `db:"id" json:"id"`
	AdminUsername *string        `db:"admin_username" json:"admin_username"`
	IP            *string        `db:"ip" json:"ip"`
	Route         *string        `db:"route" json:"route"`
	Action        *string        `db:"action" json:"action"`
	Details       types.JSONText `db:"details" json:"details"`
	Success       *bool          `db:"success" json:"success"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
