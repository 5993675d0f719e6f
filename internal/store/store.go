// Package store holds the queries of the service. Every function takes the
// caller's context and scopes reads and writes by the owning user id.
package store

import (
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Meta describes the client behind a mutation, for the audit trail.
type Meta struct {
	IP        string
	UserAgent string
}

// emailTaken maps a unique violation on insert or update to ErrEmailTaken.
// The count check before the write cannot see a concurrent signup.
func emailTaken(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func writeAudit(tx *gorm.DB, userID, action, entityType, entityID string, changes any, meta Meta) error {
	var raw datatypes.JSON
	if changes != nil {
		b, err := json.Marshal(changes)
		if err != nil {
			return err
		}
		raw = b
	}
	return tx.Create(&dbpkg.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    raw,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}).Error
}

// Page normalises pagination input: page >= 1, limit in 1..100 (default 10).
func Page(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
