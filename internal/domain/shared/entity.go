package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything persisted under a UUID primary key
type Entity interface {
	GetID() uuid.UUID
}

// BaseEntity carries the identity and audit columns shared by stored rows.
// Timestamps are kept in UTC.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (e *BaseEntity) GetID() uuid.UUID { return e.ID }

// Touch marks the row as modified now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// NewBaseEntity assigns a fresh ID and stamps both timestamps with the same instant
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}
