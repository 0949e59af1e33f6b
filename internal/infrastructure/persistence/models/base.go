package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreModel holds the columns every catalog table shares.
type StoreModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewStoreModel returns a StoreModel with a fresh ID.
func NewStoreModel(storeID uuid.UUID) StoreModel {
	now := time.Now().UTC()
	return StoreModel{ID: uuid.New(), StoreID: storeID, CreatedAt: now, UpdatedAt: now}
}
