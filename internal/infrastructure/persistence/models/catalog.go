package models

import "github.com/google/uuid"

// Catalog record statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// ProductModel is the catalog's product row.
type ProductModel struct {
	StoreModel
	Code   string `gorm:"type:varchar(50);not null"`
	Name   string `gorm:"type:varchar(200);not null"`
	Status string `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// NewProductModel builds an active product.
func NewProductModel(storeID uuid.UUID, code, name string) *ProductModel {
	return &ProductModel{StoreModel: NewStoreModel(storeID), Code: code, Name: name, Status: StatusActive}
}

// WarehouseModel is the catalog's warehouse row.
type WarehouseModel struct {
	StoreModel
	Code      string `gorm:"type:varchar(50);not null"`
	Name      string `gorm:"type:varchar(200);not null"`
	Status    string `gorm:"type:varchar(20);not null;default:'active'"`
	IsDefault bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// NewWarehouseModel builds an active warehouse.
func NewWarehouseModel(storeID uuid.UUID, code, name string, isDefault bool) *WarehouseModel {
	return &WarehouseModel{
		StoreModel: NewStoreModel(storeID),
		Code:       code,
		Name:       name,
		Status:     StatusActive,
		IsDefault:  isDefault,
	}
}
