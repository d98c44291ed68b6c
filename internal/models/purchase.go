package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PurchaseStatus string

const (
	PurchaseActive   PurchaseStatus = "active"
	PurchaseRefunded PurchaseStatus = "refunded"
)

// PurchaseRecord is written by the payment collaborator. The engine only reads active rows.
type PurchaseRecord struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UserID         string          `json:"user_id" gorm:"not null;size:255;index:idx_purchase_lookup"`
	TestID         uint            `json:"test_id" gorm:"not null;index:idx_purchase_lookup"`
	Status         PurchaseStatus  `json:"status" gorm:"not null;size:20;index:idx_purchase_lookup"`
	PurchasedAt    time.Time       `json:"purchased_at" gorm:"not null"`
	AmountPaid     decimal.Decimal `json:"amount_paid" gorm:"type:numeric(10,2);not null"`
	Currency       string          `json:"currency" gorm:"size:3"`
	TransactionRef string          `json:"transaction_ref" gorm:"size:255"`
}

func (PurchaseRecord) TableName() string {
	return "purchase_records"
}

// Profile holds the capability metadata kept next to the identity provider.
type Profile struct {
	UserID    string         `json:"user_id" gorm:"primaryKey;size:255"`
	IsAdmin   bool           `json:"is_admin" gorm:"default:false"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
