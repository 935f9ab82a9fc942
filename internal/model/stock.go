package model

import (
	"time"

	"github.com/google/uuid"
)

type StockSource string

const (
	StockFromSession    StockSource = "session"
	StockFromTransfer   StockSource = "transfer"
	StockFromAdjustment StockSource = "adjustment"
)

// StockLot is a batch of product sitting in one zone at one unit cost. Lots
// are created by session completion and transfers, decremented by sales and
// adjustments, and kept at zero quantity rather than deleted so movements
// keep a valid back-reference.
type StockLot struct {
	TenantModel
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	ZoneID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"zone_id" validate:"uuid_required"`
	Zone      *Zone      `gorm:"foreignKey:ZoneID" json:"zone,omitempty" validate:"-"`
	GradeID   *uuid.UUID `gorm:"type:uuid" json:"grade_id"`

	QuantityKg    float64 `gorm:"not null" json:"quantity_kg" validate:"gte=0"`
	QuantityUnits int     `gorm:"default:0" json:"quantity_units"`
	CostPerKg     float64 `gorm:"default:0" json:"cost_per_kg"`
	TotalCost     float64 `gorm:"default:0" json:"total_cost"` // derived: quantity_kg * cost_per_kg

	BatchCode  string      `gorm:"type:varchar(50)" json:"batch_code"`
	SourceType StockSource `gorm:"type:varchar(20)" json:"source_type"`
	SourceID   *uuid.UUID  `gorm:"type:uuid" json:"source_id"` // session / transfer origin
	ExpiresAt  *time.Time  `json:"expires_at"`
}

func (StockLot) TableName() string {
	return "stock_lots"
}

// RecalcTotalCost keeps the derived total in step with quantity mutations.
func (l *StockLot) RecalcTotalCost() {
	l.TotalCost = l.QuantityKg * l.CostPerKg
}

type MovementType string

const (
	MovementProduction MovementType = "production"
	MovementTransfer   MovementType = "transfer"
	MovementAdjustment MovementType = "adjustment"
	MovementSale       MovementType = "sale"
	MovementVoid       MovementType = "void"
)

// StockMovement is the append-only audit record of any stock lot change.
// Rows are never updated or deleted.
type StockMovement struct {
	TenantModel
	StockLotID uuid.UUID    `gorm:"type:uuid;not null;index" json:"stock_lot_id"`
	Type       MovementType `gorm:"type:varchar(20);not null" json:"type"`
	QuantityKg float64      `gorm:"not null" json:"quantity_kg"` // signed delta
	FromZoneID *uuid.UUID   `gorm:"type:uuid" json:"from_zone_id"`
	ToZoneID   *uuid.UUID   `gorm:"type:uuid" json:"to_zone_id"`
	Reason     string       `gorm:"type:text" json:"reason"`
	// What caused the movement (sale id, session id, ...).
	ReferenceType string     `gorm:"type:varchar(20)" json:"reference_type"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid" json:"reference_id"`
	PerformedBy   string     `gorm:"type:varchar(255)" json:"performed_by"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}
