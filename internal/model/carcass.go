package model

import (
	"time"

	"github.com/google/uuid"
)

type CarcassStatus string

const (
	CarcassPending    CarcassStatus = "pending"
	CarcassProcessing CarcassStatus = "processing"
	CarcassCompleted  CarcassStatus = "completed"
)

// Carcass is a received unit of livestock prior to cutting. It is created on
// receipt, transitioned by the cutting session lifecycle, and never deleted.
type Carcass struct {
	TenantModel
	CarcassNumber string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"carcass_number"`
	SupplierID    *uuid.UUID `gorm:"type:uuid" json:"supplier_id"`
	Supplier      *Supplier  `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	GradeID       *uuid.UUID `gorm:"type:uuid" json:"grade_id"`
	Grade         *Grade     `gorm:"foreignKey:GradeID" json:"grade,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
	ReceivedBy string    `gorm:"type:varchar(255)" json:"received_by"`

	WeightKg  float64       `gorm:"not null" json:"weight_kg" validate:"required,gt=0"`
	CostTotal float64       `gorm:"not null" json:"cost_total" validate:"gte=0"`
	CostPerKg float64       `gorm:"default:0" json:"cost_per_kg"` // derived: cost_total / weight_kg
	Status    CarcassStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	// Rolled up when the cutting session completes.
	TotalOutputKg   float64 `gorm:"default:0" json:"total_output_kg"`
	WasteKg         float64 `gorm:"default:0" json:"waste_kg"`
	YieldPercentage float64 `gorm:"default:0" json:"yield_percentage"`

	// Rolled up from completed sales of this carcass's stock.
	TotalRevenue  float64 `gorm:"default:0" json:"total_revenue"`
	Margin        float64 `gorm:"default:0" json:"margin"`
	MarginPercent float64 `gorm:"default:0" json:"margin_percent"`

	DestinationZoneID *uuid.UUID `gorm:"type:uuid" json:"destination_zone_id"`
	Notes             string     `gorm:"type:text" json:"notes"`
}

func (Carcass) TableName() string {
	return "carcasses"
}
