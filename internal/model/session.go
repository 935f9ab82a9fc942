package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CuttingSession is a bounded work unit converting one carcass into retail
// products. A session may exist without a linked carcass (ad hoc cutting).
type CuttingSession struct {
	TenantModel
	SessionNumber string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"session_number"`
	CarcassID     *uuid.UUID `gorm:"type:uuid;index" json:"carcass_id"`
	Carcass       *Carcass   `gorm:"foreignKey:CarcassID" json:"carcass,omitempty"`

	Status        SessionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	InputWeightKg float64       `gorm:"default:0" json:"input_weight_kg"` // copied from carcass at creation
	TotalOutputKg float64       `gorm:"default:0" json:"total_output_kg"` // always sum over cuts
	WasteKg       float64       `gorm:"default:0" json:"waste_kg"`        // last-write-wins correction

	StartedAt   time.Time  `json:"started_at"`
	StartedBy   string     `gorm:"type:varchar(255)" json:"started_by"`
	EndedAt     *time.Time `json:"ended_at"`
	CompletedBy string     `gorm:"type:varchar(255)" json:"completed_by"`

	DestinationZoneID *uuid.UUID `gorm:"type:uuid" json:"destination_zone_id"`
	Notes             string     `gorm:"type:text" json:"notes"`

	Cuts []Cut `gorm:"foreignKey:SessionID" json:"cuts,omitempty"`
}

func (CuttingSession) TableName() string {
	return "cutting_sessions"
}

// Cut is a single line item produced during a session.
type Cut struct {
	BaseModel
	SessionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"session_id" validate:"uuid_required"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null" json:"product_id" validate:"uuid_required"`
	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	WeightKg  float64    `gorm:"not null" json:"weight_kg" validate:"required,gt=0"`
	Quantity  int        `gorm:"default:1" json:"quantity" validate:"gte=1"`
	GradeID   *uuid.UUID `gorm:"type:uuid" json:"grade_id"`
	Grade     *Grade     `gorm:"foreignKey:GradeID" json:"grade,omitempty" validate:"-"`
	Notes     string     `gorm:"type:text" json:"notes"`
}

func (Cut) TableName() string {
	return "cutting_session_cuts"
}
