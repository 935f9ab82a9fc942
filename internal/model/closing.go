package model

import (
	"time"

	"github.com/google/uuid"
)

type ClosingStatus string

const (
	ClosingInProgress ClosingStatus = "in_progress"
	ClosingCompleted  ClosingStatus = "completed"
)

// DailyClosing is the end-of-day reconciliation record, one per organization
// per calendar date. Completion is terminal; there is no reopen.
type DailyClosing struct {
	BaseModel
	// One closing per organization per date, enforced by the database as
	// well as the start check. Soft-deleted rows stay out of the index.
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_closings_org_date,where:deleted_at IS NULL" json:"organization_id"`

	ClosingDate string        `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_closings_org_date,where:deleted_at IS NULL" json:"closing_date"` // YYYY-MM-DD
	Status      ClosingStatus `gorm:"type:varchar(15);default:'in_progress'" json:"status"`

	StartedAt   time.Time  `json:"started_at"`
	StartedBy   uuid.UUID  `gorm:"type:uuid" json:"started_by"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy *uuid.UUID `gorm:"type:uuid" json:"completed_by"`

	// Snapshot of the day's trade, frozen at start.
	TotalSales        float64 `gorm:"default:0" json:"total_sales"`
	TransactionCount  int     `gorm:"default:0" json:"transaction_count"`
	TotalWeightSoldKg float64 `gorm:"default:0" json:"total_weight_sold_kg"`

	ExpectedStockKg      float64 `gorm:"default:0" json:"expected_stock_kg"`
	ActualStockKg        float64 `gorm:"default:0" json:"actual_stock_kg"`
	StockVarianceKg      float64 `gorm:"default:0" json:"stock_variance_kg"`
	StockVariancePercent float64 `gorm:"default:0" json:"stock_variance_percent"`

	Notes string `gorm:"type:text" json:"notes"`

	StockCounts []StockCount `gorm:"foreignKey:DailyClosingID" json:"stock_counts,omitempty"`
	CashCounts  []CashCount  `gorm:"foreignKey:DailyClosingID" json:"cash_counts,omitempty"`
}

func (DailyClosing) TableName() string {
	return "daily_closings"
}

type StockCountStatus string

const (
	StockCountPending   StockCountStatus = "pending"
	StockCountCompleted StockCountStatus = "completed"
)

// StockCount is the per-zone physical count belonging to a closing.
type StockCount struct {
	BaseModel
	DailyClosingID uuid.UUID `gorm:"type:uuid;not null;index" json:"daily_closing_id"`
	ZoneID         uuid.UUID `gorm:"type:uuid;not null" json:"zone_id"`
	Zone           *Zone     `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`

	ExpectedTotalKg float64          `gorm:"default:0" json:"expected_total_kg"`
	ActualTotalKg   float64          `gorm:"default:0" json:"actual_total_kg"`
	VarianceKg      float64          `gorm:"default:0" json:"variance_kg"`
	TotalItems      int              `gorm:"default:0" json:"total_items"`
	ItemsCounted    int              `gorm:"default:0" json:"items_counted"`
	Status          StockCountStatus `gorm:"type:varchar(15);default:'pending'" json:"status"`
	CompletedAt     *time.Time       `json:"completed_at"`
	CompletedBy     *uuid.UUID       `gorm:"type:uuid" json:"completed_by"`

	Items []StockCountItem `gorm:"foreignKey:StockCountID" json:"items,omitempty"`
}

func (StockCount) TableName() string {
	return "stock_counts"
}

// StockCountItem is one product's expected-vs-counted row within a zone count.
// A non-zero variance requires a reason before the item can be marked counted.
type StockCountItem struct {
	BaseModel
	StockCountID uuid.UUID `gorm:"type:uuid;not null;index" json:"stock_count_id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Product      *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	ExpectedKg      float64    `gorm:"default:0" json:"expected_kg"`
	ActualKg        *float64   `json:"actual_kg"`
	IsCounted       bool       `gorm:"default:false" json:"is_counted"`
	CountedAt       *time.Time `json:"counted_at"`
	CountedBy       *uuid.UUID `gorm:"type:uuid" json:"counted_by"`
	VarianceKg      float64    `gorm:"default:0" json:"variance_kg"`
	VariancePercent float64    `gorm:"default:0" json:"variance_percent"`
	VarianceReason  string     `gorm:"type:varchar(50)" json:"variance_reason"`
	VarianceNotes   string     `gorm:"type:text" json:"variance_notes"`
	Version         int        `gorm:"default:0" json:"version"` // optimistic concurrency
}

func (StockCountItem) TableName() string {
	return "stock_count_items"
}

// CashCount is the per-currency till count belonging to a closing.
type CashCount struct {
	BaseModel
	DailyClosingID uuid.UUID `gorm:"type:uuid;not null;index" json:"daily_closing_id"`
	CurrencyCode   string    `gorm:"type:varchar(3);not null" json:"currency_code"`

	OpeningFloat  float64    `gorm:"default:0" json:"opening_float"`
	CashSales     float64    `gorm:"default:0" json:"cash_sales"`
	ExpectedTotal float64    `gorm:"default:0" json:"expected_total"` // opening_float + cash_sales
	CountedTotal  float64    `gorm:"default:0" json:"counted_total"`
	Variance      float64    `gorm:"default:0" json:"variance"` // counted - expected
	CountedAt     *time.Time `json:"counted_at"`
	CountedBy     *uuid.UUID `gorm:"type:uuid" json:"counted_by"`
	Notes         string     `gorm:"type:text" json:"notes"`
}

func (CashCount) TableName() string {
	return "cash_counts"
}
