package model

import (
	"time"

	"github.com/google/uuid"
)

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SaleVoided    SaleStatus = "voided"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Sale is a completed checkout. The open cart only exists client-side; a Sale
// row is written at completion time with stock already decremented.
type Sale struct {
	TenantModel
	SaleNumber string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"sale_number"`
	SaleDate   string    `gorm:"type:varchar(10);not null;index" json:"sale_date"` // YYYY-MM-DD
	SoldAt     time.Time `json:"sold_at"`
	CashierID  uuid.UUID `gorm:"type:uuid;not null" json:"cashier_id"`
	ZoneID     uuid.UUID `gorm:"type:uuid;not null" json:"zone_id" validate:"uuid_required"`
	Zone       *Zone     `gorm:"foreignKey:ZoneID" json:"zone,omitempty" validate:"-"`

	Subtotal       float64 `gorm:"default:0" json:"subtotal"`
	DiscountAmount float64 `gorm:"default:0" json:"discount_amount"`
	TaxAmount      float64 `gorm:"default:0" json:"tax_amount"`
	TotalAmount    float64 `gorm:"default:0" json:"total_amount"`
	TotalWeightKg  float64 `gorm:"default:0" json:"total_weight_kg"`
	TotalCost      float64 `gorm:"default:0" json:"total_cost"`
	MarginAmount   float64 `gorm:"default:0" json:"margin_amount"` // total_amount - total_cost
	MarginPercent  float64 `gorm:"default:0" json:"margin_percent"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(10);default:'unpaid'" json:"payment_status"`
	AmountPaid    float64       `gorm:"default:0" json:"amount_paid"` // in base currency
	ChangeGiven   float64       `gorm:"default:0" json:"change_given"`

	Status     SaleStatus `gorm:"type:varchar(10);default:'completed'" json:"status"`
	VoidedAt   *time.Time `json:"voided_at"`
	VoidedBy   string     `gorm:"type:varchar(255)" json:"voided_by"`
	VoidReason string     `gorm:"type:text" json:"void_reason"`

	CustomerName  string `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(30)" json:"customer_phone"`
	Notes         string `gorm:"type:text" json:"notes"`

	Items    []SaleItem    `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	Payments []SalePayment `gorm:"foreignKey:SaleID" json:"payments,omitempty"`
}

// SaleItem is one weighed line. UnitCost is snapshotted from the stock lots
// consumed at sale time so later cost changes never rewrite history.
type SaleItem struct {
	BaseModel
	SaleID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product    *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	StockLotID *uuid.UUID `gorm:"type:uuid" json:"stock_lot_id"`

	QuantityKg     float64 `gorm:"not null" json:"quantity_kg" validate:"required,gt=0"`
	UnitPrice      float64 `gorm:"not null" json:"unit_price" validate:"gte=0"`
	LineSubtotal   float64 `gorm:"default:0" json:"line_subtotal"`
	LineDiscount   float64 `gorm:"default:0" json:"line_discount"`
	LineTotal      float64 `gorm:"default:0" json:"line_total"` // quantity_kg*unit_price - line_discount
	TaxRatePercent float64 `gorm:"default:15" json:"tax_rate_percent"`
	TaxAmount      float64 `gorm:"default:0" json:"tax_amount"`
	UnitCost       float64 `gorm:"default:0" json:"unit_cost"`
}

func (SaleItem) TableName() string {
	return "sale_items"
}

// SalePayment is one tender against a sale. Split tender is allowed; the sum
// of amount_base across payments never exceeds the sale total.
type SalePayment struct {
	BaseModel
	SaleID        uuid.UUID `gorm:"type:uuid;not null;index" json:"sale_id"`
	PaymentMethod string    `gorm:"type:varchar(20);not null" json:"payment_method" validate:"required"`
	CurrencyCode  string    `gorm:"type:varchar(3);not null" json:"currency_code" validate:"required"`
	Amount        float64   `gorm:"not null" json:"amount" validate:"required,gt=0"`
	ExchangeRate  float64   `gorm:"default:1" json:"exchange_rate"`
	AmountBase    float64   `gorm:"default:0" json:"amount_base"` // amount / exchange_rate
	Tendered      *float64  `json:"tendered"`
	ChangeAmount  *float64  `json:"change_amount"` // tendered - amount
	Reference     string    `gorm:"type:varchar(100)" json:"reference"`
}

func (SalePayment) TableName() string {
	return "sale_payments"
}

type HeldSaleStatus string

const (
	HeldSaleHeld     HeldSaleStatus = "held"
	HeldSaleRecalled HeldSaleStatus = "recalled"
)

// HeldSale is a suspended cart snapshot. Recalling restores it client-side;
// it only becomes a Sale when checked out. Version guards concurrent recall.
type HeldSale struct {
	TenantModel
	ZoneID        uuid.UUID      `gorm:"type:uuid;not null" json:"zone_id"`
	HeldBy        uuid.UUID      `gorm:"type:uuid;not null" json:"held_by"`
	Items         string         `gorm:"type:jsonb" json:"items"` // serialized cart lines
	Subtotal      float64        `gorm:"default:0" json:"subtotal"`
	TotalWeightKg float64        `gorm:"default:0" json:"total_weight_kg"`
	CustomerName  string         `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string         `gorm:"type:varchar(30)" json:"customer_phone"`
	Notes         string         `gorm:"type:text" json:"notes"`
	Status        HeldSaleStatus `gorm:"type:varchar(10);default:'held'" json:"status"`
	RecalledAt    *time.Time     `json:"recalled_at"`
	RecalledBy    *uuid.UUID     `gorm:"type:uuid" json:"recalled_by"`
	Version       int            `gorm:"default:0" json:"version"` // optimistic concurrency
}

func (HeldSale) TableName() string {
	return "held_sales"
}

// HeldCartItem is the shape serialized into HeldSale.Items.
type HeldCartItem struct {
	ProductID  uuid.UUID `json:"product_id"`
	QuantityKg float64   `json:"quantity_kg"`
	UnitPrice  float64   `json:"unit_price"`
}
