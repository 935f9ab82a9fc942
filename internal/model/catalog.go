package model

import "github.com/google/uuid"

// ZoneType distinguishes the physical storage/sale locations.
type ZoneType string

const (
	ZoneColdRoom ZoneType = "cold_room"
	ZoneDisplay  ZoneType = "display"
	ZoneCounter  ZoneType = "counter"
)

// Zone is a physical storage or sale location (cold room, display, POS counter).
type Zone struct {
	TenantModel
	Name               string   `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	Code               string   `gorm:"type:varchar(20);not null" json:"code" validate:"required"`
	ZoneType           ZoneType `gorm:"type:varchar(20);not null;default:'cold_room'" json:"zone_type"`
	IsDefaultReceiving bool     `gorm:"default:false" json:"is_default_receiving"`
	IsPOSZone          bool     `gorm:"default:false" json:"is_pos_zone"`
	IsActive           bool     `gorm:"default:true" json:"is_active"`
}

type Supplier struct {
	TenantModel
	Name          string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Code          string `gorm:"type:varchar(50)" json:"code"`
	ContactPerson string `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string `gorm:"type:varchar(30)" json:"phone"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`
}

// Grade is a quality grade applied to carcasses and cuts (e.g. A, B, Manufacturing).
type Grade struct {
	TenantModel
	Code     string `gorm:"type:varchar(20);not null" json:"code" validate:"required"`
	Name     string `gorm:"type:varchar(100)" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// Product is a retail meat product sold by weight.
type Product struct {
	TenantModel
	SKU            string  `gorm:"type:varchar(50);not null;index" json:"sku" validate:"required"`
	Name           string  `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category       string  `gorm:"type:varchar(100)" json:"category"`
	PricePerKg     float64 `gorm:"default:0" json:"price_per_kg"`
	TaxRatePercent float64 `gorm:"default:15" json:"tax_rate_percent"` // VAT, 15 unless overridden
	MinimumStockKg float64 `gorm:"default:0" json:"minimum_stock_kg"`
	CanBeSold      bool    `gorm:"default:true" json:"can_be_sold"`
	IsActive       bool    `gorm:"default:true" json:"is_active"`

	CreatedByUserID *string `gorm:"type:varchar(255)" json:"created_by_user_id,omitempty"`
	UpdatedByUserID *string `gorm:"type:varchar(255)" json:"updated_by_user_id,omitempty"`
}

// ProductRef is the slim shape embedded in report rows.
type ProductRef struct {
	ID   uuid.UUID `json:"id"`
	SKU  string    `json:"sku"`
	Name string    `json:"name"`
}

func (p *Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, SKU: p.SKU, Name: p.Name}
}
