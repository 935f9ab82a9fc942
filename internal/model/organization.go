package model

// Organization is the tenant root. Every business entity hangs off one
// organization and reads/writes never cross tenants.
type Organization struct {
	BaseModel
	Name             string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	TradingName      string `gorm:"type:varchar(255)" json:"trading_name"`
	Address          string `gorm:"type:text" json:"address"`
	Phone            string `gorm:"type:varchar(30)" json:"phone"`
	Email            string `gorm:"type:varchar(255)" json:"email"`
	TaxNumber        string `gorm:"type:varchar(50)" json:"tax_number"`
	BaseCurrencyCode string `gorm:"type:varchar(3);default:'USD'" json:"base_currency_code"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`
}

// Currency is a tender currency accepted at the till. ExchangeRate converts
// one unit of this currency into the organization's base currency.
type Currency struct {
	TenantModel
	Code         string  `gorm:"type:varchar(3);not null;index" json:"code" validate:"required"`
	Name         string  `gorm:"type:varchar(50)" json:"name"`
	ExchangeRate float64 `gorm:"default:1" json:"exchange_rate"` // units per base unit
	OpeningFloat float64 `gorm:"default:0" json:"opening_float"` // till float at day start
	IsActive     bool    `gorm:"default:true" json:"is_active"`
}

func (Currency) TableName() string {
	return "currencies"
}
