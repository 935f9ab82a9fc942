package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // OWNER, MANAGER, BUTCHER, CASHIER
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleOwner   = "OWNER"
	RoleManager = "MANAGER"
	RoleButcher = "BUTCHER"
	RoleCashier = "CASHIER"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleOwner,
		Name:        "Owner",
		Description: "Full system access with all privileges",
	},
	{
		Code:        RoleManager,
		Name:        "Manager",
		Description: "Day-to-day operations including closings and voids",
	},
	{
		Code:        RoleButcher,
		Name:        "Butcher",
		Description: "Receiving and cutting floor operations",
	},
	{
		Code:        RoleCashier,
		Name:        "Cashier",
		Description: "Point of sale operations",
	},
}
