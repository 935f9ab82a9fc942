package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "carcass:receive"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Catalog management
	{Code: "product:view", Name: "View Product"},
	{Code: "product:create", Name: "Create Product"},
	{Code: "product:update", Name: "Update Product"},
	{Code: "catalog:manage", Name: "Manage Zones, Suppliers, Grades, Currencies"},
	// Receiving & cutting
	{Code: "carcass:receive", Name: "Receive Carcass"},
	{Code: "carcass:view", Name: "View Carcass"},
	{Code: "session:manage", Name: "Run Cutting Session"},
	// Stock
	{Code: "stock:view", Name: "View Stock"},
	{Code: "stock:transfer", Name: "Transfer Stock"},
	{Code: "stock:adjust", Name: "Adjust Stock"},
	// Point of sale
	{Code: "sale:create", Name: "Create Sale"},
	{Code: "sale:view", Name: "View Sale"},
	{Code: "sale:void", Name: "Void Sale"},
	// Reconciliation
	{Code: "closing:manage", Name: "Run Daily Closing"},
	{Code: "closing:view", Name: "View Daily Closing"},
	// Reporting
	{Code: "report:view", Name: "View Reports"},
	{Code: "dashboard:view", Name: "View Dashboard"},
}
