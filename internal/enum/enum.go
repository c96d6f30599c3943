package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusNew       = "NEW"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
	TableStatusCleaning  = "CLEANING"
)

const (
	PrintJobStatusQueued  = "QUEUED"
	PrintJobStatusPrinted = "PRINTED"
	PrintJobStatusFailed  = "FAILED"
)

// ── Group B: Closed vocabularies (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

// Assignment scopes. A rule routes either one menu item or a whole
// category to a printer; no other scope exists.
const (
	AssignScopeCategory = "CATEGORY"
	AssignScopeMenuItem = "MENU_ITEM"
)

const (
	PrinterTypeNetwork   = "NETWORK"
	PrinterTypeBluetooth = "BLUETOOTH"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	StationKitchen  = "KITCHEN"
	StationGrill    = "GRILL"
	StationBeverage = "BEVERAGE"
	StationDessert  = "DESSERT"
)

// ValidAssignScope reports whether s is one of the two assignment scopes.
// Scope is a closed set; callers reject anything else before it reaches
// storage.
func ValidAssignScope(s string) bool {
	return s == AssignScopeCategory || s == AssignScopeMenuItem
}

// ValidOrderType reports whether t is a known order type.
func ValidOrderType(t string) bool {
	return t == OrderTypeDineIn || t == OrderTypeTakeaway || t == OrderTypeDelivery
}

// ValidPrinterType reports whether t is a known printer connection type.
func ValidPrinterType(t string) bool {
	return t == PrinterTypeNetwork || t == PrinterTypeBluetooth
}

// ValidUserRole reports whether r is a known role.
func ValidUserRole(r string) bool {
	switch r {
	case UserRoleAdmin, UserRoleManager, UserRoleCashier, UserRoleKitchen:
		return true
	}
	return false
}

// ValidTableStatus reports whether s is a known table status.
func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved, TableStatusCleaning:
		return true
	}
	return false
}
