package domain

// Roles a user can hold.
const (
	RoleLandlord = "landlord"
	RoleTenant   = "tenant"
)

// Principal is the authenticated caller, as read from a validated token.
type Principal struct {
	UserID string
	Email  string
	Role   string
}
