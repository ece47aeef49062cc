package enum

// UserRole distinguishes the three account kinds of the marketplace.
type UserRole string

const (
	UserRoleConsumer UserRole = "consumer"
	UserRoleVendor   UserRole = "vendor"
	UserRoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleConsumer, UserRoleVendor, UserRoleAdmin:
		return true
	}
	return false
}
