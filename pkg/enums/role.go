package enums

// Role is the caller role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var roles = enumOf("role",
	RoleCustomer,
	RoleAdmin,
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return roles.has(r)
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return roles.parse(value)
}
