package domain

const (
	RoleUser    = "User"
	RoleManager = "Manager"
)

// Principal is an authenticated caller. The core only inspects its roles.
type Principal struct {
	Subject string
	Roles   []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
