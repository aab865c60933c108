package role

// Role is an admin access tier. The four values form a total order;
// comparisons go through rank.
type Role string

const (
	SuperAdmin Role = "SuperAdmin"
	Admin      Role = "Admin"
	Moderator  Role = "Moderator"
	User       Role = "User"
)

var ranks = map[Role]int{
	SuperAdmin: 4,
	Admin:      3,
	Moderator:  2,
	User:       1,
}

func (r Role) Rank() int {
	return ranks[r]
}

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	_, ok := ranks[r]
	return ok
}

// HasPermission reports whether actual satisfies required, i.e. its rank is
// at least as high. An unrecognized role has rank 0 and satisfies nothing.
func HasPermission(actual, required Role) bool {
	return ranks[actual] >= ranks[required]
}
