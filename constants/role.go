package constants

// Role is the trainee's role in a procedure.
type Role string

const (
	RolePerformed           Role = "P"
	RolePerformedSupervised Role = "PS"
	RoleSupervisedJunior    Role = "SJ"
	RoleAssisted            Role = "A"
	RoleUnknown             Role = ""
)

// RoleCodesByLength lists the closed role vocabulary, two-character codes
// first so that "PS" is never tokenized as "P" with a stray "S".
var RoleCodesByLength = []Role{
	RolePerformedSupervised,
	RoleSupervisedJunior,
	RolePerformed,
	RoleAssisted,
}

// GridRoles is the closed role vocabulary of the ESR grid, in display order.
var GridRoles = []Role{
	RolePerformed,
	RolePerformedSupervised,
	RoleSupervisedJunior,
	RoleAssisted,
}

var roleLabels = map[Role]string{
	RolePerformed:           "Performed",
	RolePerformedSupervised: "Performed (supervised)",
	RoleSupervisedJunior:    "Supervised junior",
	RoleAssisted:            "Assisted",
}

// RoleFromToken matches a token against the role vocabulary. Exact match only.
func RoleFromToken(token string) (Role, bool) {
	for _, r := range RoleCodesByLength {
		if token == string(r) {
			return r, true
		}
	}
	return RoleUnknown, false
}

// Label returns the human-readable role name, or the raw code if unmapped.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}
