package scope

// Scope is a granted area of staff authority: one per municipal department,
// plus Central for the city-wide admin panel.
type Scope string

const (
	Health         Scope = "health"
	Engineering    Scope = "engineering"
	Electrical     Scope = "electrical"
	Other          Scope = "other"
	GeneralAffairs Scope = "general-affairs"
	Central        Scope = "central"
)

var departments = []Scope{Health, Engineering, Electrical, Other, GeneralAffairs}

// Departments lists the department scopes, excluding Central.
func Departments() []Scope {
	out := make([]Scope, len(departments))
	copy(out, departments)
	return out
}

// ValidDepartment reports whether slug names a department.
func ValidDepartment(slug string) bool {
	for _, d := range departments {
		if string(d) == slug {
			return true
		}
	}
	return false
}

// Allows reports whether the granted set covers the required scope.
// Central covers everything.
func Allows(granted []string, required Scope) bool {
	for _, g := range granted {
		if g == string(Central) || g == string(required) {
			return true
		}
	}
	return false
}

// For maps a department slug to its scope set. Central gets every scope so
// listings filtered by any department resolve without special cases.
func For(subject string) []string {
	if subject == string(Central) {
		scopes := []string{string(Central)}
		for _, d := range departments {
			scopes = append(scopes, string(d))
		}
		return scopes
	}
	return []string{subject}
}
