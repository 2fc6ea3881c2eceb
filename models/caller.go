package models

// Caller is the authenticated actor of a request
type Caller struct {
	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// HasAnyRole reports whether the caller holds at least one of the given roles
func (c Caller) HasAnyRole(required ...string) bool {
	return HasAnyRole(c.Roles, required...)
}

// IsAdmin reports whether the caller holds the Admin role
func (c Caller) IsAdmin() bool {
	return HasAnyRole(c.Roles, RoleAdmin)
}

// HasAnyRole reports whether have and required intersect, comparing names case-insensitively
func HasAnyRole(have []string, required ...string) bool {
	for _, want := range required {
		for _, h := range have {
			if NormalizeName(h) == NormalizeName(want) {
				return true
			}
		}
	}
	return false
}
