package template

import "strings"

// Role is the normalized agent relationship to a transaction.
type Role string

const (
	RoleBuyersAgent  Role = "BUYERS_AGENT"
	RoleListingAgent Role = "LISTING_AGENT"
	RoleDualAgent    Role = "DUAL_AGENT"
)

// Selection names the cover-sheet template chosen for a role.
type Selection struct {
	Role         Role
	TemplateName string // Buyer, Seller or DualAgent
}

// File returns the template filename inside the templates directory.
func (s Selection) File() string { return s.TemplateName + ".html" }

// SelectTemplate maps a free-text role to exactly one of the three cover-sheet
// templates. Intake sources spell roles inconsistently ("LISTING AGENT",
// "Buyer's Agent", "dual-agent", "SELLER"), so the input is uppercased and
// stripped to letters before substring matching.
//
// Selection is total: anything that is not recognizably buyer- or
// seller-sided, including the empty string, falls back to the dual-agent
// template instead of failing the request.
func SelectTemplate(role string) Selection {
	norm := normalizeRole(role)
	switch {
	case strings.Contains(norm, "BUYER"):
		return Selection{Role: RoleBuyersAgent, TemplateName: "Buyer"}
	case strings.Contains(norm, "SELLER"), strings.Contains(norm, "LISTING"):
		return Selection{Role: RoleListingAgent, TemplateName: "Seller"}
	default:
		return Selection{Role: RoleDualAgent, TemplateName: "DualAgent"}
	}
}

func normalizeRole(role string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(role) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
