package market

import "marketplace/models"

// Principal is the acting user as verified by the identity layer.
type Principal struct {
	UserID int64
	Role   models.Role
}

func (p Principal) IsClient() bool {
	return p.UserID > 0 && p.Role == models.RoleClient
}

func (p Principal) IsContractor() bool {
	return p.UserID > 0 && p.Role == models.RoleContractor
}

// Result reports a successful operation whose best-effort side steps may
// have failed. Warnings are meant for the caller; causes are logged.
type Result struct {
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Result) degrade(warning string) {
	r.Degraded = true
	r.Warnings = append(r.Warnings, warning)
}
