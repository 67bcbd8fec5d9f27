package domain

import "time"

// DriverPlan represents a driver's commission plan.
type DriverPlan string

const (
	DriverPlanFree DriverPlan = "FREE"
	DriverPlanPro  DriverPlan = "PRO"
)

// DriverProfile represents a driver's current availability and eligibility.
// IsVerified and VerificationRevokedAt are owned by the verification
// collaborator; the matcher treats them as read-only gating inputs.
type DriverProfile struct {
	UserID                string
	Name                  string
	Plan                  DriverPlan
	IsOnline              bool
	IsVerified            bool
	VerificationRevokedAt *time.Time
	LastKnownLat          *float64
	LastKnownLng          *float64
	CreatedAt             time.Time
}

// CanGoOnline reports whether the driver may flip to online.
func (d *DriverProfile) CanGoOnline() bool {
	return d.IsVerified && d.VerificationRevokedAt == nil
}
