package model

import "time"

// User is a registered organisation contact taking the self-assessment.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Organisation  string    `json:"organisation"`
	Role          string    `json:"role"`
	Sector        string    `json:"sector"`
	EmployeeCount string    `json:"employee_count"`
	Revenue       string    `json:"revenue"`
	CreatedAt     time.Time `json:"created_at"`
}

// Tier is the regulatory classification bucket assigned at registration.
// It never changes afterwards; there is no re-classification flow.
type Tier string

const (
	TierEssential  Tier = "Essential"
	TierImportant  Tier = "Important"
	TierOutOfScope Tier = "Out of Scope"
)

// ComplianceClassification records the tier assigned to a user.
type ComplianceClassification struct {
	UserID     string    `json:"user_id"`
	Tier       Tier      `json:"tier"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Employee-count and revenue bracket tokens recognized by the
// classification rule. Any other encoding falls through to Out of Scope.
const (
	BracketEmployeesLarge  = ">250"
	BracketEmployeesMedium = "50-249"
	BracketRevenueLarge    = ">50"
	BracketRevenueMedium   = "10-50"
)
