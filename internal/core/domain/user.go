package domain

import "time"

// Role is an analyst's permission level. Roles are ordered: each one may
// do everything the roles below it may.
type Role string

const (
	RoleAdmin   Role = "admin"   // manages analysts
	RoleAuditor Role = "auditor" // may advance posts into AUDIT
	RoleAnalyst Role = "analyst" // may review up to FINAL_REVIEW
	RoleViewer  Role = "viewer"  // read only
)

func (r Role) Valid() bool {
	return r.rank() > 0
}

func (r Role) rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleAnalyst:
		return 2
	case RoleAuditor:
		return 3
	case RoleAdmin:
		return 4
	}
	return 0
}

// CanReview reports whether r may write overlays and advance posts.
func CanReview(r Role) bool {
	return r.rank() >= RoleAnalyst.rank()
}

// CanAdvanceTo reports whether r may move a post into stage. AUDIT is
// reserved for auditors and admins.
func CanAdvanceTo(r Role, stage LifecycleStage) bool {
	if stage == StageAudit {
		return r.rank() >= RoleAuditor.rank()
	}
	return CanReview(r)
}

// User is an analyst account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserSummary is the account as returned over the API.
type UserSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
	}
}

// CanReview is false for deactivated accounts whatever their role.
func (u *User) CanReview() bool {
	return u.Active && CanReview(u.Role)
}
