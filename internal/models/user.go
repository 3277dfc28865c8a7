package models

import (
	"time"
)

// Statut values for a member account
const (
	StatutActif    = "actif"
	StatutSuspendu = "suspendu"
	StatutBani     = "bani"
)

// Roles
const (
	RoleMembre  = "membre"
	RoleBureau  = "bureau"
	RoleAdmin   = "Admin"
	RoleFinance = "finance"
)

// Cotisation plans
const (
	PlanMensuel     = "mensuel"
	PlanTrimestriel = "trimestriel"
)

type User struct {
	ID                 string
	Nom                string
	Prenom             string
	Num                string // phone number
	Sexe               string // "Male" or "Female"
	Email              string
	PasswordHash       string // never serialized in API responses
	Statut             string // "actif", "suspendu", "bani"
	Role               string // "membre", "bureau", "Admin", "finance"
	PlanCotisation     string // "mensuel", "trimestriel"
	ResetCodeHash      *string
	ResetCodeExpiresAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName returns the display name used in audit entries and emails.
func (u *User) FullName() string {
	return u.Prenom + " " + u.Nom
}

// IsAdmin reports whether the user holds the Admin role.
func IsAdmin(u *User) bool {
	return u != nil && u.Role == RoleAdmin
}

// IsFinanceOrAdmin reports whether the user may manage cotisations.
func IsFinanceOrAdmin(u *User) bool {
	return u != nil && (u.Role == RoleFinance || u.Role == RoleAdmin)
}
