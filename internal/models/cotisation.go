package models

import (
	"regexp"
	"time"
)

// Cotisation statut values
const (
	CotisationPayee     = "payé"
	CotisationEnAttente = "en_attente"
	CotisationEnRetard  = "en_retard"
)

// Payment methods
const (
	MethodeEspeces  = "espèces"
	MethodeVirement = "virement"
	MethodeCarte    = "carte"
	MethodeMobile   = "mobile"
)

// DefaultMontant is charged when a bulk generation omits the amount.
const DefaultMontant = 3000

// Cotisation is one monthly dues obligation for one member. Uniqueness of
// (UserID, Mois) is enforced by the database.
type Cotisation struct {
	ID              string
	UserID          string
	Mois            string // "YYYY-MM"
	Montant         float64
	Statut          string
	DatePaiement    *time.Time
	MethodePaiement *string
	CreatedAt       time.Time

	// Member identity joined on admin list reads, empty otherwise.
	UserNom    string
	UserPrenom string
	UserEmail  string
}

var moisPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMois reports whether s is a well-formed "YYYY-MM" month key.
func ValidMois(s string) bool {
	return moisPattern.MatchString(s)
}

// ValidMethode reports whether m is a known payment method.
func ValidMethode(m string) bool {
	switch m {
	case MethodeEspeces, MethodeVirement, MethodeCarte, MethodeMobile:
		return true
	}
	return false
}

// ValidCotisationStatut reports whether s is a known cotisation statut.
func ValidCotisationStatut(s string) bool {
	switch s {
	case CotisationPayee, CotisationEnAttente, CotisationEnRetard:
		return true
	}
	return false
}
