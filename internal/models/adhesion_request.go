package models

import (
	"time"
)

// AdhesionRequest statut values. Once a request leaves en_attente it is
// terminal: no further transitions are accepted.
const (
	DemandeEnAttente = "en_attente"
	DemandeApprouvee = "approuvé"
	DemandeRefusee   = "refusé"
)

// DefaultRaisonRefus is recorded when an admin rejects without a reason.
const DefaultRaisonRefus = "Non spécifiée"

// AdhesionRequest is a pending membership application. It mirrors the
// identity fields of User; the password is hashed before the record is
// created and carried over unchanged on approval.
type AdhesionRequest struct {
	ID             string
	Nom            string
	Prenom         string
	Num            string
	Sexe           string
	Email          string
	PasswordHash   string
	PlanCotisation string
	Statut         string
	DateDemande    time.Time
	DateTraitement *time.Time
	TraitePar      *string // id of the admin who processed the request
	TraiteParNom   *string // resolved processor name, populated on list reads
	RaisonRefus    *string
}

// Pending reports whether the request can still be approved or rejected.
func (r *AdhesionRequest) Pending() bool {
	return r.Statut == DemandeEnAttente
}
