package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Audited actions. The set is closed: repositories reject nothing, but
// services only ever write these values.
const (
	ActionMembreAjoute      = "MEMBRE_AJOUTE"
	ActionMembreModifie     = "MEMBRE_MODIFIE"
	ActionMembreSupprime    = "MEMBRE_SUPPRIME"
	ActionMembreSuspendu    = "MEMBRE_SUSPENDU"
	ActionMembreReactive    = "MEMBRE_REACTIVE"
	ActionMembreBanni       = "MEMBRE_BANNI"
	ActionCotisationGeneree = "COTISATION_GENEREE"
	ActionCotisationPayee   = "COTISATION_MARQUEE_PAYEE"
	ActionCotisationModifie = "COTISATION_MODIFIEE"
	ActionCotisationSupprim = "COTISATION_SUPPRIMEE"
	ActionCotisationsMasse  = "COTISATIONS_GENEREES_MASSE"
	ActionCotisationsPurge  = "TOUTES_COTISATIONS_SUPPRIMEES"
)

// Target types
const (
	TargetUser       = "USER"
	TargetCotisation = "COTISATION"
	TargetSystem     = "SYSTEM"
)

// ActionLog is an append-only audit record of a privileged mutation. Actor
// identity (email, name, role) is denormalized at write time so the record
// reflects who the actor was when the action happened, even if the profile
// later changes or is deleted.
type ActionLog struct {
	ID          string
	UserID      string
	UserEmail   string
	UserName    string
	UserRole    string
	Action      string
	TargetType  string
	TargetID    *string
	TargetName  *string
	Description string
	Details     LogDetails
	Montant     *float64
	IPAddress   *string
	CreatedAt   time.Time
}

// LogDetails holds free-form structured context for an audit entry.
type LogDetails map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (d *LogDetails) Scan(value interface{}) error {
	if value == nil {
		*d = make(LogDetails)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*d = LogDetails(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d LogDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// MarshalJSON implements json.Marshaler
func (d LogDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(d))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *LogDetails) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = LogDetails(m)
	return nil
}

// ActionStat is one row of the per-action aggregation.
type ActionStat struct {
	Action string
	Count  int64
}

// ActorStat is one row of the per-actor aggregation (top actors by count).
type ActorStat struct {
	UserID   string
	UserName string
	UserRole string
	Count    int64
}

// TargetStat is one row of the per-target-type aggregation.
type TargetStat struct {
	TargetType string
	Count      int64
}

// FinancialStat sums montant across logged entries that carry one.
type FinancialStat struct {
	TotalMontant float64
	Count        int64
}

// LogStats is the aggregate view over action_logs returned by the stats
// endpoint.
type LogStats struct {
	ByAction  []ActionStat
	ByUser    []ActorStat
	ByTarget  []TargetStat
	Financial FinancialStat
}
