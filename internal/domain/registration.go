package domain

import (
	"encoding/json"
	"time"
)

// VerifiedIdentity is the trusted user extracted from a verified init data credential.
type VerifiedIdentity struct {
	ID        int64
	Username  *string
	FirstName *string
	LastName  *string
}

// DraftDocument is a user's in-progress registration form state.
type DraftDocument struct {
	Discipline Discipline     `json:"discipline"`
	Mode       Mode           `json:"mode"`
	Data       map[string]any `json:"data"`
}

// MarshalJSON always emits data as an object, never null.
func (d DraftDocument) MarshalJSON() ([]byte, error) {
	type alias DraftDocument
	a := alias(d)
	if a.Data == nil {
		a.Data = map[string]any{}
	}
	return json.Marshal(a)
}

// Registration is a committed, append-only ledger entry.
type Registration struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"tg_user_id"`
	Username       *string        `json:"tg_username"`
	FirstName      *string        `json:"tg_first_name"`
	LastName       *string        `json:"tg_last_name"`
	Discipline     Discipline     `json:"discipline"`
	Mode           Mode           `json:"mode"`
	Data           map[string]any `json:"payload"`
	CreatedAt      time.Time      `json:"created_at"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	SourceInitData string         `json:"-"`
}

// Summary projects the registration to the shape used by the stats endpoint.
func (r *Registration) Summary() RegistrationSummary {
	return RegistrationSummary{
		ID:          r.ID,
		UserID:      r.UserID,
		Username:    r.Username,
		Discipline:  r.Discipline.String(),
		Mode:        r.Mode.String(),
		SubmittedAt: r.SubmittedAt,
	}
}

// RegistrationSummary is the recent-list projection of a Registration.
type RegistrationSummary struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"tg_user_id"`
	Username    *string   `json:"tg_username"`
	Discipline  string    `json:"discipline"`
	Mode        string    `json:"mode"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// GroupBy selects the ledger column used for grouped counts.
type GroupBy uint8

const (
	GroupByDiscipline GroupBy = iota
	GroupByMode
)

func (g GroupBy) String() string {
	if g == GroupByMode {
		return "mode"
	}
	return "discipline"
}

// GroupCount is one (key, count) row of a grouped rollup.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// StatsSnapshot is the operator dashboard rollup of the ledger.
type StatsSnapshot struct {
	Total         int                   `json:"total"`
	DistinctUsers int                   `json:"distinct_users"`
	ByDiscipline  []GroupCount          `json:"by_discipline"`
	ByMode        []GroupCount          `json:"by_mode"`
	Recent        []RegistrationSummary `json:"recent"`
}
