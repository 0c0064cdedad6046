package domain

import (
	"encoding/json"
	"fmt"
)

// Discipline is the closed set of tournament disciplines. The zero value means unset.
type Discipline uint8

const (
	DisciplineUnset Discipline = iota
	DisciplineCS2
	DisciplineDOTA2
	DisciplineFC26
)

// Disciplines lists every set discipline in declaration order.
var Disciplines = []Discipline{DisciplineCS2, DisciplineDOTA2, DisciplineFC26}

func (d Discipline) String() string {
	switch d {
	case DisciplineCS2:
		return "CS2"
	case DisciplineDOTA2:
		return "DOTA2"
	case DisciplineFC26:
		return "FC26"
	default:
		return ""
	}
}

func (d Discipline) IsSet() bool { return d != DisciplineUnset }

// ParseDiscipline maps the wire value to a Discipline. An empty string is unset.
func ParseDiscipline(s string) (Discipline, error) {
	switch s {
	case "":
		return DisciplineUnset, nil
	case "CS2":
		return DisciplineCS2, nil
	case "DOTA2":
		return DisciplineDOTA2, nil
	case "FC26":
		return DisciplineFC26, nil
	}
	return DisciplineUnset, fmt.Errorf("unknown discipline %q: %w", s, ErrBadRequest)
}

func (d Discipline) MarshalJSON() ([]byte, error) {
	if !d.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Discipline) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*d = DisciplineUnset
		return nil
	}
	v, err := ParseDiscipline(*s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Mode is the closed set of registration modes. The zero value means unset.
type Mode uint8

const (
	ModeUnset Mode = iota
	ModeTeam
	ModeIndividual
)

// Modes lists every set mode in declaration order.
var Modes = []Mode{ModeTeam, ModeIndividual}

func (m Mode) String() string {
	switch m {
	case ModeTeam:
		return "team"
	case ModeIndividual:
		return "individual"
	default:
		return ""
	}
}

func (m Mode) IsSet() bool { return m != ModeUnset }

// ParseMode maps the wire value to a Mode. An empty string is unset.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "":
		return ModeUnset, nil
	case "team":
		return ModeTeam, nil
	case "individual":
		return ModeIndividual, nil
	}
	return ModeUnset, fmt.Errorf("unknown mode %q: %w", s, ErrBadRequest)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if !m.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*m = ModeUnset
		return nil
	}
	v, err := ParseMode(*s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
