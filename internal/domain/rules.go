package domain

// Normalize applies the draft-time discipline/mode rules. It is idempotent.
//
// FC26 is individual-only regardless of the client value; CS2 and DOTA2
// default to team when no mode was chosen.
func Normalize(d DraftDocument) DraftDocument {
	out := DraftDocument{Discipline: d.Discipline, Mode: d.Mode, Data: d.Data}
	switch d.Discipline {
	case DisciplineFC26:
		out.Mode = ModeIndividual
	case DisciplineCS2, DisciplineDOTA2:
		if !out.Mode.IsSet() {
			out.Mode = ModeTeam
		}
	case DisciplineUnset:
	}
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	return out
}

// ValidateCommit checks that a document may be committed to the ledger.
func ValidateCommit(d DraftDocument) error {
	if !d.Discipline.IsSet() || !d.Mode.IsSet() {
		return ErrIncompleteSubmission
	}
	switch d.Discipline {
	case DisciplineFC26:
		if d.Mode != ModeIndividual {
			return &RuleViolation{Reason: ReasonFC26IndividualOnly}
		}
	case DisciplineCS2, DisciplineDOTA2:
		switch d.Mode {
		case ModeTeam, ModeIndividual:
		default:
			return &RuleViolation{Reason: ReasonInvalidMode}
		}
	default:
		return ErrIncompleteSubmission
	}
	return nil
}
