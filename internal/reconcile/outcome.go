package reconcile

// Outcome tags which branch of the resolution chain produced the contact id.
// Each branch has the same postcondition: a linked local cache row exists for
// the registrant's email.
type Outcome int

const (
	// OutcomeUnresolved means no remote contact id could be obtained; tag and
	// workflow propagation is skipped for the event.
	OutcomeUnresolved Outcome = iota

	// OutcomeLinked is the fast path: the local cache already held a row with
	// a remote contact id.
	OutcomeLinked

	// OutcomeFoundRemote means the remote search located an existing contact.
	OutcomeFoundRemote

	// OutcomeCreated means a new remote contact was created.
	OutcomeCreated

	// OutcomeRecoveredFromConflict means creation was rejected as a duplicate
	// and the existing id was recovered from the rejection payload.
	OutcomeRecoveredFromConflict
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLinked:
		return "linked"
	case OutcomeFoundRemote:
		return "found_remote"
	case OutcomeCreated:
		return "created"
	case OutcomeRecoveredFromConflict:
		return "recovered_from_conflict"
	default:
		return "unresolved"
	}
}

// Resolution is the result of the contact resolution chain.
type Resolution struct {
	ContactID string
	Outcome   Outcome
}

// Resolved reports whether a usable remote contact id was obtained.
func (r Resolution) Resolved() bool {
	return r.Outcome != OutcomeUnresolved && r.ContactID != ""
}
