package models

import "time"

// Contact is a locally cached registrant identity. A row may exist before the
// remote CRM knows about the person (created from a contact-context webhook);
// in that state CRMContactID is empty and the row counts as unlinked.
type Contact struct {
	ID           int64
	Email        string
	CRMContactID string
	FirstName    string
	LastName     string
	Phone        string
	LocationID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Linked reports whether the local row is bound to a remote CRM contact.
func (c *Contact) Linked() bool {
	return c != nil && c.CRMContactID != ""
}

// LedgerEntry is one processed webhook delivery. Entries are append-only and
// exist purely so a second delivery with the same derived id can be detected.
type LedgerEntry struct {
	EventID     string
	EventType   string
	Email       string
	ProcessedAt time.Time
}

// GlobalTagKey is the single settings key the reconciliation path reads.
const GlobalTagKey = "globalZoomTag"

// DefaultGlobalTag is applied when no setting has been written yet.
const DefaultGlobalTag = "zoom-webinar-registrant"
