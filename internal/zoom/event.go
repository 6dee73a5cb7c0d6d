package zoom

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EventURLValidation is Zoom's endpoint ownership challenge. It must be
// answered with a signed token instead of being processed as a registration.
const EventURLValidation = "endpoint.url_validation"

// Registrant is the person attached to a registration event.
type Registrant struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// FlexibleID accepts both string and numeric JSON encodings; the provider
// uses either depending on the event family.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// EventObject is the meeting/webinar the event is about.
type EventObject struct {
	// ID is the meeting/webinar id, shared by every registrant of the same
	// session.
	ID         FlexibleID `json:"id"`
	UUID       string     `json:"uuid"`
	Topic      string     `json:"topic"`
	Registrant Registrant `json:"registrant"`
}

// Payload wraps the event object plus the handshake token.
type Payload struct {
	PlainToken string      `json:"plainToken"`
	Object     EventObject `json:"object"`
}

// Event is the inbound webhook envelope.
type Event struct {
	Event   string  `json:"event"`
	Payload Payload `json:"payload"`
}

// NormalizedEmail returns the registrant email lower-cased and trimmed, the
// canonical form every local lookup and remote call uses.
func (e *Event) NormalizedEmail() string {
	return NormalizeEmail(e.Payload.Object.Registrant.Email)
}

// NormalizeEmail canonicalizes an email for identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EventID derives the de-duplication identity for a delivery.
//
// The meeting id alone is useless as a key: every registrant of a session
// shares it, so keying on it would suppress all but the first sign-up.
// Identity precedence:
//  1. meetingID:email:eventType — distinct registrants of one session stay
//     distinct, while a retried delivery for the same registrant collapses.
//  2. the provider-assigned session UUID
//  3. the request timestamp header (weakest; only distinguishes deliveries)
//  4. a generated UUID, so the ledger never sees an empty key
func EventID(e *Event, requestTimestamp string) string {
	meetingID := strings.TrimSpace(string(e.Payload.Object.ID))
	email := e.NormalizedEmail()
	if meetingID != "" && email != "" {
		return fmt.Sprintf("%s:%s:%s", meetingID, email, e.Event)
	}
	if u := strings.TrimSpace(e.Payload.Object.UUID); u != "" {
		return fmt.Sprintf("%s:%s", u, e.Event)
	}
	if ts := strings.TrimSpace(requestTimestamp); ts != "" {
		return fmt.Sprintf("ts:%s:%s", ts, e.Event)
	}
	return uuid.New().String()
}
