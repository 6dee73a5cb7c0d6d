package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zoomsync/crm-bridge/internal/crm"
	"github.com/zoomsync/crm-bridge/internal/models"
)

// ContactStore is the slice of the persistence layer the resolver needs.
type ContactStore interface {
	GetContactByEmail(ctx context.Context, email string) (*models.Contact, error)
	SaveResolvedContact(ctx context.Context, c *models.Contact) error
}

// CRMClient is the slice of the remote API the resolver and propagator need.
type CRMClient interface {
	LookupContact(ctx context.Context, email string) (*crm.Contact, error)
	CreateContact(ctx context.Context, req crm.CreateContactRequest) (*crm.Contact, error)
	AddTags(ctx context.Context, contactID string, tags []string) error
	AddToWorkflow(ctx context.Context, contactID, workflowID string, at time.Time) error
}

// Registrant carries the profile fields resolution works with. Email must
// already be normalized.
type Registrant struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Resolver maps a registrant email to a remote contact id, creating the
// remote contact when necessary and keeping the local cache linked.
type Resolver struct {
	store      ContactStore
	crm        CRMClient
	locationID string
	log        *slog.Logger
}

// NewResolver builds a Resolver. locationID is attached to contacts this
// resolver creates remotely.
func NewResolver(store ContactStore, client CRMClient, locationID string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: store, crm: client, locationID: locationID, log: log}
}

// Resolve runs the ordered fallback chain: local cache → remote search →
// remote create → conflict recovery. Whatever branch wins, the local cache
// ends up with a single linked row for the email.
//
// An OutcomeUnresolved result with a nil contact id means the event's tag and
// workflow steps must be skipped; the returned error describes why.
func (r *Resolver) Resolve(ctx context.Context, reg Registrant) (Resolution, error) {
	if reg.Email == "" {
		return Resolution{}, errors.New("registrant email required")
	}

	local, err := r.store.GetContactByEmail(ctx, reg.Email)
	if err != nil {
		return Resolution{}, err
	}
	if local.Linked() {
		return Resolution{ContactID: local.CRMContactID, Outcome: OutcomeLinked}, nil
	}
	// A row without a remote id is treated the same as no row: the remote
	// platform may still know the contact, and the row gets repaired below.

	res, err := r.resolveRemote(ctx, reg)
	if err != nil {
		return Resolution{}, err
	}

	cached := &models.Contact{
		Email:        reg.Email,
		CRMContactID: res.ContactID,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        reg.Phone,
		LocationID:   r.locationID,
	}
	if err := r.store.SaveResolvedContact(ctx, cached); err != nil {
		// The remote contact exists either way; a stale cache heals on the
		// next event for this email.
		r.log.Warn("failed to cache resolved contact",
			"email", reg.Email, "contact_id", res.ContactID, "error", err)
	}
	return res, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, reg Registrant) (Resolution, error) {
	found, err := r.crm.LookupContact(ctx, reg.Email)
	switch {
	case err == nil:
		return Resolution{ContactID: found.ID, Outcome: OutcomeFoundRemote}, nil
	case errors.Is(err, crm.ErrNotFound):
		// True negative; fall through to creation.
	default:
		// Search inconclusive. A 403 hides contacts the API key cannot see,
		// and a 5xx tells us nothing either way. Creation still makes
		// forward progress: a duplicate create is recovered below.
		var perm *crm.PermissionError
		if errors.As(err, &perm) {
			r.log.Error("contact search forbidden, check API key permissions",
				"email", reg.Email, "error", err)
		} else {
			r.log.Warn("contact search inconclusive, falling back to create",
				"email", reg.Email, "error", err)
		}
	}

	created, err := r.crm.CreateContact(ctx, crm.CreateContactRequest{
		Email:      reg.Email,
		FirstName:  reg.FirstName,
		LastName:   reg.LastName,
		Phone:      reg.Phone,
		LocationID: r.locationID,
		Source:     crm.ContactSource,
	})
	if err == nil {
		return Resolution{ContactID: created.ID, Outcome: OutcomeCreated}, nil
	}

	var conflict *crm.ConflictError
	if errors.As(err, &conflict) && conflict.ContactID != "" {
		// The contact exists after all: search raced a very recent create,
		// or a permission gap hid it. Recover the id from the rejection.
		r.log.Info("recovered existing contact from create conflict",
			"email", reg.Email, "contact_id", conflict.ContactID)
		return Resolution{ContactID: conflict.ContactID, Outcome: OutcomeRecoveredFromConflict}, nil
	}

	return Resolution{Outcome: OutcomeUnresolved}, err
}
