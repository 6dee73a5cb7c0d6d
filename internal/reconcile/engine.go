// Package reconcile turns a de-duplicated registration event into a linked
// CRM contact carrying the current classification tags.
package reconcile

import (
	"context"
	"log/slog"
)

// Ledger is the slice of the persistence layer that records processed events.
type Ledger interface {
	RecordEventIfNew(ctx context.Context, eventID, eventType, email string) (bool, error)
}

// Engine runs the reconciliation pipeline for one registration event:
// ledger → resolve → propagate.
type Engine struct {
	ledger     Ledger
	resolver   *Resolver
	propagator *Propagator
	log        *slog.Logger
}

// NewEngine wires the pipeline stages together.
func NewEngine(ledger Ledger, resolver *Resolver, propagator *Propagator, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{ledger: ledger, resolver: resolver, propagator: propagator, log: log}
}

// Result reports what one delivery produced.
type Result struct {
	EventID   string
	Duplicate bool
	ContactID string
	Outcome   Outcome
}

// ProcessRegistration handles one delivery. Duplicates short-circuit with
// success and no side effects. A registrant that cannot be resolved still
// counts as processed: the ledger entry stands and only the tag/workflow
// steps are skipped, because retrying the delivery could not do better. Tag
// and workflow failures are likewise logged without failing the event.
//
// The returned error is reserved for failures the event source should retry,
// which in practice means the ledger write failing outright.
func (e *Engine) ProcessRegistration(ctx context.Context, eventID, eventType string, reg Registrant) (Result, error) {
	res := Result{EventID: eventID}

	created, err := e.ledger.RecordEventIfNew(ctx, eventID, eventType, reg.Email)
	if err != nil {
		return res, err
	}
	if !created {
		res.Duplicate = true
		e.log.Info("duplicate event ignored", "event_id", eventID, "event_type", eventType)
		return res, nil
	}

	resolution, err := e.resolver.Resolve(ctx, reg)
	res.Outcome = resolution.Outcome
	res.ContactID = resolution.ContactID
	if err != nil || !resolution.Resolved() {
		e.log.Error("contact resolution failed, skipping tag propagation",
			"event_id", eventID, "email", reg.Email, "error", err)
		return res, nil
	}

	e.log.Info("contact resolved",
		"event_id", eventID, "email", reg.Email,
		"contact_id", resolution.ContactID, "outcome", resolution.Outcome.String())

	if err := e.propagator.Propagate(ctx, resolution.ContactID); err != nil {
		// The contact exists and is cached; only this event's tags were
		// lost. Do not fail the delivery — the ledger entry already stands,
		// so a retry would be suppressed as a duplicate anyway.
		e.log.Error("tag propagation failed",
			"event_id", eventID, "contact_id", resolution.ContactID, "error", err)
	}
	return res, nil
}
