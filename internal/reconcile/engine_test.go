package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoomsync/crm-bridge/internal/crm"
	"github.com/zoomsync/crm-bridge/internal/models"
)

func newTestEngine(ledger *fakeLedger, store *fakeContactStore, api *fakeCRM, settings *fakeSettings) *Engine {
	log := discardLogger()
	resolver := NewResolver(store, api, "loc-1", log)
	propagator := NewPropagator(api, settings, "", log)
	return NewEngine(ledger, resolver, propagator, log)
}

func TestProcessRegistration_FirstDeliveryHasSideEffects(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContactStore()
	api := newFakeCRM()
	api.lookupErr = crm.ErrNotFound
	api.createResult = &crm.Contact{ID: "c-1"}
	e := newTestEngine(ledger, store, api, newFakeSettings())

	res, err := e.ProcessRegistration(context.Background(),
		"555:a@x.com:webinar.registration_created", "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.NotEmpty(t, api.tagsFor("c-1"))
}

func TestProcessRegistration_DuplicateShortCircuits(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContactStore()
	api := newFakeCRM()
	api.lookupErr = crm.ErrNotFound
	api.createResult = &crm.Contact{ID: "c-1"}
	e := newTestEngine(ledger, store, api, newFakeSettings())

	id := "555:a@x.com:webinar.registration_created"
	_, err := e.ProcessRegistration(context.Background(), id, "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	require.NoError(t, err)

	lookupsAfterFirst := api.lookupCalls
	createsAfterFirst := api.createCalls

	res, err := e.ProcessRegistration(context.Background(), id, "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, lookupsAfterFirst, api.lookupCalls, "duplicate must not resolve again")
	assert.Equal(t, createsAfterFirst, api.createCalls)
}

func TestProcessRegistration_DistinctRegistrantsSameSession(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContactStore()
	api := newFakeCRM()
	api.lookupErr = crm.ErrNotFound
	api.createResult = &crm.Contact{ID: "c-1"}
	e := newTestEngine(ledger, store, api, newFakeSettings())

	resA, err := e.ProcessRegistration(context.Background(),
		"555:a@x.com:webinar.registration_created", "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	require.NoError(t, err)
	resB, err := e.ProcessRegistration(context.Background(),
		"555:b@x.com:webinar.registration_created", "webinar.registration_created",
		Registrant{Email: "b@x.com"})
	require.NoError(t, err)

	assert.False(t, resA.Duplicate)
	assert.False(t, resB.Duplicate, "same session id must not suppress a different registrant")
}

func TestProcessRegistration_LedgerFailureIsReturned(t *testing.T) {
	ledger := newFakeLedger()
	ledger.err = assert.AnError
	e := newTestEngine(ledger, newFakeContactStore(), newFakeCRM(), newFakeSettings())

	_, err := e.ProcessRegistration(context.Background(), "evt-1", "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	assert.Error(t, err)
}

func TestProcessRegistration_UnresolvedSkipsPropagationButCountsAsProcessed(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContactStore()
	api := newFakeCRM()
	api.lookupErr = crm.ErrNotFound
	api.createErr = &crm.APIError{Operation: "create contact", StatusCode: 500}
	e := newTestEngine(ledger, store, api, newFakeSettings())

	res, err := e.ProcessRegistration(context.Background(), "evt-1", "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	require.NoError(t, err, "resolution failure is not a delivery failure")
	assert.Equal(t, OutcomeUnresolved, res.Outcome)
	assert.Empty(t, api.taggedContacts)
	assert.True(t, ledger.seen["evt-1"], "the event still counts as processed")
}

func TestProcessRegistration_TagFailureDoesNotFailDelivery(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContactStore()
	api := newFakeCRM()
	api.lookupResult = &crm.Contact{ID: "c-1"}
	api.tagErr = assert.AnError
	e := newTestEngine(ledger, store, api, newFakeSettings())

	res, err := e.ProcessRegistration(context.Background(), "evt-1", "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	assert.NoError(t, err)
	assert.Equal(t, "c-1", res.ContactID)
}

func TestProcessRegistration_UnlinkedRowEndsUpLinked(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContactStore()
	// Row created earlier by the contact-context path, not yet linked.
	store.byEmail["a@x.com"] = &models.Contact{Email: "a@x.com"}
	api := newFakeCRM()
	api.lookupResult = &crm.Contact{ID: "c-1"}
	e := newTestEngine(ledger, store, api, newFakeSettings())

	res, err := e.ProcessRegistration(context.Background(), "evt-1", "webinar.registration_created",
		Registrant{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFoundRemote, res.Outcome)
	assert.Equal(t, 1, store.rowCount())
	assert.True(t, store.byEmail["a@x.com"].Linked())
}
