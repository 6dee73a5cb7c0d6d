package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/zoomsync/crm-bridge/internal/crm"
	"github.com/zoomsync/crm-bridge/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeContactStore mirrors the repair semantics of the postgres layer:
// SaveResolvedContact updates an email-keyed row in place, attaches the email
// to an id-first row (one created with only a remote id, so no email yet),
// and inserts only when neither row exists — never a second row per email.
type fakeContactStore struct {
	mu      sync.Mutex
	byEmail map[string]*models.Contact
	idOnly  map[string]*models.Contact
	getErr  error
	saveErr error
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{
		byEmail: map[string]*models.Contact{},
		idOnly:  map[string]*models.Contact{},
	}
}

func (s *fakeContactStore) GetContactByEmail(_ context.Context, email string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	c, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *fakeContactStore) SaveResolvedContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if existing, ok := s.byEmail[c.Email]; ok {
		existing.CRMContactID = c.CRMContactID
		return nil
	}
	if existing, ok := s.idOnly[c.CRMContactID]; ok {
		existing.Email = c.Email
		s.byEmail[c.Email] = existing
		delete(s.idOnly, c.CRMContactID)
		return nil
	}
	copied := *c
	s.byEmail[c.Email] = &copied
	return nil
}

func (s *fakeContactStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail) + len(s.idOnly)
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{}}
}

func (s *fakeSettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeSettings) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

type fakeCRM struct {
	mu sync.Mutex

	lookupResult *crm.Contact
	lookupErr    error
	lookupCalls  int

	createResult *crm.Contact
	createErr    error
	createCalls  int

	taggedContacts map[string][]string
	tagErr         error

	workflowCalls []string
	workflowAt    time.Time
	workflowErr   error
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{taggedContacts: map[string][]string{}}
}

func (f *fakeCRM) LookupContact(_ context.Context, _ string) (*crm.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.lookupResult, nil
}

func (f *fakeCRM) CreateContact(_ context.Context, _ crm.CreateContactRequest) (*crm.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeCRM) AddTags(_ context.Context, contactID string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagErr != nil {
		return f.tagErr
	}
	f.taggedContacts[contactID] = append(f.taggedContacts[contactID], tags...)
	return nil
}

func (f *fakeCRM) AddToWorkflow(_ context.Context, contactID, workflowID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.workflowErr != nil {
		return f.workflowErr
	}
	f.workflowCalls = append(f.workflowCalls, contactID+":"+workflowID)
	f.workflowAt = at
	return nil
}

func (f *fakeCRM) tagsFor(contactID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taggedContacts[contactID]
}

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: map[string]bool{}}
}

func (l *fakeLedger) RecordEventIfNew(_ context.Context, eventID, _, _ string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen[eventID] {
		return false, nil
	}
	l.seen[eventID] = true
	return true, nil
}
