package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
)

type memStore struct {
	mu       sync.Mutex
	entities map[string]*domain.Entity
	offices  map[string]*domain.Office
	related  map[string]domain.RelatedCounts

	insertErr error
	updateErr error

	inserts, updates, setActives, deletes int
}

func newMemStore() *memStore {
	return &memStore{
		entities: map[string]*domain.Entity{},
		offices:  map[string]*domain.Office{},
		related:  map[string]domain.RelatedCounts{},
	}
}

func (s *memStore) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts + s.updates + s.setActives + s.deletes
}

func (s *memStore) put(e *domain.Entity) {
	cp := *e
	s.entities[e.ID] = &cp
}

func (s *memStore) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok || e.Kind != kind {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) FindByEmail(ctx context.Context, email string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) FindByCode(ctx context.Context, code string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.Kind == domain.KindAdvisor && e.Code == code {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) Insert(ctx context.Context, e *domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	s.put(e)
	return nil
}

func (s *memStore) Update(ctx context.Context, e *domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.entities[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.put(e)
	return nil
}

func (s *memStore) SetActive(ctx context.Context, kind domain.Kind, id string, active bool) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setActives++
	e, ok := s.entities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.IsActive = active
	cp := *e
	return &cp, nil
}

func (s *memStore) Delete(ctx context.Context, kind domain.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.entities, id)
	return nil
}

func (s *memStore) CountDependents(ctx context.Context, advisorID string, activeOnly bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entities {
		if e.AdvisorID != nil && *e.AdvisorID == advisorID && (!activeOnly || e.IsActive) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountRelated(ctx context.Context, userID string) (domain.RelatedCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.related[userID], nil
}

func (s *memStore) GetOffice(ctx context.Context, id string) (*domain.Office, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

type updateCall struct {
	id       string
	changes  identity.AccountChanges
	metadata *identity.Metadata
}

type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*identity.Account
	seq      int

	createErr error
	updateErr error
	getErr    error
	deleteErr error

	created []identity.NewAccount
	updated []updateCall
	deleted []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*identity.Account{}}
}

func (p *fakeProvider) mutations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.created) + len(p.updated) + len(p.deleted)
}

func (p *fakeProvider) CreateAccount(ctx context.Context, account identity.NewAccount) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, account)
	if p.createErr != nil {
		return "", p.createErr
	}
	p.seq++
	id := fmt.Sprintf("user_%d", p.seq)
	p.accounts[id] = &identity.Account{
		ID:         id,
		Email:      account.Email,
		GivenName:  account.GivenName,
		FamilyName: account.FamilyName,
		Metadata:   account.Metadata,
	}
	return id, nil
}

func (p *fakeProvider) UpdateAccount(ctx context.Context, id string, changes identity.AccountChanges, metadata *identity.Metadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, updateCall{id: id, changes: changes, metadata: metadata})
	if p.updateErr != nil {
		return p.updateErr
	}
	a, ok := p.accounts[id]
	if !ok {
		return &identity.Error{Status: 404, Code: identity.CodeNotFound}
	}
	if metadata != nil {
		a.Metadata = *metadata
	}
	if changes.Phone != nil {
		a.Phone = *changes.Phone
	}
	return nil
}

func (p *fakeProvider) GetAccount(ctx context.Context, id string) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	a, ok := p.accounts[id]
	if !ok {
		return nil, &identity.Error{Status: 404, Code: identity.CodeNotFound}
	}
	cp := *a
	return &cp, nil
}

func (p *fakeProvider) DeleteAccount(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	if p.deleteErr != nil {
		return p.deleteErr
	}
	delete(p.accounts, id)
	return nil
}

type recordedTask struct {
	taskType  outbox.TaskType
	kind      domain.Kind
	accountID string
}

type fakeOutbox struct {
	tasks []recordedTask
}

func (o *fakeOutbox) NewTask(ctx context.Context, taskType outbox.TaskType, kind domain.Kind, accountID, reason string) (string, error) {
	o.tasks = append(o.tasks, recordedTask{taskType: taskType, kind: kind, accountID: accountID})
	return fmt.Sprintf("task_%d", len(o.tasks)), nil
}

type fakeNotifier struct {
	events []domain.Event
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, event domain.Event) error {
	n.events = append(n.events, event)
	return n.err
}

type fakeLocker struct {
	held map[string]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l.held[key] {
		return nil, domain.ErrBusy
	}
	l.held[key] = true
	return func() { delete(l.held, key) }, nil
}
