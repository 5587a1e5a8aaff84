package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
)

type harness struct {
	store    *memStore
	provider *fakeProvider
	outbox   *fakeOutbox
	notifier *fakeNotifier
	c        *Coordinator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(),
		provider: newFakeProvider(),
		outbox:   &fakeOutbox{},
		notifier: &fakeNotifier{},
	}
	base := []Option{
		WithOutbox(h.outbox),
		WithNotifier(h.notifier),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithProviderTimeout(time.Second),
	}
	c, err := New(h.store, h.provider, append(base, opts...)...)
	require.NoError(t, err)
	h.c = c
	return h
}

func (h *harness) mutations() int {
	return h.store.mutations() + h.provider.mutations()
}

func strPtr(s string) *string { return &s }

func (h *harness) createAdvisor(t *testing.T, name, email, code string) *domain.Entity {
	t.Helper()
	e, err := h.c.Create(context.Background(), domain.KindAdvisor, domain.Fields{Name: name, Email: email, Code: code}, "")
	require.NoError(t, err)
	return e
}

func (h *harness) createClient(t *testing.T, name, email, advisorID string) *domain.Entity {
	t.Helper()
	e, err := h.c.Create(context.Background(), domain.KindUser, domain.Fields{
		Name:      name,
		Email:     email,
		Role:      domain.RoleAdvisorClient,
		AdvisorID: strPtr(advisorID),
	}, "")
	require.NoError(t, err)
	return e
}

func TestCreate_AdvisorWithoutPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	e, err := h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "João Silva", Email: "joao@x.com", Code: "ADV001"}, "")
	require.NoError(t, err)

	assert.True(t, e.IsActive)
	assert.Equal(t, "ADV001", e.Code)
	assert.Equal(t, domain.RoleAdvisor, e.Role)

	require.Len(t, h.provider.created, 1)
	call := h.provider.created[0]
	assert.True(t, call.SkipPasswordChecks)
	assert.Empty(t, call.Password)
	assert.Equal(t, "João", call.GivenName)
	assert.Equal(t, "Silva", call.FamilyName)
	assert.Equal(t, identity.Metadata{Role: domain.RoleAdvisor, Code: "ADV001"}, call.Metadata)

	// the same id resolves in both systems
	stored, err := h.store.GetByID(ctx, domain.KindAdvisor, e.ID)
	require.NoError(t, err)
	account, err := h.provider.GetAccount(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, account.ID)

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, domain.EventCreated, h.notifier.events[0].Type)
	assert.Equal(t, e.ID, h.notifier.events[0].EntityID)
}

func TestCreate_WithPasswordKeepsChecks(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.Create(context.Background(), domain.KindPlatformAdmin, domain.Fields{Name: "Ana", Email: "ana@x.com"}, "s3cret-pass1")
	require.NoError(t, err)

	require.Len(t, h.provider.created, 1)
	assert.False(t, h.provider.created[0].SkipPasswordChecks)
	assert.Equal(t, "s3cret-pass1", h.provider.created[0].Password)
	assert.Equal(t, "", h.provider.created[0].FamilyName)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	before := h.mutations()

	_, err := h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "Outro", Email: "joao@x.com", Code: "ADV002"}, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	// uniqueness spans every kind
	_, err = h.c.Create(ctx, domain.KindUser, domain.Fields{Name: "Outro", Email: "joao@x.com", Role: domain.RoleOfficeAdmin}, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	assert.Equal(t, before, h.mutations())

	// exact match only
	_, err = h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "Outro", Email: "JOAO@x.com", Code: "ADV002"}, "")
	assert.NoError(t, err)
}

func TestCreate_DuplicateCode(t *testing.T) {
	h := newHarness(t)
	h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	before := h.mutations()

	_, err := h.c.Create(context.Background(), domain.KindAdvisor, domain.Fields{Name: "Maria", Email: "maria@x.com", Code: "ADV001"}, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
	assert.Equal(t, before, h.mutations())

	_, err = h.c.Create(context.Background(), domain.KindAdvisor, domain.Fields{Name: "Maria", Email: "maria@x.com", Code: "adv001"}, "")
	assert.NoError(t, err)
}

func TestCreate_CompensatesOnInsertFailure(t *testing.T) {
	h := newHarness(t)
	insertErr := errors.New("connection reset")
	h.store.insertErr = insertErr

	_, err := h.c.Create(context.Background(), domain.KindAdvisor, domain.Fields{Name: "João Silva", Email: "joao@x.com", Code: "ADV001"}, "")
	assert.ErrorIs(t, err, insertErr)

	require.Len(t, h.provider.created, 1)
	assert.Equal(t, []string{"user_1"}, h.provider.deleted)
	assert.Empty(t, h.outbox.tasks)
	assert.Empty(t, h.notifier.events)
}

func TestCreate_FailedCompensationIsQueued(t *testing.T) {
	h := newHarness(t)
	insertErr := errors.New("connection reset")
	h.store.insertErr = insertErr
	h.provider.deleteErr = errors.New("provider down")

	_, err := h.c.Create(context.Background(), domain.KindUser, domain.Fields{Name: "Maria", Email: "maria@x.com", Role: domain.RoleOfficeAdmin}, "")
	assert.ErrorIs(t, err, insertErr)

	assert.Len(t, h.provider.deleted, 1)
	require.Len(t, h.outbox.tasks, 1)
	assert.Equal(t, recordedTask{taskType: outbox.TaskDeleteAccount, kind: domain.KindUser, accountID: "user_1"}, h.outbox.tasks[0])
}

func TestCreate_ProviderErrorsAreMapped(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pwned", &identity.Error{Code: identity.CodePasswordPwned}, domain.ErrWeakPassword},
		{"too short", &identity.Error{Code: identity.CodePasswordTooShort}, domain.ErrPasswordTooShort},
		{"policy", &identity.Error{Code: identity.CodePasswordValidationFailed}, domain.ErrPasswordPolicyFailed},
		{"taken", &identity.Error{Code: identity.CodeIdentifierExists}, domain.ErrEmailAlreadyUsedExternally},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.provider.createErr = tt.err

			_, err := h.c.Create(context.Background(), domain.KindPlatformAdmin, domain.Fields{Name: "Ana", Email: "ana@x.com"}, "123")
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.store.inserts)
			assert.Empty(t, h.provider.deleted)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		h := newHarness(t)
		h.provider.createErr = &identity.Error{Code: "quota_exceeded", Message: "too many users"}

		_, err := h.c.Create(context.Background(), domain.KindPlatformAdmin, domain.Fields{Name: "Ana", Email: "ana@x.com"}, "")
		var perr *domain.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "too many users", perr.Message)
	})
}

func TestCreate_References(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.offices["open"] = &domain.Office{ID: "open", Name: "Open", IsActive: true}
	h.store.offices["closed"] = &domain.Office{ID: "closed", Name: "Closed"}

	_, err := h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "A", Email: "a@x.com", Code: "A1", OfficeID: strPtr("missing")}, "")
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)

	_, err = h.c.Create(ctx, domain.KindUser, domain.Fields{Name: "B", Email: "b@x.com", Role: domain.RoleOfficeAdmin, OfficeID: strPtr("closed")}, "")
	assert.ErrorIs(t, err, domain.ErrInactiveReference)

	// only office admins need an active office
	_, err = h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "C", Email: "c@x.com", Code: "C1", OfficeID: strPtr("closed")}, "")
	assert.NoError(t, err)

	_, err = h.c.Create(ctx, domain.KindUser, domain.Fields{Name: "D", Email: "d@x.com", Role: domain.RoleAdvisorClient, AdvisorID: strPtr("nobody")}, "")
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)

	advisor := h.createAdvisor(t, "E", "e@x.com", "E1")
	_, err = h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)

	_, err = h.c.Create(ctx, domain.KindUser, domain.Fields{Name: "F", Email: "f@x.com", Role: domain.RoleAdvisorClient, AdvisorID: strPtr(advisor.ID)}, "")
	assert.ErrorIs(t, err, domain.ErrInactiveReference)
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "A", Email: "not-an-email", Code: "A1"}, "")
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Email", verrs[0].Field())

	_, err = h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "  ", Email: "a@x.com", Code: "A1"}, "")
	require.ErrorAs(t, err, &verrs)

	_, err = h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "A", Email: "a@x.com"}, "")
	assert.ErrorIs(t, err, domain.ErrCodeRequired)

	_, err = h.c.Create(ctx, domain.KindUser, domain.Fields{Name: "A", Email: "a@x.com", Role: domain.RoleAdvisor}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = h.c.Create(ctx, domain.KindPlatformAdmin, domain.Fields{Name: "A", Email: "a@x.com", Role: domain.RoleOfficeAdmin}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = h.c.Create(ctx, domain.Kind("ROBOT"), domain.Fields{Name: "A", Email: "a@x.com"}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	assert.Zero(t, h.mutations())
}

func TestUpdate_PhoneOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")

	updated, err := h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Phone: strPtr("+55 11 99999-0000")})
	require.NoError(t, err)

	require.Len(t, h.provider.updated, 1)
	call := h.provider.updated[0]
	assert.Equal(t, advisor.ID, call.id)
	assert.Equal(t, identity.AccountChanges{Phone: strPtr("+55 11 99999-0000")}, call.changes)
	require.NotNil(t, call.metadata)
	assert.Equal(t, domain.RoleAdvisor, call.metadata.Role)
	assert.Equal(t, "ADV001", call.metadata.Code)

	assert.Equal(t, 1, h.store.updates)
	stored, err := h.store.GetByID(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)
	assert.Equal(t, "João Silva", stored.Name)
	assert.Equal(t, "joao@x.com", stored.Email)
	assert.Equal(t, "ADV001", stored.Code)
	assert.Equal(t, "+55 11 99999-0000", stored.Phone)
	assert.Equal(t, stored.Phone, updated.Phone)
}

func TestUpdate_LocalOnlyFieldSkipsProvider(t *testing.T) {
	h := newHarness(t)
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")

	updated, err := h.c.Update(context.Background(), domain.KindAdvisor, advisor.ID, domain.Changes{TaxID: strPtr("123.456.789-09")})
	require.NoError(t, err)

	assert.Empty(t, h.provider.updated)
	assert.Equal(t, "123.456.789-09", updated.TaxID)
	assert.Equal(t, 1, h.store.updates)
}

func TestUpdate_NameAndLinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	second := h.createAdvisor(t, "Pedro Alves", "pedro@x.com", "ADV002")
	client := h.createClient(t, "Maria", "maria@x.com", first.ID)

	_, err := h.c.Update(ctx, domain.KindUser, client.ID, domain.Changes{
		Name:      strPtr("Maria Clara Souza"),
		AdvisorID: strPtr(second.ID),
	})
	require.NoError(t, err)

	require.Len(t, h.provider.updated, 1)
	call := h.provider.updated[0]
	assert.Equal(t, "Maria", *call.changes.GivenName)
	assert.Equal(t, "Clara Souza", *call.changes.FamilyName)
	assert.Nil(t, call.changes.Email)
	assert.Equal(t, second.ID, call.metadata.AdvisorID)
	assert.Equal(t, domain.RoleAdvisorClient, call.metadata.Role)
}

func TestUpdate_KeepsStoredStatusInMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	_, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)

	_, err = h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Code: strPtr("ADV009")})
	require.NoError(t, err)

	last := h.provider.updated[len(h.provider.updated)-1]
	assert.Equal(t, "ADV009", last.metadata.Code)
	require.NotNil(t, last.metadata.IsActive)
	assert.False(t, *last.metadata.IsActive)
}

func TestUpdate_Uniqueness(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	h.createAdvisor(t, "Pedro Alves", "pedro@x.com", "ADV002")
	before := h.mutations()

	_, err := h.c.Update(ctx, domain.KindAdvisor, first.ID, domain.Changes{Email: strPtr("pedro@x.com")})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = h.c.Update(ctx, domain.KindAdvisor, first.ID, domain.Changes{Code: strPtr("ADV002")})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)

	assert.Equal(t, before, h.mutations())

	// re-sending its own values is not a conflict
	_, err = h.c.Update(ctx, domain.KindAdvisor, first.ID, domain.Changes{Email: strPtr("joao@x.com"), Code: strPtr("ADV001")})
	assert.NoError(t, err)
}

func TestUpdate_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.c.Update(ctx, domain.KindAdvisor, "missing", domain.Changes{Phone: strPtr("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")

	_, err = h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Name: strPtr("   ")})
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	role := domain.RoleOfficeAdmin
	_, err = h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Role: &role})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Email: strPtr("bad")})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestUpdate_ProviderFailureLeavesRowAlone(t *testing.T) {
	h := newHarness(t)
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	h.provider.updateErr = &identity.Error{Code: identity.CodeIdentifierExists}

	_, err := h.c.Update(context.Background(), domain.KindAdvisor, advisor.ID, domain.Changes{Email: strPtr("new@x.com")})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyUsedExternally)
	assert.Zero(t, h.store.updates)
	assert.Empty(t, h.outbox.tasks)
}

func TestUpdate_LocalFailureAfterProviderIsQueued(t *testing.T) {
	h := newHarness(t)
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	updateErr := errors.New("deadlock detected")
	h.store.updateErr = updateErr

	_, err := h.c.Update(context.Background(), domain.KindAdvisor, advisor.ID, domain.Changes{Phone: strPtr("123")})
	assert.ErrorIs(t, err, updateErr)

	assert.Len(t, h.provider.updated, 1)
	require.Len(t, h.outbox.tasks, 1)
	assert.Equal(t, outbox.TaskSyncAccount, h.outbox.tasks[0].taskType)
	assert.Equal(t, advisor.ID, h.outbox.tasks[0].accountID)
}

func TestDeactivate_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")

	for i := 0; i < 2; i++ {
		e, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
		require.NoError(t, err)
		assert.False(t, e.IsActive)
	}

	account, err := h.provider.GetAccount(ctx, advisor.ID)
	require.NoError(t, err)
	require.NotNil(t, account.Metadata.IsActive)
	assert.False(t, *account.Metadata.IsActive)
	assert.Equal(t, "ADV001", account.Metadata.Code)

	assert.Equal(t, domain.EventDeactivated, h.notifier.events[len(h.notifier.events)-1].Type)
}

func TestDeactivate_ProviderFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	h.provider.getErr = errors.New("provider unavailable")

	e, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)
	assert.False(t, e.IsActive)

	require.Len(t, h.outbox.tasks, 1)
	assert.Equal(t, outbox.TaskSyncAccount, h.outbox.tasks[0].taskType)
}

func TestDeactivate_AdvisorWithActiveClients(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	h.createClient(t, "Maria", "maria@x.com", advisor.ID)
	before := h.mutations()

	_, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	assert.ErrorIs(t, err, domain.ErrHasActiveDependents)
	assert.Equal(t, before, h.mutations())

	stored, err := h.store.GetByID(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestDeactivate_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Deactivate(context.Background(), domain.KindUser, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	_, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)

	e, err := h.c.Reactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)
	assert.True(t, e.IsActive)

	account, err := h.provider.GetAccount(ctx, advisor.ID)
	require.NoError(t, err)
	assert.True(t, *account.Metadata.IsActive)
	assert.Equal(t, domain.EventReactivated, h.notifier.events[len(h.notifier.events)-1].Type)
}

func TestPermanentDelete_StillActive(t *testing.T) {
	h := newHarness(t)
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	before := h.mutations()

	_, err := h.c.PermanentDelete(context.Background(), domain.KindAdvisor, advisor.ID)
	assert.ErrorIs(t, err, domain.ErrStillActive)
	assert.Equal(t, before, h.mutations())
}

func TestPermanentDelete_AdvisorWithClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	client := h.createClient(t, "Maria", "maria@x.com", advisor.ID)
	_, err := h.c.Deactivate(ctx, domain.KindUser, client.ID)
	require.NoError(t, err)
	_, err = h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)
	before := h.mutations()

	_, err = h.c.PermanentDelete(ctx, domain.KindAdvisor, advisor.ID)
	assert.ErrorIs(t, err, domain.ErrHasDependents)
	assert.Equal(t, before, h.mutations())

	_, err = h.store.GetByID(ctx, domain.KindAdvisor, advisor.ID)
	assert.NoError(t, err)
	_, err = h.provider.GetAccount(ctx, advisor.ID)
	assert.NoError(t, err)
}

func TestPermanentDelete_UserWithRelatedRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	client := h.createClient(t, "Maria", "maria@x.com", advisor.ID)
	_, err := h.c.Deactivate(ctx, domain.KindUser, client.ID)
	require.NoError(t, err)
	h.store.related[client.ID] = domain.RelatedCounts{Insurances: 2}
	before := h.mutations()

	_, err = h.c.PermanentDelete(ctx, domain.KindUser, client.ID)
	assert.ErrorIs(t, err, domain.ErrHasRelatedRecords)
	assert.Equal(t, before, h.mutations())
}

func TestPermanentDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	_, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)

	res, err := h.c.PermanentDelete(ctx, domain.KindAdvisor, advisor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeleteResult{Success: true, Name: "João Silva"}, res)

	_, err = h.store.GetByID(ctx, domain.KindAdvisor, advisor.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.provider.GetAccount(ctx, advisor.ID)
	assert.True(t, identity.IsNotFound(err))
	assert.Equal(t, domain.EventDeleted, h.notifier.events[len(h.notifier.events)-1].Type)
}

func TestPermanentDelete_ProviderFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin, err := h.c.Create(ctx, domain.KindPlatformAdmin, domain.Fields{Name: "Ana", Email: "ana@x.com"}, "")
	require.NoError(t, err)
	_, err = h.c.Deactivate(ctx, domain.KindPlatformAdmin, admin.ID)
	require.NoError(t, err)
	h.provider.deleteErr = errors.New("provider unavailable")

	res, err := h.c.PermanentDelete(ctx, domain.KindPlatformAdmin, admin.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = h.store.GetByID(ctx, domain.KindPlatformAdmin, admin.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, h.outbox.tasks, 1)
	assert.Equal(t, outbox.TaskDeleteAccount, h.outbox.tasks[0].taskType)
}

func TestLockerBusy(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	h := newHarness(t, WithLocker(locker))
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")
	assert.Empty(t, locker.held)

	locker.held[advisor.ID] = true
	before := h.mutations()

	_, err := h.c.Deactivate(ctx, domain.KindAdvisor, advisor.ID)
	assert.ErrorIs(t, err, domain.ErrBusy)
	_, err = h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Phone: strPtr("1")})
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, before, h.mutations())

	locker.held["email:maria@x.com"] = true
	_, err = h.c.Create(ctx, domain.KindAdvisor, domain.Fields{Name: "Maria", Email: "maria@x.com", Code: "M1"}, "")
	assert.ErrorIs(t, err, domain.ErrBusy)
}

func TestUpdate_EmailChangeTakesEmailLock(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	h := newHarness(t, WithLocker(locker))
	ctx := context.Background()
	advisor := h.createAdvisor(t, "João Silva", "joao@x.com", "ADV001")

	locker.held["email:novo@x.com"] = true
	before := h.mutations()

	_, err := h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Email: strPtr("novo@x.com")})
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, before, h.mutations())
	assert.False(t, locker.held[advisor.ID])

	delete(locker.held, "email:novo@x.com")
	updated, err := h.c.Update(ctx, domain.KindAdvisor, advisor.ID, domain.Changes{Email: strPtr("novo@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "novo@x.com", updated.Email)
	assert.Empty(t, locker.held)
}

type hangingProvider struct {
	*fakeProvider
}

func (p hangingProvider) CreateAccount(ctx context.Context, account identity.NewAccount) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCreate_ProviderTimeout(t *testing.T) {
	store := newMemStore()
	c, err := New(store, hangingProvider{newFakeProvider()},
		WithProviderTimeout(20*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	_, err = c.Create(context.Background(), domain.KindPlatformAdmin, domain.Fields{Name: "Ana", Email: "ana@x.com"}, "")
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "deadline exceeded")
	assert.Zero(t, store.inserts)
}

func TestCreate_RejectsInvalidCPF(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.Create(context.Background(), domain.KindAdvisor, domain.Fields{Name: "A", Email: "a@x.com", Code: "A1", TaxID: "123.456.789-00"}, "")
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "cpf", verrs[0].Tag())
	assert.Zero(t, h.mutations())
}

func TestNew_RegistersTagsOnSharedValidator(t *testing.T) {
	v := validator.New(validator.WithRequiredStructEnabled())

	_, err := New(newMemStore(), newFakeProvider(), WithValidator(v))
	require.NoError(t, err)

	assert.NoError(t, v.Var("529.982.247-25", "cpf"))
	assert.Error(t, v.Var("111.111.111-11", "cpf"))
}
