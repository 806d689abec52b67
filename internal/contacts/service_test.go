package contacts

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/optimistic"
	"github.com/relaydesk/relaydesk/internal/shared"
)

type mockRepo struct {
	contact   Contact
	getErr    error
	tags      []string
	fields    []CustomField
	addErr    error
	addCalls  int
	upserted  []CustomField
	upsertErr error
}

func (m *mockRepo) Search(ctx context.Context, query string, page, perPage int) ([]Contact, shared.Pagination, error) {
	return []Contact{m.contact}, shared.NewPagination(page, perPage, 1), nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Contact, error) {
	if m.getErr != nil {
		return Contact{}, m.getErr
	}
	return m.contact, nil
}

func (m *mockRepo) Create(ctx context.Context, in CreateContactInput) (Contact, error) {
	return Contact{ID: 1, Name: in.Name, Email: in.Email}, nil
}

func (m *mockRepo) ListTags(ctx context.Context, contactID int64) ([]string, error) {
	return m.tags, nil
}

func (m *mockRepo) AddTag(ctx context.Context, contactID int64, tag string) error {
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	m.tags = append(m.tags, tag)
	return nil
}

func (m *mockRepo) RemoveTag(ctx context.Context, contactID int64, tag string) error {
	for i, existing := range m.tags {
		if existing == tag {
			m.tags = append(m.tags[:i], m.tags[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepo) ListFields(ctx context.Context, contactID int64) ([]CustomField, error) {
	return m.fields, nil
}

func (m *mockRepo) UpsertField(ctx context.Context, contactID int64, field CustomField) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, field)
	return nil
}

func newTestService(t *testing.T, repo *mockRepo) (*Service, *optimistic.MemoryStore) {
	t.Helper()
	store := optimistic.NewMemoryStore()
	coord := optimistic.NewCoordinator(optimistic.Config{
		Store:    store,
		Logger:   slog.Default(),
		Schedule: func(time.Duration, func()) func() { return func() {} },
	})
	return NewService(repo, coord, store, slog.Default()), store
}

func TestAddTagNormalizesAndPersists(t *testing.T) {
	repo := &mockRepo{contact: Contact{ID: 5, Name: "Ada"}}
	svc, store := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.AddTag(ctx, 5, "  VIP Customer "))
	assert.Equal(t, []string{"vip customer"}, repo.tags)

	stale, err := store.Stale(ctx, TagScope(5))
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestAddTagRejectsEmptyBeforeOptimisticState(t *testing.T) {
	repo := &mockRepo{contact: Contact{ID: 5}}
	svc, store := newTestService(t, repo)
	ctx := context.Background()

	err := svc.AddTag(ctx, 5, "   ")
	assert.ErrorIs(t, err, ErrEmptyTag)
	assert.Equal(t, 0, repo.addCalls)

	bucket, rerr := store.Read(ctx, TagScope(5))
	require.NoError(t, rerr)
	assert.Empty(t, bucket)
}

func TestAddTagFailureRollsBack(t *testing.T) {
	repo := &mockRepo{contact: Contact{ID: 5}, addErr: errors.New("write refused")}
	svc, store := newTestService(t, repo)
	ctx := context.Background()

	err := svc.AddTag(ctx, 5, "vip")
	require.Error(t, err)
	assert.Equal(t, 1, repo.addCalls)

	scope := TagScope(5)
	bucket, rerr := store.Read(ctx, scope)
	require.NoError(t, rerr)
	assert.Empty(t, bucket)
	stale, rerr := store.Stale(ctx, scope)
	require.NoError(t, rerr)
	assert.False(t, stale)
}

func TestSetFieldValidation(t *testing.T) {
	repo := &mockRepo{contact: Contact{ID: 5}}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	assert.Error(t, svc.SetField(ctx, 5, CustomField{Key: "", Value: "x"}))
	assert.Empty(t, repo.upserted)

	require.NoError(t, svc.SetField(ctx, 5, CustomField{Key: "plan", Value: "enterprise"}))
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "plan", repo.upserted[0].Key)
}

func TestFieldsViewClearsStale(t *testing.T) {
	repo := &mockRepo{contact: Contact{ID: 5}, fields: []CustomField{{Key: "plan", Value: "basic"}}}
	svc, store := newTestService(t, repo)
	ctx := context.Background()
	scope := FieldScope(5)

	require.NoError(t, store.Invalidate(ctx, scope))
	fields, pending, err := svc.FieldsView(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, fields, 1)
	assert.Empty(t, pending)

	stale, err := store.Stale(ctx, scope)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestSearchKeyFolding(t *testing.T) {
	assert.Equal(t, "renee d'avila", SearchKey("Renée D'Ávila"))
	assert.Equal(t, "joao", SearchKey("  João "))
	assert.Equal(t, SearchKey("MÜLLER"), SearchKey("muller"))
}
