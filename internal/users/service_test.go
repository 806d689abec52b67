package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/shared"
)

type mockRepo struct {
	users  map[int64]User
	hashes map[int64]string
	grants map[int64]GrantInput
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:  map[int64]User{},
		hashes: map[int64]string{},
		grants: map[int64]GrantInput{},
		nextID: 1,
	}
}

func (m *mockRepo) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, shared.NewPagination(page, perPage, len(out)), nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) Create(ctx context.Context, email, name, passwordHash string) (User, error) {
	u := User{ID: m.nextID, Email: email, Name: name, IsActive: true}
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	m.nextID++
	return u, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, in UpdateUserInput) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.Name, u.IsActive = in.Name, in.IsActive
	m.users[id] = u
	return u, nil
}

func (m *mockRepo) SetGrant(ctx context.Context, userID int64, in GrantInput) error {
	m.grants[userID] = in
	return nil
}

func (m *mockRepo) ClearGrant(ctx context.Context, userID int64) error {
	delete(m.grants, userID)
	return nil
}

func (m *mockRepo) RecordForUser(ctx context.Context, userID int64) (*access.Record, error) {
	grant, ok := m.grants[userID]
	if !ok {
		return nil, nil
	}
	return &access.Record{TotalPages: grant.TotalPages, Permissions: grant.Permissions}, nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:    "new@example.com",
		Name:     "New Agent",
		Password: "password123",
	})
	require.NoError(t, err)

	hash := repo.hashes[user.ID]
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), CreateUserInput{Email: "not-an-email", Name: "x", Password: "short"})
	assert.Error(t, err)
}

func TestGrantLifecycle(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "a@example.com", Name: "A", Password: "password123"})
	require.NoError(t, err)

	record, err := svc.Grant(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, record)

	grant := GrantInput{
		TotalPages: access.PageInbox | access.PageContacts,
		Permissions: []access.PagePermission{
			{PageValue: access.PageInbox, TotalValue: access.ActionView | access.ActionCreate},
		},
	}
	require.NoError(t, svc.SetGrant(ctx, user.ID, grant))

	record, err = svc.Grant(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.CanViewPage(access.PageContacts))
	assert.False(t, record.CanPerform(access.PageContacts, access.ActionView))

	require.NoError(t, svc.ClearGrant(ctx, user.ID))
	record, err = svc.Grant(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestGrantUnknownUser(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.SetGrant(context.Background(), 99, GrantInput{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
