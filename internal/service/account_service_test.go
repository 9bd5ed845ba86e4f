package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/events"
	"github.com/spec-kit/accomplishment-service/internal/repository"
)

func newAccountService(env *testEnv, dispatcher events.Dispatcher) *AccountService {
	return NewAccountService(AccountDependencies{
		Accounts: env.accounts,
		Codec:    env.codec,
		Events:   dispatcher,
	})
}

func registerNamed(t *testing.T, env *testEnv, empID, first, last, email string) {
	t.Helper()
	_, err := env.auth.Register(context.Background(), RegisterInput{
		EmployeeID: empID,
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Department: "Research",
		Password:   alicePassword,
	})
	require.NoError(t, err)
}

func TestAccountService_ListDecrypts(t *testing.T) {
	env := newTestEnv(t, nil)
	registerNamed(t, env, "1", "Alice", "Liddell", aliceEmail)
	registerNamed(t, env, "2", "Bob", "Builder", "bob@example.com")

	profiles, err := newAccountService(env, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	byEmp := map[string]domain.Profile{}
	for _, p := range profiles {
		byEmp[p.EmployeeID] = p
	}
	assert.Equal(t, "Alice", byEmp["1"].FirstName)
	assert.Equal(t, aliceEmail, byEmp["1"].Email)
	assert.Equal(t, "Builder", byEmp["2"].LastName)
	assert.Equal(t, "Research", byEmp["2"].Department)
}

func TestAccountService_ListSurfacesDecodeErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	registerNamed(t, env, "1", "Alice", "Liddell", aliceEmail)
	require.NoError(t, env.accounts.Insert(context.Background(), &domain.Account{
		EmployeeID:  "2",
		FirstName:   "plain-text",
		EmailLookup: "x",
		Role:        domain.RoleEmployee,
	}))

	_, err := newAccountService(env, nil).List(context.Background())
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestAccountService_Search(t *testing.T) {
	env := newTestEnv(t, nil)
	registerNamed(t, env, "1001", "Alice", "Liddell", aliceEmail)
	registerNamed(t, env, "2002", "Bob", "Alison", "bob@example.com")
	registerNamed(t, env, "3003", "Carol", "Danvers", "carol@example.com")
	svc := newAccountService(env, nil)

	tests := []struct {
		term string
		want []string
	}{
		{"ali", []string{"1001", "2002"}},
		{"DANV", []string{"3003"}},
		{"200", []string{"2002"}},
		{"example.com", nil},
		{"  ", []string{"1001", "2002", "3003"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := svc.Search(context.Background(), tt.term)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.EmployeeID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestAccountService_Update(t *testing.T) {
	env := newTestEnv(t, nil)
	registerNamed(t, env, "1", "Alice", "Liddell", aliceEmail)
	registerNamed(t, env, "2", "Bob", "Builder", "bob@example.com")
	svc := newAccountService(env, env.auth.events)
	ctx := context.Background()

	alice, err := svc.GetByEmployeeID(ctx, "1")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "admin-1", UpdateInput{
		ID:         alice.ID,
		EmployeeID: "11",
		FirstName:  "Alicia",
		LastName:   "Liddell",
		Email:      "alicia@example.com",
		Department: "Ops",
		Role:       "ADMIN",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	// the new email authenticates with the unchanged password
	res, err := env.auth.Login(ctx, "alicia@example.com", alicePassword)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Role)

	_, err = env.auth.Login(ctx, aliceEmail, alicePassword)
	var ice *InvalidCredentialsError
	assert.ErrorAs(t, err, &ice)

	changed := env.events.ofType(events.EventAccountUpdated)
	require.Len(t, changed, 1)
	assert.Equal(t, events.AccountChangedPayload{ActorID: "admin-1", EmployeeID: "11"}, changed[0].Payload)
}

func TestAccountService_UpdateRejects(t *testing.T) {
	env := newTestEnv(t, nil)
	registerNamed(t, env, "1", "Alice", "Liddell", aliceEmail)
	registerNamed(t, env, "2", "Bob", "Builder", "bob@example.com")
	svc := newAccountService(env, nil)
	ctx := context.Background()

	alice, err := svc.GetByEmployeeID(ctx, "1")
	require.NoError(t, err)

	valid := UpdateInput{
		ID:         alice.ID,
		EmployeeID: "1",
		FirstName:  "Alice",
		LastName:   "Liddell",
		Email:      aliceEmail,
		Department: "Research",
		Role:       "employee",
	}

	t.Run("missing field", func(t *testing.T) {
		in := valid
		in.Department = ""
		_, err := svc.Update(ctx, "admin", in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, RuleRequired, ve.Rule)
		assert.Contains(t, ve.Message, "department")
	})

	t.Run("bad employee id", func(t *testing.T) {
		in := valid
		in.EmployeeID = "x1"
		_, err := svc.Update(ctx, "admin", in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, RuleEmployeeIDFormat, ve.Rule)
	})

	t.Run("duplicate email", func(t *testing.T) {
		in := valid
		in.Email = "BOB@example.com"
		_, err := svc.Update(ctx, "admin", in)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, repository.FieldEmail, ce.Field)
	})

	t.Run("unknown account", func(t *testing.T) {
		in := valid
		in.ID = "missing"
		_, err := svc.Update(ctx, "admin", in)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAccountService_Delete(t *testing.T) {
	env := newTestEnv(t, nil)
	registerNamed(t, env, "1", "Alice", "Liddell", aliceEmail)
	svc := newAccountService(env, env.auth.events)
	ctx := context.Background()

	alice, err := svc.GetByEmployeeID(ctx, "1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "admin-1", alice.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "admin-1", alice.ID), ErrNotFound)

	_, err = svc.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, env.events.ofType(events.EventAccountDeleted), 1)
}
