package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/pkg/auth"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "shopeazy", ExpirationMinutes: 30}

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := dbtest.Open(t)
	issuer, err := sequence.NewIssuer(conn)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.Wrap(conn),
		Issuer: issuer,
		Password: config.PasswordConfig{
			ArgonMemoryKB:    32768,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		JWT: testJWT,
		Now: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterIssuesSequentialUserNumbers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "lovelace1843", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	second, err := svc.Register(ctx, RegisterInput{Email: "alan@example.com", Password: "turing1936", FirstName: "Alan", LastName: "Turing"})
	require.NoError(t, err)

	assert.Equal(t, "000001", first.UserNumber)
	assert.Equal(t, "000002", second.UserNumber)
	assert.Equal(t, "ada@example.com", first.Email)
	assert.Equal(t, enums.UserRoleCustomer, first.Role)
}

func TestRegisterRejectsDuplicateEmailWithoutBurningState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "password1", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "DUP@example.com", Password: "password1", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "nope", Password: "password1", FirstName: "A", LastName: "B"},
		{Email: "a@example.com", Password: "short1", FirstName: "A", LastName: "B"},
		{Email: "a@example.com", Password: "lettersonly", FirstName: "A", LastName: "B"},
		{Email: "a@example.com", Password: "password1", FirstName: " ", LastName: "B"},
	}
	for _, input := range cases {
		_, err := svc.Register(ctx, input)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "input %+v", input)
	}
}

func TestLoginMintsVerifiableToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "grace@example.com", Password: "cobol1959", FirstName: "Grace", LastName: "Hopper"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "GRACE@example.com", "cobol1959")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := auth.ParseAccessToken(testJWT, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleCustomer, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "linus@example.com", Password: "kernel1991", FirstName: "Linus", LastName: "T"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "linus@example.com", "wrongpass1")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "ghost@example.com", "kernel1991")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	conn := dbtest.Open(t)
	issuer, err := sequence.NewIssuer(conn)
	require.NoError(t, err)
	repo := NewRepository(conn)
	cost := config.PasswordConfig{ArgonMemoryKB: 32768, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

	build := func(cfg config.PasswordConfig) Service {
		svc, err := NewService(ServiceParams{Repo: repo, Tx: db.Wrap(conn), Issuer: issuer, Password: cfg, JWT: testJWT})
		require.NoError(t, err)
		return svc
	}
	ctx := context.Background()
	created, err := build(cost).Register(ctx, RegisterInput{Email: "barbara@example.com", Password: "clu1974x", FirstName: "Barbara", LastName: "Liskov"})
	require.NoError(t, err)

	cost.ArgonTime = 2
	_, err = build(cost).Login(ctx, "barbara@example.com", "clu1974x")
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, ",t=2,")

	_, err = build(cost).Login(ctx, "barbara@example.com", "clu1974x")
	assert.NoError(t, err)
}
