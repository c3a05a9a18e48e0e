package sellers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/internal/users"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	issuer, err := sequence.NewIssuer(conn)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn), db.Wrap(conn), issuer)
	require.NoError(t, err)
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		UserNumber:   uuid.NewString()[:6],
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Sam",
		LastName:     "Seller",
		Role:         enums.UserRoleCustomer,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func TestRegisterCreatesProfileAndPromotesRole(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	first := seedUser(t, conn, "one@example.com")
	second := seedUser(t, conn, "two@example.com")

	a, err := svc.Register(ctx, first.ID, RegisterInput{CompanyName: "  Acme Outdoor "})
	require.NoError(t, err)
	b, err := svc.Register(ctx, second.ID, RegisterInput{CompanyName: "Bolt Bikes"})
	require.NoError(t, err)

	assert.Equal(t, "000001", a.SellerNumber)
	assert.Equal(t, "000002", b.SellerNumber)
	assert.Equal(t, "Acme Outdoor", a.CompanyName)

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, "id = ?", first.ID).Error)
	assert.Equal(t, enums.UserRoleSeller, reloaded.Role)

	found, err := svc.GetByUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
}

func TestRegisterOneProfilePerUser(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, conn, "solo@example.com")

	_, err := svc.Register(ctx, user.ID, RegisterInput{CompanyName: "First"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, user.ID, RegisterInput{CompanyName: "Second"})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	issuer, err := sequence.NewIssuer(conn)
	require.NoError(t, err)
	current, err := issuer.Current(ctx, enums.SequenceSeller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current, "rejected registration must not consume a number")
}

func TestRegisterUnknownUserAndValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, uuid.New(), RegisterInput{CompanyName: "Ghost"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.Register(ctx, uuid.New(), RegisterInput{CompanyName: "  "})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
