package users

import (
	"context"
	"testing"
	"time"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/database"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/opt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupDirectory(t *testing.T, ownerID string) (*Directory, *time.Time) {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	now := t0
	return New(db, ownerID).WithClock(func() time.Time { return now }), &now
}

func TestUpsert_RequiresID(t *testing.T) {
	dir, _ := setupDirectory(t, "")
	err := dir.Upsert(context.Background(), UpsertParams{Phone: opt.Of("11999990000")})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUpsert_InsertsWithDefaultRole(t *testing.T) {
	dir, _ := setupDirectory(t, "owner-1")
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, UpsertParams{
		ID:          "u1",
		Phone:       opt.Of("11999990000"),
		Name:        opt.Of("Ana"),
		LoginMethod: opt.Of("otp"),
	}))

	u, err := dir.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, "Ana", *u.Name)
	assert.Equal(t, "otp", *u.LoginMethod)
	assert.Nil(t, u.Email)
	assert.True(t, u.CreatedAt.Equal(t0))
}

func TestUpsert_OwnerIsAdmin(t *testing.T) {
	dir, _ := setupDirectory(t, "owner-1")
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "owner-1", Phone: opt.Of("11000000000")}))
	u, err := dir.FindByID(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "owner-1", Role: opt.Of(models.RoleUser)}))
	u, err = dir.FindByID(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role, "an explicit role wins over the owner rule")
}

func TestUpsert_OmittedFieldsUntouchedNullClears(t *testing.T) {
	dir, _ := setupDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, UpsertParams{
		ID:    "u1",
		Name:  opt.Of("Ana"),
		Email: opt.Of("ana@example.com"),
		Phone: opt.Of("11999990000"),
	}))
	require.NoError(t, dir.Upsert(ctx, UpsertParams{
		ID:    "u1",
		Email: opt.Null[string](),
	}))

	u, err := dir.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Ana", *u.Name)
	assert.Equal(t, "11999990000", *u.Phone)
	assert.Nil(t, u.Email)
}

func TestUpsert_NothingStagedTouchesLastSignedIn(t *testing.T) {
	dir, now := setupDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "u1", Phone: opt.Of("11999990000")}))
	*now = t0.Add(time.Hour)
	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "u1"}))

	u, err := dir.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.LastSignedIn.Equal(t0.Add(time.Hour)))
	assert.True(t, u.CreatedAt.Equal(t0))
}

func TestUpsert_ExplicitLastSignedIn(t *testing.T) {
	dir, _ := setupDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "u1"}))
	later := t0.Add(48 * time.Hour)
	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "u1", LastSignedIn: opt.Of(later)}))

	u, err := dir.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.LastSignedIn.Equal(later))
}

func TestFind_AbsenceIsNotAnError(t *testing.T) {
	dir, _ := setupDirectory(t, "")
	ctx := context.Background()

	u, err := dir.FindByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = dir.FindByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = dir.FindByPhone(ctx, "11000000000")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestFind_ByEmailAndPhone(t *testing.T) {
	dir, _ := setupDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "u1", Email: opt.Of("ana@example.com"), Phone: opt.Of("11999990000")}))

	u, err := dir.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	u, err = dir.FindByPhone(ctx, "11999990000")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
}

func TestDirectory_NilDatabaseDegrades(t *testing.T) {
	dir := New(nil, "")
	ctx := context.Background()

	assert.NoError(t, dir.Upsert(ctx, UpsertParams{ID: "u1"}))
	u, err := dir.FindByID(ctx, "u1")
	assert.NoError(t, err)
	assert.Nil(t, u)
}
