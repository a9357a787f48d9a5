package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/handlers"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/opt"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/frontend/apiclient/apiclienttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, srv *apiclienttest.Server, phone string) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.RequestOTP(ctx, handlers.RequestOTPRequest{Phone: phone})
	require.NoError(t, err)
	_, err = c.VerifyOTP(ctx, phone, apiclienttest.Code)
	require.NoError(t, err)
	return c
}

func TestClient_LoginRoundTrip(t *testing.T) {
	srv := apiclienttest.New(t)
	ctx := context.Background()
	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)

	sent, err := c.RequestOTP(ctx, handlers.RequestOTPRequest{
		Phone: "11999990000",
		Name:  opt.Of("Ana"),
	})
	require.NoError(t, err)
	assert.Equal(t, 600, sent.ExpiresIn)
	assert.Contains(t, srv.Outbox.Last("11999990000"), apiclienttest.Code)

	_, err = c.VerifyOTP(ctx, "11999990000", "000000")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	verified, err := c.VerifyOTP(ctx, "11999990000", apiclienttest.Code)
	require.NoError(t, err)
	assert.Equal(t, "Ana", *verified.User.Name)

	me, err = c.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, verified.User.ID, me.ID)

	require.NoError(t, c.Logout(ctx))
	me, err = c.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestClient_ValidationErrorCarriesEnvelope(t *testing.T) {
	srv := apiclienttest.New(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.RequestOTP(context.Background(), handlers.RequestOTPRequest{Phone: "123"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "INVALID_INPUT", apiErr.Code)
	assert.NotEmpty(t, apiErr.Message)
}

func TestClient_QuestionnaireCRUD(t *testing.T) {
	srv := apiclienttest.New(t)
	ctx := context.Background()
	c := login(t, srv, "11999990000")

	rec, err := c.GetOrCreate(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.CurrentStep)

	step := 2
	updated, err := c.Update(ctx, rec.ID, questionnaire.UpdateParams{
		Data:        json.RawMessage(`{"businessPurpose":"Marketplace","sixMonthGoals":["scale"]}`),
		CurrentStep: &step,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentStep)

	got, err := c.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marketplace", *got.BusinessPurpose)
	assert.Equal(t, models.Tags{"scale"}, got.SixMonthGoals)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = c.ListAll(ctx)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestClient_AnonymousIsUnauthorized(t *testing.T) {
	srv := apiclienttest.New(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetOrCreate(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestClient_AdminSummary(t *testing.T) {
	srv := apiclienttest.New(t)
	srv.SeedOwner(t)
	ctx := context.Background()

	done := true
	for _, phone := range []string{"11999990001", "11999990002"} {
		c := login(t, srv, phone)
		rec, err := c.GetOrCreate(ctx)
		require.NoError(t, err)
		if phone == "11999990001" {
			_, err = c.Update(ctx, rec.ID, questionnaire.UpdateParams{IsCompleted: &done})
			require.NoError(t, err)
		}
	}

	admin := login(t, srv, apiclienttest.OwnerPhone)
	list, err := admin.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	sum, err := admin.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, questionnaire.Summary{Total: 2, Completed: 1, InProgress: 1}, *sum)
}

func TestClient_WithoutCSRFTokenIsRejected(t *testing.T) {
	srv := apiclienttest.New(t)

	resp, err := http.Post(srv.URL+"/api/auth/logout", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
