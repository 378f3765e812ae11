package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fintrack/internal/apperr"
	"github.com/dukerupert/fintrack/internal/model"
)

func setupInvitation(t *testing.T) (*testEnv, *model.User, *model.User, *model.HouseholdDetail) {
	t.Helper()
	env := newTestEnv(t)
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")
	h, err := env.household.Create(context.Background(), a.ID, "Home", model.SplitEqual)
	require.NoError(t, err)
	return env, a, b, h
}

func TestInvitationSend(t *testing.T) {
	env, a, _, h := setupInvitation(t)
	ctx := context.Background()

	inv, err := env.invitation.Send(ctx, a.ID, h.ID, "  B@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", inv.Email)
	assert.Equal(t, model.InvitationPending, inv.Status)
	assert.Equal(t, env.clock.Now().Add(7*24*time.Hour).UnixMilli(), inv.ExpiresAt.UnixMilli())
	assert.Len(t, inv.Token, 36)

	env.invitation.WaitForMail()
	sent := env.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, sentInvite{"b@example.com", "a", "Home", inv.Token}, sent[0])
}

func TestInvitationSendGuards(t *testing.T) {
	env, a, b, h := setupInvitation(t)
	ctx := context.Background()

	_, err := env.invitation.Send(ctx, b.ID, h.ID, "c@example.com")
	assert.ErrorIs(t, err, apperr.ErrForbidden, "non-member cannot invite")

	_, err = env.invitation.Send(ctx, a.ID, h.ID, "a@example.com")
	assert.ErrorIs(t, err, apperr.ErrConflict, "already a member")

	_, err = env.invitation.Send(ctx, a.ID, h.ID, "not-an-email")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.invitation.Send(ctx, a.ID, h.ID, "c@example.com")
	require.NoError(t, err)
	_, err = env.invitation.Send(ctx, a.ID, h.ID, "c@example.com")
	assert.ErrorIs(t, err, apperr.ErrConflict, "duplicate pending")

	env.clock.Advance(8 * 24 * time.Hour)
	_, err = env.invitation.Send(ctx, a.ID, h.ID, "c@example.com")
	assert.NoError(t, err, "lapsed invitation no longer blocks a new one")
	env.invitation.WaitForMail()
}

func TestInvitationSendSurvivesMailFailure(t *testing.T) {
	env, a, _, h := setupInvitation(t)
	env.mailer.err = errors.New("postmark down")

	inv, err := env.invitation.Send(context.Background(), a.ID, h.ID, "b@example.com")
	require.NoError(t, err)
	env.invitation.WaitForMail()

	stored, err := env.invitations.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.InvitationPending, stored.Status)
}

func TestInvitationAcceptLifecycle(t *testing.T) {
	env, a, b, h := setupInvitation(t)
	ctx := context.Background()

	inv, err := env.invitation.Send(ctx, a.ID, h.ID, b.Email)
	require.NoError(t, err)

	joined, err := env.invitation.Accept(ctx, b.ID, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, h.ID, joined.ID)

	_, err = env.invitation.Accept(ctx, b.ID, inv.Token)
	assert.ErrorIs(t, err, apperr.ErrExpired, "accepted is terminal")

	_, err = env.invitation.Accept(ctx, b.ID, "no-such-token")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	env.invitation.WaitForMail()
}

func TestInvitationAcceptExpiredMarksExpired(t *testing.T) {
	env, a, b, h := setupInvitation(t)
	ctx := context.Background()

	inv, err := env.invitation.Send(ctx, a.ID, h.ID, b.Email)
	require.NoError(t, err)

	env.clock.Advance(7*24*time.Hour + time.Second)
	_, err = env.invitation.Accept(ctx, b.ID, inv.Token)
	assert.ErrorIs(t, err, apperr.ErrExpired)

	stored, err := env.invitations.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationExpired, stored.Status)

	require.NoError(t, env.invitation.Decline(ctx, inv.Token), "declining an expired invitation is allowed")
	stored, _ = env.invitations.GetByID(ctx, inv.ID)
	assert.Equal(t, model.InvitationDeclined, stored.Status)

	assert.ErrorIs(t, env.invitation.Decline(ctx, inv.Token), apperr.ErrExpired)
	env.invitation.WaitForMail()
}

func TestInvitationAcceptWhileInHouseholdConflicts(t *testing.T) {
	env, a, b, h := setupInvitation(t)
	ctx := context.Background()

	_, err := env.household.Create(ctx, b.ID, "B's place", model.SplitEqual)
	require.NoError(t, err)
	inv, err := env.invitation.Send(ctx, a.ID, h.ID, b.Email)
	require.NoError(t, err)

	_, err = env.invitation.Accept(ctx, b.ID, inv.Token)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, _ := env.invitations.GetByID(ctx, inv.ID)
	assert.Equal(t, model.InvitationPending, stored.Status)
	env.invitation.WaitForMail()
}

func TestInvitationRevoke(t *testing.T) {
	env, a, b, h := setupInvitation(t)
	ctx := context.Background()

	inv, err := env.invitation.Send(ctx, a.ID, h.ID, "c@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, env.invitation.Revoke(ctx, b.ID, inv.ID), apperr.ErrForbidden)
	require.NoError(t, env.invitation.Revoke(ctx, a.ID, inv.ID))
	assert.ErrorIs(t, env.invitation.Revoke(ctx, a.ID, inv.ID), apperr.ErrNotFound)

	stored, err := env.invitations.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	env.invitation.WaitForMail()
}

func TestInvitationListings(t *testing.T) {
	env, a, b, h := setupInvitation(t)
	ctx := context.Background()

	_, err := env.invitation.Send(ctx, a.ID, h.ID, b.Email)
	require.NoError(t, err)

	forHousehold, err := env.invitation.ListForHousehold(ctx, a.ID, h.ID)
	require.NoError(t, err)
	require.Len(t, forHousehold, 1)

	mine, err := env.invitation.PendingForUser(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Home", mine[0].HouseholdName)
	assert.Equal(t, "a", mine[0].InviterName)

	_, err = env.invitation.ListForHousehold(ctx, b.ID, h.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	env.clock.Advance(8 * 24 * time.Hour)
	n, err := env.invitation.ExpireLapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mine, err = env.invitation.PendingForUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
	env.invitation.WaitForMail()
}
