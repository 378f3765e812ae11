package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fintrack/internal/apperr"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/store"
)

const (
	InvitationTTL   = 7 * 24 * time.Hour
	mailSendTimeout = 30 * time.Second
)

// InvitationService runs the invitation lifecycle:
// pending -> accepted | declined | expired.
type InvitationService struct {
	invitations InvitationRepo
	households  HouseholdRepo
	users       UserRepo
	mailer      Mailer
	events      Broadcaster
	notifier    Notifier
	newToken    func() string
	now         func() time.Time
	logger      *slog.Logger

	mailWG sync.WaitGroup
}

type InvitationOption func(*InvitationService)

func WithInvitationClock(now func() time.Time) InvitationOption {
	return func(s *InvitationService) { s.now = now }
}

func WithTokenSource(f func() string) InvitationOption {
	return func(s *InvitationService) { s.newToken = f }
}

func WithInvitationEvents(b Broadcaster, n Notifier) InvitationOption {
	return func(s *InvitationService) {
		if b != nil {
			s.events = b
		}
		if n != nil {
			s.notifier = n
		}
	}
}

func NewInvitationService(invitations InvitationRepo, households HouseholdRepo, users UserRepo, mailer Mailer, logger *slog.Logger, opts ...InvitationOption) *InvitationService {
	s := &InvitationService{
		invitations: invitations,
		households:  households,
		users:       users,
		mailer:      mailer,
		events:      nopBroadcaster{},
		notifier:    nopNotifier{},
		newToken:    uuid.NewString,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send invites email to the household. The invitation is stored before the
// email goes out; delivery runs in the background and its failure is only
// logged.
func (s *InvitationService) Send(ctx context.Context, userID, householdID int64, email string) (*model.Invitation, error) {
	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	h, err := s.requireMember(ctx, userID, householdID)
	if err != nil {
		return nil, err
	}

	member, err := s.households.IsMemberEmail(ctx, householdID, addr)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperr.Conflict("%s is already a member of this household", addr)
	}

	now := s.now()
	inv, err := s.invitations.CreatePending(ctx, model.Invitation{
		HouseholdID: householdID,
		Email:       addr,
		Token:       s.newToken(),
		InvitedBy:   userID,
		ExpiresAt:   now.Add(InvitationTTL),
	}, now)
	if errors.Is(err, store.ErrDuplicatePending) {
		return nil, apperr.Conflict("an invitation is already pending for %s", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.logger.Info("invitation sent", "invitation_id", inv.ID, "household_id", householdID, "invited_by", userID)
	s.dispatchEmail(ctx, *inv, h.Name)

	if invitee, err := s.users.GetByEmail(ctx, addr); err == nil && invitee != nil {
		s.notifier.NotifyUser(ctx, invitee.ID, "Household invitation",
			fmt.Sprintf("You've been invited to join %s", h.Name), "/invite/"+inv.Token)
	}
	s.events.BroadcastHousehold(householdID, "invitation", "created", inv.ID)
	return inv, nil
}

func (s *InvitationService) dispatchEmail(ctx context.Context, inv model.Invitation, householdName string) {
	if s.mailer == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()
		ctx, cancel := context.WithTimeout(ctx, mailSendTimeout)
		defer cancel()
		if err := s.mailer.SendInvitation(ctx, inv.Email, inv.InviterName, householdName, inv.Token); err != nil {
			s.logger.Error("send invitation email", "invitation_id", inv.ID, "error", err)
		}
	}()
}

// WaitForMail blocks until background invitation emails have finished.
func (s *InvitationService) WaitForMail() {
	s.mailWG.Wait()
}

// ByToken returns the invitation behind a link, applying the same expiry
// rules as Accept.
func (s *InvitationService) ByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return s.usable(ctx, token)
}

// Accept joins the caller to the invitation's household.
func (s *InvitationService) Accept(ctx context.Context, userID int64, token string) (*model.Household, error) {
	inv, err := s.usable(ctx, token)
	if err != nil {
		return nil, err
	}

	err = s.invitations.Accept(ctx, inv.ID, userID)
	switch {
	case errors.Is(err, store.ErrAlreadyInHousehold):
		return nil, apperr.Conflict("you already belong to a household")
	case errors.Is(err, store.ErrHouseholdNotFound):
		return nil, apperr.NotFound("household no longer exists")
	case errors.Is(err, store.ErrNotPending):
		return nil, apperr.Expired("invitation has already been used")
	case err != nil:
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	h, err := s.households.GetByID(ctx, inv.HouseholdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("household no longer exists")
	}

	s.logger.Info("invitation accepted", "invitation_id", inv.ID, "household_id", h.ID, "user_id", userID)
	s.events.BroadcastHousehold(h.ID, "member", "joined", userID)
	s.notifier.NotifyHousehold(ctx, h.ID, userID, "Household update",
		fmt.Sprintf("%s joined %s", inv.Email, h.Name), "/household")
	return h, nil
}

// Decline rejects the invitation. Declining a lapsed invitation is allowed.
func (s *InvitationService) Decline(ctx context.Context, token string) error {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv == nil {
		return apperr.NotFound("invitation not found")
	}
	if inv.Status.Terminal() {
		return apperr.Expired("invitation has already been used")
	}
	if err := s.invitations.Decline(ctx, inv.ID); err != nil {
		if errors.Is(err, store.ErrNotPending) {
			return apperr.Expired("invitation has already been used")
		}
		return err
	}
	s.events.BroadcastHousehold(inv.HouseholdID, "invitation", "declined", inv.ID)
	return nil
}

// Revoke deletes an invitation. Only members of its household may do so.
func (s *InvitationService) Revoke(ctx context.Context, userID, invitationID int64) error {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv == nil {
		return apperr.NotFound("invitation not found")
	}
	if _, err := s.requireMember(ctx, userID, inv.HouseholdID); err != nil {
		return err
	}
	if err := s.invitations.Delete(ctx, invitationID); err != nil {
		return err
	}
	s.events.BroadcastHousehold(inv.HouseholdID, "invitation", "deleted", invitationID)
	return nil
}

// ListForHousehold returns live invitations of the caller's household.
func (s *InvitationService) ListForHousehold(ctx context.Context, userID, householdID int64) ([]model.Invitation, error) {
	if _, err := s.requireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListPendingForHousehold(ctx, householdID, s.now())
	if err != nil {
		return nil, err
	}
	if invs == nil {
		invs = []model.Invitation{}
	}
	return invs, nil
}

// PendingForUser returns live invitations addressed to the caller's email.
func (s *InvitationService) PendingForUser(ctx context.Context, userID int64) ([]model.Invitation, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	invs, err := s.invitations.ListPendingForEmail(ctx, strings.ToLower(u.Email), s.now())
	if err != nil {
		return nil, err
	}
	if invs == nil {
		invs = []model.Invitation{}
	}
	return invs, nil
}

// ExpireLapsed marks every pending invitation past its expiry as expired.
func (s *InvitationService) ExpireLapsed(ctx context.Context) (int64, error) {
	return s.invitations.ExpireLapsed(ctx, s.now())
}

// usable loads the invitation for token and checks that it can still be
// accepted. A pending invitation found past its expiry is marked expired.
func (s *InvitationService) usable(ctx context.Context, token string) (*model.Invitation, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("invitation not found")
	}
	switch {
	case inv.Status.Terminal():
		return nil, apperr.Expired("invitation has already been used")
	case inv.Status == model.InvitationExpired:
		return nil, apperr.Expired("invitation has expired")
	case s.now().After(inv.ExpiresAt):
		if err := s.invitations.MarkExpired(ctx, inv.ID); err != nil {
			return nil, err
		}
		return nil, apperr.Expired("invitation has expired")
	}
	return inv, nil
}

func (s *InvitationService) requireMember(ctx context.Context, userID, householdID int64) (*model.Household, error) {
	return requireMember(ctx, s.households, userID, householdID)
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", apperr.Validation("invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}
