package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/fintrack/internal/model"
)

const (
	defaultSubscriber = "mailto:noreply@fintrack.app"
	sendTimeout       = 15 * time.Second
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Subscriptions is the storage the service reads recipients from.
type Subscriptions interface {
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	ListByHousehold(ctx context.Context, householdID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type sendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// Service sends web push notifications. Notify calls return immediately;
// delivery runs in the background and failures are only logged.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	subs       Subscriptions
	logger     *slog.Logger
	send       sendFunc

	wg sync.WaitGroup
}

func NewService(publicKey, privateKey, subscriber string, subs Subscriptions, logger *slog.Logger) *Service {
	if subscriber == "" {
		subscriber = defaultSubscriber
	}
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		subs:       subs,
		logger:     logger,
		send:       webpush.SendNotificationWithContext,
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a subscription.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := s.send(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// NotifyUser notifies every device the user has subscribed.
func (s *Service) NotifyUser(ctx context.Context, userID int64, title, body, url string) {
	s.dispatch(ctx, Payload{Title: title, Body: body, URL: url}, func(ctx context.Context) ([]model.PushSubscription, error) {
		return s.subs.ListByUser(ctx, userID)
	}, 0)
}

// NotifyHousehold notifies every member of the household except exceptUserID.
func (s *Service) NotifyHousehold(ctx context.Context, householdID, exceptUserID int64, title, body, url string) {
	s.dispatch(ctx, Payload{Title: title, Body: body, URL: url}, func(ctx context.Context) ([]model.PushSubscription, error) {
		return s.subs.ListByHousehold(ctx, householdID)
	}, exceptUserID)
}

// Wait blocks until background deliveries have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) dispatch(ctx context.Context, payload Payload, recipients func(context.Context) ([]model.PushSubscription, error), exceptUserID int64) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		subs, err := recipients(ctx)
		if err != nil {
			s.logger.Error("list push subscriptions", "error", err)
			return
		}
		for _, sub := range subs {
			if sub.UserID == exceptUserID {
				continue
			}
			if err := s.Send(ctx, &sub, payload); err != nil {
				if errors.Is(err, ErrExpired) {
					if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
						s.logger.Error("delete expired push subscription", "error", err)
					}
					continue
				}
				s.logger.Error("send push", "user_id", sub.UserID, "error", err)
			}
		}
	}()
}

// GenerateVAPIDKeys returns a new P-256 key pair for VAPID, both keys
// base64url-encoded without padding.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
