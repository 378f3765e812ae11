package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/archive"
	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/handler"
	"github.com/dukerupert/fintrack/internal/middleware"
	"github.com/dukerupert/fintrack/internal/push"
	"github.com/dukerupert/fintrack/internal/service"
	"github.com/dukerupert/fintrack/internal/store"
	ws "github.com/dukerupert/fintrack/internal/websocket"
)

// Options carries the optional integrations. Nil fields disable the
// corresponding feature.
type Options struct {
	Mailer         service.Mailer
	Mirror         *archive.Mirror
	Push           *push.Service
	OriginPatterns []string
}

type Server struct {
	hub            *ws.Hub
	balanceH       *handler.BalanceHandler
	snapshotH      *handler.SnapshotHandler
	ledgerH        *handler.LedgerHandler
	householdH     *handler.HouseholdHandler
	invitationH    *handler.InvitationHandler
	pushH          *handler.PushHandler
	meH            *handler.MeHandler
	tokens         *auth.Tokens
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	invitations    *service.InvitationService
	snapshots      *service.SnapshotService
	rateLimiter    *middleware.RateLimiter
	pushService    *push.Service
	originPatterns []string
	logger         *slog.Logger
}

func New(db *sql.DB, tokens *auth.Tokens, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	incomeStore := store.NewIncomeStore(db)
	expenseStore := store.NewExpenseStore(db)
	pocketStore := store.NewPocketStore(db)
	tagStore := store.NewTagStore(db)
	householdStore := store.NewHouseholdStore(db)
	invitationStore := store.NewInvitationStore(db)
	snapshotStore := store.NewSnapshotStore(db)
	pushStore := store.NewPushStore(db)

	var notifier service.Notifier
	var pusher handler.Pusher
	if opts.Push != nil {
		notifier = opts.Push
		pusher = opts.Push
	}

	var snapshotOpts []service.SnapshotOption
	var archiveReader handler.ArchiveReader
	if opts.Mirror != nil {
		snapshotOpts = append(snapshotOpts, service.WithMirror(opts.Mirror))
		archiveReader = opts.Mirror
	}

	balances := service.NewBalanceService(incomeStore, expenseStore, pocketStore, householdStore, logger.With("component", "balance"))
	ledger := service.NewLedgerService(incomeStore, expenseStore, pocketStore, tagStore)
	households := service.NewHouseholdService(householdStore, expenseStore, ledger, logger.With("component", "household"),
		service.WithBroadcaster(hub), service.WithNotifier(notifier))
	invitations := service.NewInvitationService(invitationStore, householdStore, userStore, opts.Mailer, logger.With("component", "invitation"),
		service.WithInvitationEvents(hub, notifier))
	snapshots := service.NewSnapshotService(balances, snapshotStore, logger.With("component", "snapshot"), snapshotOpts...)
	stats := service.NewStatsService(expenseStore, tagStore, nil)

	return &Server{
		hub:            hub,
		balanceH:       handler.NewBalanceHandler(balances, stats, logger.With("component", "balance_handler")),
		snapshotH:      handler.NewSnapshotHandler(snapshots, archiveReader, logger.With("component", "snapshot_handler")),
		ledgerH:        handler.NewLedgerHandler(ledger, logger.With("component", "ledger_handler")),
		householdH:     handler.NewHouseholdHandler(households, logger.With("component", "household_handler")),
		invitationH:    handler.NewInvitationHandler(invitations, logger.With("component", "invitation_handler")),
		pushH:          handler.NewPushHandler(pushStore, pusher, logger.With("component", "push_handler")),
		meH:            handler.NewMeHandler(userStore, logger.With("component", "me_handler")),
		tokens:         tokens,
		userStore:      userStore,
		householdStore: householdStore,
		invitations:    invitations,
		snapshots:      snapshots,
		rateLimiter:    middleware.NewRateLimiter(),
		pushService:    opts.Push,
		originPatterns: opts.OriginPatterns,
		logger:         logger,
	}
}

// Invitations returns the invitation service for the expiry sweep.
func (s *Server) Invitations() *service.InvitationService {
	return s.invitations
}

// Snapshots returns the snapshot service for month-end archiving.
func (s *Server) Snapshots() *service.SnapshotService {
	return s.snapshots
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Drain waits for background email and push deliveries to finish.
func (s *Server) Drain() {
	s.invitations.WaitForMail()
	if s.pushService != nil {
		s.pushService.Wait()
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", handler.Health)
	outerMux.HandleFunc("GET /api/invitations/{token}", s.invitationH.ByToken)

	// Protected routes wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("GET /api/invitations/pending", authMiddleware(http.HandlerFunc(s.invitationH.Pending)))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) limited(h http.HandlerFunc, q middleware.Quota) http.Handler {
	return middleware.Limit(s.rateLimiter, middleware.UserKey, q)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/me", s.meH.Get)

	// Balance and stats
	mux.HandleFunc("GET /api/balance", s.balanceH.Monthly)
	mux.HandleFunc("GET /api/balance/projection", s.balanceH.Projection)
	mux.HandleFunc("GET /api/stats/tags", s.balanceH.ByTag)
	mux.HandleFunc("GET /api/stats/trend", s.balanceH.Trend)

	// Snapshots
	mux.HandleFunc("GET /api/snapshots", s.snapshotH.List)
	mux.HandleFunc("POST /api/snapshots/archive", s.snapshotH.ArchivePrevious)
	mux.HandleFunc("GET /api/snapshots/{year}/{month}", s.snapshotH.Get)
	mux.HandleFunc("PUT /api/snapshots/{year}/{month}", s.snapshotH.Save)
	mux.HandleFunc("GET /api/snapshots/{year}/{month}/archived", s.snapshotH.Archived)

	// Ledger
	mux.HandleFunc("GET /api/incomes", s.ledgerH.ListIncomes)
	mux.HandleFunc("POST /api/incomes", s.ledgerH.CreateIncome)
	mux.HandleFunc("PATCH /api/incomes/{id}", s.ledgerH.UpdateIncome)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.ledgerH.DeleteIncome)

	mux.HandleFunc("GET /api/expenses", s.ledgerH.ListExpenses)
	mux.HandleFunc("POST /api/expenses", s.ledgerH.CreateExpense)
	mux.HandleFunc("PATCH /api/expenses/{id}", s.ledgerH.UpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.ledgerH.DeleteExpense)

	mux.HandleFunc("GET /api/pockets", s.ledgerH.ListPockets)
	mux.HandleFunc("POST /api/pockets", s.ledgerH.CreatePocket)
	mux.HandleFunc("PATCH /api/pockets/{id}", s.ledgerH.UpdatePocket)
	mux.HandleFunc("DELETE /api/pockets/{id}", s.ledgerH.DeletePocket)

	mux.HandleFunc("GET /api/tags", s.ledgerH.ListTags)
	mux.HandleFunc("POST /api/tags", s.ledgerH.CreateTag)
	mux.HandleFunc("PATCH /api/tags/{id}", s.ledgerH.UpdateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", s.ledgerH.DeleteTag)

	// Households
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households/mine", s.householdH.Mine)
	mux.HandleFunc("PATCH /api/households/{id}", s.householdH.Update)
	mux.HandleFunc("POST /api/households/{id}/leave", s.householdH.Leave)
	mux.HandleFunc("GET /api/households/{id}/expenses", s.householdH.ListExpenses)
	mux.HandleFunc("POST /api/households/{id}/expenses", s.householdH.CreateExpense)
	mux.HandleFunc("PATCH /api/households/{id}/expenses/{expenseID}", s.householdH.UpdateExpense)
	mux.HandleFunc("DELETE /api/households/{id}/expenses/{expenseID}", s.householdH.DeleteExpense)

	// Invitations
	mux.HandleFunc("GET /api/households/{id}/invitations", s.invitationH.ListForHousehold)
	mux.Handle("POST /api/households/{id}/invitations", s.limited(s.invitationH.Send, middleware.InviteQuota))
	mux.HandleFunc("POST /api/invitations/{token}/accept", s.invitationH.Accept)
	mux.HandleFunc("POST /api/invitations/{token}/decline", s.invitationH.Decline)
	mux.HandleFunc("DELETE /api/invitations/{id}", s.invitationH.Revoke)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)
	mux.Handle("POST /api/push/test", s.limited(s.pushH.Test, middleware.PushTestQuota))

	// WebSocket
	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub, s.householdStore, s.originPatterns, s.logger.With("component", "websocket")))
}
