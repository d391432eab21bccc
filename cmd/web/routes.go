package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/padel-league/internal/config"
	"github.com/AdamBeresnev/padel-league/internal/httputil"
	"github.com/AdamBeresnev/padel-league/internal/metrics"
	"github.com/AdamBeresnev/padel-league/internal/middleware"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/scheduler"
	"github.com/AdamBeresnev/padel-league/internal/service"
	"github.com/AdamBeresnev/padel-league/views"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type serverParams struct {
	fx.In

	Swiss      *service.SwissService
	Ranks      *service.RankService
	Challenges *service.ChallengeService
	Holidays   *service.HolidayService
	Sweep      *service.SweepService
	Disputes   *service.DisputeService
	Users      *service.UserService
	Hub        *notify.Hub
	Registry   *prometheus.Registry
	Sessions   *scs.SessionManager
	Clock      scheduler.Clock
	Config     *config.Config
	Logger     zerolog.Logger
}

type server struct {
	swiss      *service.SwissService
	ranks      *service.RankService
	challenges *service.ChallengeService
	holidays   *service.HolidayService
	sweep      *service.SweepService
	disputes   *service.DisputeService
	users      *service.UserService
	hub        *notify.Hub
	registry   *prometheus.Registry
	sessions   *scs.SessionManager
	clock      scheduler.Clock
	cfg        *config.Config
	logger     zerolog.Logger
	scoreLimit *middleware.RateLimiter
}

func newServer(p serverParams) *server {
	return &server{
		swiss:      p.Swiss,
		ranks:      p.Ranks,
		challenges: p.Challenges,
		holidays:   p.Holidays,
		sweep:      p.Sweep,
		disputes:   p.Disputes,
		users:      p.Users,
		hub:        p.Hub,
		registry:   p.Registry,
		sessions:   p.Sessions,
		clock:      p.Clock,
		cfg:        p.Config,
		logger:     p.Logger,
		scoreLimit: middleware.NewRateLimiter(p.Config.ScoreRateLimit, p.Config.ScoreRateBurst, nil),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "HX-Request", "HX-Target", "HX-Current-URL"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", metrics.Handler(s.registry))
	r.Get("/ws", s.hub.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(s.sessions, s.users))

		// Public pages and read API
		r.Get("/", s.standingsPage)
		r.Get("/rounds/{number}", s.roundPage)
		r.Get("/ladder", s.ladderPage)
		r.Get("/api/standings", s.standingsJSON)
		r.Get("/api/rounds", s.roundsJSON)
		r.Get("/api/ladder/{division}", s.ladderJSON)
		r.Get("/api/ladder/entrants/{id}/history", s.historyJSON)
		r.Get("/api/challenges", s.challengesJSON)
		r.Get("/api/challenges/{code}", s.challengeByCode)

		// Team actions
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/challenges", s.createChallenge)
			r.Post("/challenges/{id}/accept", s.acceptChallenge)
			r.Post("/challenges/{id}/cancel", s.cancelChallenge)
			r.Post("/challenges/{id}/no-show", s.reportNoShow)
			r.Post("/challenges/{id}/no-show/dispute", s.disputeNoShow)
			r.Post("/ladder/entrants/{id}/holiday", s.startHoliday)
			r.Delete("/ladder/entrants/{id}/holiday", s.endHoliday)

			r.With(s.scoreLimit.Handler).Post("/challenges/{id}/score", s.submitLadderScore)
			r.With(s.scoreLimit.Handler).Post("/matches/{id}/score", s.submitMatchScore)
		})

		// Organisers
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin)

			r.Post("/teams", s.registerTeam)
			r.Post("/teams/{id}/active", s.setTeamActive)
			r.Post("/rounds", s.generateRound)
			r.Post("/rounds/{number}/confirm", s.confirmRound)
			r.Post("/rounds/{number}/discard", s.discardRound)
			r.Post("/matches/{id}/walkover", s.awardWalkover)
			r.Post("/matches/{id}/override", s.overrideMatchScore)

			r.Post("/ladder/entrants", s.registerLadderEntrant)
			r.Delete("/ladder/entrants/{id}", s.withdrawLadderEntrant)
			r.Post("/penalties", s.applyPenalty)
			r.Get("/disputes", s.disputesPage)
			r.Post("/disputes/{id}/resolve", s.resolveDispute)
			r.Post("/sweep", s.runSweep)
		})

		s.authRoutes(r)
	})

	return r
}

func (s *server) authRoutes(r chi.Router) {
	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		gothic.BeginAuthHandler(w, withProvider(r))
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		r = withProvider(r)

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, r, "Authentication failure", err)
			return
		}

		user, err := s.users.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, r, "Failed to find or create user", err)
			return
		}

		if err := middleware.Login(r.Context(), s.sessions, user.ID); err != nil {
			httputil.InternalServerError(w, r, "Failed to start session", err)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, r, views.LoginPage())
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Destroy(r.Context())
		if r.Header.Get("HX-Request") != "" {
			w.Header().Set("HX-Redirect", "/login")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

// withProvider hands the chi route param to gothic, which looks it up under "provider".
func withProvider(r *http.Request) *http.Request {
	//nolint:staticcheck
	return r.WithContext(context.WithValue(r.Context(), "provider", chi.URLParam(r, "provider")))
}

func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func formUUID(r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.FormValue(key))
	return id, err == nil
}

func intParam(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	return n, err == nil
}
