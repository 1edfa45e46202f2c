package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/observability/tracing"
	"github.com/nativestake/custody-ledger/internal/services"
)

// Server is the HTTP surface of the ledger. Every route maps one to one onto
// a service operation; the server itself holds no business rules.
type Server struct {
	cfg     *config.APIConfig
	service *services.Service
	httpSrv *http.Server
}

func New(cfg *config.APIConfig, service *services.Service) *Server {
	s := &Server{cfg: cfg, service: service}
	s.httpSrv = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router builds the route tree. Exposed separately so handler tests can mount
// it without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(traceMiddleware)

	r.Get("/healthcheck", s.handleHealthcheck)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/requests", func(r chi.Router) {
			r.Post("/stake", s.handleRequestStake)
			r.Get("/stake/{id}", s.handleGetStakeRequest)
			r.Post("/stake/{id}/fulfill", s.handleFulfillStake)
			r.Post("/unstake", s.handleRequestUnstake)
			r.Get("/unstake/{id}", s.handleGetUnstakeRequest)
			r.Post("/unstake/{id}/fulfill", s.handleFulfillUnstake)
			r.Post("/claim-rewards", s.handleRequestClaimRewards)
			r.Get("/claim-rewards/{id}", s.handleGetClaimRequest)
			r.Post("/claim-rewards/{id}/fulfill", s.handleFulfillClaimRewards)
		})

		r.Route("/staking", func(r chi.Router) {
			r.Post("/stake", s.handleStakeAPR)
			r.Post("/unstake", s.handleUnstakeAPR)
			r.Post("/unstake/claim", s.handleClaimUnstakeAPR)
			r.Post("/rewards/claim", s.handleClaimRewardsAPR)
			r.Get("/rewards", s.handleGetClaimableRewards)
		})

		r.Route("/vault", func(r chi.Router) {
			r.Get("/", s.handleGetVaultStats)
			r.Get("/shares/{holder}", s.handleGetShareBalance)
			r.Post("/seed", s.handleSeedVault)
			r.Post("/deposit", s.handleVaultDeposit)
			r.Post("/redeem", s.handleVaultRedeem)
			r.Post("/compound", s.handleCompoundVaultRewards)
			r.Post("/settle", s.handleSettleVaultRedemptions)
			r.Post("/transfer-shares", s.handleTransferShares)
		})

		r.Route("/oracle", func(r chi.Router) {
			r.Get("/price/{asset}", s.handleGetOraclePrice)
			r.Get("/apr", s.handleGetCurrentAPR)
			r.Get("/apy", s.handleGetCurrentAPY)
			r.Get("/unbonding-period", s.handleGetUnbondingPeriod)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/freeze", s.handleGetFreeze)
			r.Post("/freeze", s.handleSetFreeze)
			r.Post("/thaw", s.handleThaw)
			r.Post("/rewards", s.handleUpdateRewards)
			r.Post("/pause", s.handlePause)
			r.Post("/unpause", s.handleUnpause)
		})
	})

	return r
}

// Start blocks until the server stops. Shutdown errors other than a clean
// close are returned to the caller.
func (s *Server) Start(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("address", s.cfg.Address()).Msg("starting api server")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// traceMiddleware stamps every request context with a trace id so all log
// lines of one request correlate.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.InjectTraceID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
