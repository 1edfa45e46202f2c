package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/nativestake/custody-ledger/internal/access"
	"github.com/nativestake/custody-ledger/internal/api"
	"github.com/nativestake/custody-ledger/internal/clients/custodyclient"
	"github.com/nativestake/custody-ledger/internal/clients/delegationclient"
	"github.com/nativestake/custody-ledger/internal/clients/oracleclient"
	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/db"
	dbmodel "github.com/nativestake/custody-ledger/internal/db/model"
	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/observability/metrics"
	"github.com/nativestake/custody-ledger/internal/observability/tracing"
	"github.com/nativestake/custody-ledger/internal/oracle"
	"github.com/nativestake/custody-ledger/internal/queue"
	"github.com/nativestake/custody-ledger/internal/services"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the custody ledger server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up ledger db model")
	}

	// create new db client
	var dbClient db.DbInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient = db.NewDbWithMetrics(dbClient)

	var delegationClient delegationclient.DelegationInterface = delegationclient.NewClient(&cfg.Delegation)
	delegationClient = delegationclient.NewDelegationClientWithMetrics(delegationClient)

	var custodyClient custodyclient.CustodyInterface = custodyclient.NewClient(&cfg.Custody)
	custodyClient = custodyclient.NewCustodyClientWithMetrics(custodyClient)

	adapterOpts := []oracle.AdapterOption{}
	if fallback := oracleclient.NewFallbackClient(&cfg.Oracle); fallback != nil {
		adapterOpts = append(adapterOpts, oracle.WithFallback(fallback))
	}
	oracleAdapter := oracle.NewAdapter(
		oracleclient.NewPrimaryClient(&cfg.Oracle),
		cfg.Oracle.MaxStaleness,
		adapterOpts...,
	)
	rewards := oracleAdapter.Rewards()

	core, err := ledger.New(
		ledger.Params{
			CustodyAccount:      cfg.Ledger.CustodyAccount,
			NativeAsset:         cfg.Ledger.NativeAsset,
			ReportAsset:         cfg.Ledger.ReportAsset,
			EnforceMinimums:     cfg.Staking.EnforceMinimums,
			MinStake:            cfg.Staking.MinStakeAmount(),
			MinRewardClaim:      cfg.Staking.MinRewardClaimAmount(),
			MaxLiquidityPercent: cfg.Vault.MaxLiquidityPercent,
		},
		delegationClient, custodyClient, oracleAdapter, rewards,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating settlement core")
	}

	// Both tables were validated with the config.
	principalRoles, _ := cfg.Access.PrincipalRoles() //nolint:errcheck
	capabilities, _ := cfg.Access.CapabilityTable()  //nolint:errcheck
	gate := access.NewGate(principalRoles, capabilities)

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating queue client")
	}

	service := services.NewService(cfg, dbClient, core, rewards, oracleAdapter, gate, queueClient)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	if err := service.RestoreFromJournal(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while restoring ledger state from journal")
	}

	service.StartOracleRefreshPoller(ctx)
	service.StartVaultStatsPoller(ctx)

	apiServer := api.New(&cfg.API, service)

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := apiServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		if err := apiServer.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error while shutting down api server")
		}
		if err := queueClient.Shutdown(); err != nil {
			log.Error().Err(err).Msg("error while shutting down queue client")
		}
	})
	wg.Wait()

	return nil
}
