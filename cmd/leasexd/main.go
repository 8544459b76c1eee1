package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"leasex/cmd/internal/passphrase"
	"leasex/config"
	"leasex/core"
	"leasex/core/events"
	"leasex/core/genesis"
	"leasex/crypto"
	"leasex/indexer"
	"leasex/observability"
	"leasex/observability/logging"
	telemetry "leasex/observability/otel"
	"leasex/rpc"
	"leasex/storage"
)

const (
	envName        = "LEASEX_ENV"
	sweepInterval  = time.Minute
	telemetryFlush = 5 * time.Second
	exportSubcmd   = "export-settlements"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envName))
	logger := logging.Setup("leasexd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.Arg(0) == exportSubcmd {
		if err := exportSettlements(ctx, cfg, logger); err != nil {
			logger.Error("Settlement export failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *genesisFlag, env, logger); err != nil {
		logger.Error("leasexd stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, genesisOverride, env string, logger *slog.Logger) error {
	instance, _ := os.Hostname()
	providers, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "leasexd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
		Node: telemetry.NodeInfo{
			InstanceID:    instance,
			Backend:       cfg.DBBackend,
			Resolver:      cfg.Economics.Resolver,
			MinimumVotes:  cfg.Economics.MinimumVotes,
			VotingPeriod:  time.Duration(cfg.Economics.VotingPeriodSecs) * time.Second,
			ProtectionFee: cfg.Economics.ProtectionFee,
			VoterReward:   cfg.Economics.VoterReward,
			VotePrice:     cfg.Economics.VotePrice,
		},
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlush)
		defer cancel()
		if err := providers.Shutdown(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	opMeter, err := telemetry.NewOperationMeter(providers.MeterProvider())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	db, err := storage.Open(cfg.DBBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	nodeCfg, err := cfg.NodeConfig()
	if err != nil {
		return err
	}
	resolverKey, err := loadResolverKey(cfg)
	if err != nil {
		return err
	}
	if resolverKey != nil {
		addr := [20]byte(resolverKey.PubKey().Address())
		if nodeCfg.Dispute.Resolver != ([20]byte{}) && nodeCfg.Dispute.Resolver != addr {
			return errors.New("resolver keystore does not match Economics.Resolver")
		}
		nodeCfg.Dispute.Resolver = addr
	}

	node, err := core.NewNode(db, nodeCfg, logger)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	genesisPath := strings.TrimSpace(genesisOverride)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath != "" {
		spec, err := genesis.Load(genesisPath)
		if err != nil {
			return err
		}
		if resolverKey != nil {
			if addr, ok := spec.ResolverAddress(); ok && addr != [20]byte(resolverKey.PubKey().Address()) {
				return errors.New("resolver keystore does not match the genesis resolver")
			}
		}
		if _, err := node.ApplyGenesis(spec); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	bus := events.NewBus(reg, logger)
	defer bus.Close()
	node.AddEventSink(bus)
	node.AddEventSink(metrics)
	node.SetObserver(core.MultiObserver{metrics, opMeter})

	g, gctx := errgroup.WithContext(ctx)

	opts := []rpc.Option{
		rpc.WithEventSource(bus),
		rpc.WithObserver(metrics),
		rpc.WithGatherer(reg),
		rpc.WithLogger(logger),
	}
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		store, err := indexer.Open(dsn)
		if err != nil {
			return err
		}
		defer store.Close()
		pipeline := indexer.NewPipeline(store, logger)
		node.AddEventSink(pipeline)
		opts = append(opts, rpc.WithEventLog(store))
		g.Go(func() error { return pipeline.Run(gctx) })
	}

	secret, err := cfg.RPC.JWTSecret()
	if err != nil {
		logger.Warn("JWT secret unavailable; mutating RPC methods are disabled", slog.Any("error", err))
	}
	server, err := rpc.NewServer(node, rpc.Config{
		JWTSecret:         secret,
		RequestsPerMinute: float64(cfg.RPC.RequestsPerMinute),
		Burst:             int(cfg.RPC.Burst),
		AllowedOrigins:    cfg.RPC.AllowedOrigins,
		TrustedProxies:    cfg.RPC.TrustedProxies,
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
	}, opts...)
	if err != nil {
		return err
	}
	g.Go(func() error { return server.Serve(gctx, cfg.RPCAddress) })

	if resolverKey != nil {
		resolver := [20]byte(resolverKey.PubKey().Address())
		g.Go(func() error { return sweepDueDisputes(gctx, node, resolver, logger) })
	}

	logger.Info("leasexd started",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("backend", cfg.DBBackend),
		slog.Bool("resolver", resolverKey != nil))
	return g.Wait()
}

func loadResolverKey(cfg *config.Config) (*crypto.PrivateKey, error) {
	path := strings.TrimSpace(cfg.ResolverKeystorePath)
	if path == "" {
		return nil, nil
	}
	pass, err := passphrase.NewSource(passphrase.ResolverEnv, "resolver keystore").Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load resolver keystore: %w", err)
	}
	return key, nil
}

// sweepDueDisputes resolves disputes that reached quorum or their deadline.
func sweepDueDisputes(ctx context.Context, node *core.Node, resolver [20]byte, logger *slog.Logger) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ids, err := node.ResolveDue(resolver)
			if err != nil {
				logger.Error("Dispute sweep failed", slog.Any("error", err))
				continue
			}
			if len(ids) > 0 {
				logger.Info("Resolved due disputes", slog.Any("ids", ids))
			}
		}
	}
}

func exportSettlements(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dsn := strings.TrimSpace(cfg.Indexer.DSN)
	if dsn == "" {
		return indexer.ErrDSNRequired
	}
	store, err := indexer.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	path, rows, err := store.ExportSettlements(ctx, cfg.Indexer.ExportDir)
	if err != nil {
		return err
	}
	logger.Info("Exported dispute settlements", slog.String("path", path), slog.Int("rows", rows))
	return nil
}
