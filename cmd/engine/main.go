package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/alert"
	"github.com/rawblock/snipe-engine/internal/api"
	"github.com/rawblock/snipe-engine/internal/cache"
	"github.com/rawblock/snipe-engine/internal/config"
	"github.com/rawblock/snipe-engine/internal/exit"
	"github.com/rawblock/snipe-engine/internal/fee"
	"github.com/rawblock/snipe-engine/internal/filter"
	"github.com/rawblock/snipe-engine/internal/guard"
	"github.com/rawblock/snipe-engine/internal/honeypot"
	"github.com/rawblock/snipe-engine/internal/ingest"
	"github.com/rawblock/snipe-engine/internal/orchestrator"
	"github.com/rawblock/snipe-engine/internal/order"
	"github.com/rawblock/snipe-engine/internal/poolmeta"
	"github.com/rawblock/snipe-engine/internal/position"
	"github.com/rawblock/snipe-engine/internal/privacy"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/rug"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/internal/walletvault"
	"github.com/rawblock/snipe-engine/pkg/models"
)

func main() {
	log.Println("Starting snipe-engine...")

	config.LoadDotEnv()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Durable store ────────────────────────────────────────────────
	// Unlike an analytics sidecar, the Order/Position store is this
	// engine's system of record: a failed connection is fatal.
	pg, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: connect to PostgreSQL: %v", err)
	}
	defer pg.Close()
	if err := pg.InitSchema(ctx); err != nil {
		log.Printf("Warning: schema init failed: %v", err)
	}
	orders := store.PostgresOrders{DB: pg}
	positions := store.PostgresPositions{DB: pg}

	// ─── RPC Fabric ───────────────────────────────────────────────────
	rpcEndpoint := getEnvOrDefault("RPC_ENDPOINT", "http://localhost:8899")
	backend := rpc.NewJSONRPCBackend(rpcEndpoint)
	rpcClient := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))

	cacheStore := cache.NewInProcess()

	// ─── Telemetry hub + webhook alerting ──────────────────────────────
	// Constructed early so downstream components can be wired optionally.
	wsHub := api.NewHub()
	go wsHub.Run()

	alertManager := alert.NewManager(func(a alert.Alert) {
		payload, err := json.Marshal(struct {
			Type  string      `json:"type"`
			Alert alert.Alert `json:"alert"`
		}{Type: "alert", Alert: a})
		if err != nil {
			log.Printf("[Alert] marshal telemetry event failed: %v", err)
			return
		}
		wsHub.Broadcast(payload)
	})
	if cfg.WebhookURL != "" {
		alertManager.RegisterWebhook("default", cfg.WebhookURL, alert.Severity(cfg.WebhookMinSeverity), nil)
	}

	// ─── Honeypot Evaluator ───────────────────────────────────────────
	decoder := honeypot.NewSPLMintDecoder()
	sim := honeypot.NewHTTPSellSimulator(getEnvOrDefault("SELL_SIM_BASE_URL", ""))
	onchainProvider := honeypot.NewOnChainProvider(rpcClient, decoder, sim)
	hpCfg := honeypot.DefaultConfig()
	hpCfg.CacheTTL = cfg.HoneypotCacheTTL
	hpEvaluator := honeypot.NewEvaluator([]honeypot.Provider{onchainProvider}, rpc.NewRegistry(rpc.DefaultBreakerConfig()), cacheStore, hpCfg)

	// ─── Filter Validator ─────────────────────────────────────────────
	locks := filter.NewHTTPLockRegistry(getEnvOrDefault("LOCK_REGISTRY_BASE_URL", ""))
	checker := filter.NewChecker(locks)
	presets := filter.NewPresetRegistry(filter.DefaultPresets(), models.PresetBalanced)

	pools := poolmeta.NewCache()
	filterData := order.NewChainFilterData(rpcClient, decoder, sim, pools, presets)

	// ─── Fee Optimizer ────────────────────────────────────────────────
	feeOptimizer := fee.NewOptimizer(rpcClient)

	// ─── Aggregator & wallet vault ────────────────────────────────────
	agg := aggregator.NewHTTPAggregator(getEnvOrDefault("AGGREGATOR_BASE_URL", ""))
	vault := walletvault.New(getEnvOrDefault("WALLET_VAULT_DIR", "./wallets"))

	// ─── Order Engine ─────────────────────────────────────────────────
	orderEngine := order.NewEngine(orders, positions, hpEvaluator, checker, filterData, feeOptimizer, agg, rpcClient)
	orderEngine.Telemetry = wsHub

	// ─── Exposure Guard ───────────────────────────────────────────────
	exposureGuard := guard.New(cfg.MaxConcurrentSnipesPerUser, cfg.PostExitCooldown)

	// ─── Exit Executor + monitors ─────────────────────────────────────
	exitExecutor := exit.NewExecutor(positions, agg, feeOptimizer, rpcClient)
	exitExecutor.Guard = exposureGuard
	exitExecutor.Telemetry = wsHub

	posCfg := position.DefaultConfig()
	posCfg.Interval = cfg.PositionMonitorInterval
	posCfg.ExitSlippageBps = cfg.ExitSlippageBps
	posCfg.ExitPriorityFee = cfg.ExitPriorityFeeMode
	priceFeed := position.NewHTTPPriceFeed(getEnvOrDefault("PRICE_FEED_BASE_URL", ""))
	monitorResolver := walletvault.NewMonitorResolver(vault)
	posMonitor := position.NewMonitor(positions, priceFeed, cacheStore, exitExecutor, monitorResolver, posCfg)
	go posMonitor.Run(ctx)

	rugCfg := rug.DefaultConfig()
	rugCfg.Interval = cfg.RugMonitorInterval
	rugCfg.LiqDropPct = cfg.RugLiqDropPct
	rugCfg.SupplyUpPct = cfg.RugSupplyUpPct
	rugCfg.HolderDumpPct = cfg.RugHolderDumpPct
	rugCfg.TopHoldersN = cfg.RugTopHoldersN
	rugCfg.EmergencyExitSlippagePct = cfg.EmergencyExitSlippagePct
	rugCfg.EmergencyExitRetries = cfg.EmergencyExitRetries
	authorityReader := rug.NewChainAuthorityReader(rpcClient, decoder)
	liquidityReader := rug.NewChainLiquidityReader(rpcClient, pools)
	rugMonitor := rug.NewMonitor(positions, rpcClient, authorityReader, liquidityReader, exitExecutor, monitorResolver, rugCfg)
	rugMonitor.Telemetry = wsHub
	rugMonitor.Alerts = alertManager
	go rugMonitor.Run(ctx)

	// ─── Privacy Layer ────────────────────────────────────────────────
	wallets := privacy.NewStaticWalletPool(cfg.MaxWalletsPerUser)
	planner := privacy.NewPlanner(wallets, feeOptimizer)

	defaultCfg := models.OrderConfig{
		SlippageBps:     cfg.ExitSlippageBps,
		MaxRetries:      3,
		TimeoutMs:       30_000,
		PriorityFeeMode: cfg.ExitPriorityFeeMode,
	}
	orch := orchestrator.New(vault, wallets, planner, orderEngine, orders, positions, posMonitor, rugMonitor, defaultCfg)
	orch.Guard = exposureGuard

	// ─── Pool Ingest ──────────────────────────────────────────────────
	startIngest(ctx, cfg, rpcEndpoint, pools, wsHub)

	// ─── HTTP server ──────────────────────────────────────────────────
	r := api.SetupRouter(orch, wsHub, cfg.AllowedOrigins, cfg.APIAuthToken)
	log.Printf("Engine running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// startIngest wires the configured Pool Ingest driver, forwarding decoded
// events into the pool metadata cache and broadcasting them on the
// websocket hub for connected dashboards.
func startIngest(ctx context.Context, cfg config.Config, rpcEndpoint string, pools *poolmeta.Cache, hub *api.Hub) {
	programs := ingest.DefaultProgramIDs()
	dedup := ingest.NewDeduper()

	onEvent := func(ev models.PoolCreated) {
		pools.Observe(ev, time.Now())
		hub.Broadcast([]byte(`{"type":"pool_created","pool_address":"` + ev.PoolAddress + `"}`))
	}
	onLifecycle := func(le ingest.LifecycleEvent) {
		if le.Err != nil {
			log.Printf("[Ingest] %s: %v", le.Kind, le.Err)
			return
		}
		log.Printf("[Ingest] %s", le.Kind)
	}

	var driver ingest.Driver
	switch cfg.PoolSource {
	case ingest.SourceLog:
		driver = ingest.NewLogDriver(ingest.NewWSLogSubscriber(rpcEndpoint), ingest.NewHTTPTransactionFetcher(rpcEndpoint), programs, dedup)
	default:
		if cfg.PushEndpoint == "" {
			log.Println("Warning: PUSH_ENDPOINT not set, pool ingest disabled")
			return
		}
		driver = ingest.NewPushDriver(ingest.NewWSPushTransport(), cfg.PushEndpoint, cfg.PushToken, programs, dedup)
	}

	if err := driver.Start(ctx, onEvent, onLifecycle); err != nil {
		log.Printf("Warning: pool ingest failed to start: %v", err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	return config.GetEnvOrDefault(key, fallback)
}
