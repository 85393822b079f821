package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/securizon/internal/analytics"
	"github.com/securizon/internal/api"
	"github.com/securizon/internal/billing"
	"github.com/securizon/internal/cache"
	"github.com/securizon/internal/config"
	"github.com/securizon/internal/crypto"
	"github.com/securizon/internal/customer"
	"github.com/securizon/internal/events"
	"github.com/securizon/internal/feature"
	"github.com/securizon/internal/health"
	"github.com/securizon/internal/ingestion"
	"github.com/securizon/internal/knowledgebase"
	"github.com/securizon/internal/llm"
	"github.com/securizon/internal/middleware"
	"github.com/securizon/internal/nlquery"
	"github.com/securizon/internal/provider"
	"github.com/securizon/internal/ratelimit"
	"github.com/securizon/internal/tenant"
	"github.com/securizon/internal/ticket"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		configFile   = flag.String("config", "config/config.yaml", "Configuration file path")
		showVer      = flag.Bool("version", false, "Show version information")
		showHelpFlag = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *showHelpFlag {
		showHelp()
		return
	}
	if *showVer {
		showVersion()
		return
	}

	log.Printf("Starting securizon-support-gateway v%s (commit: %s, built: %s)", version, commit, date)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, bus, cacheMgr, tenants, err := build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize gateway: %v", err)
	}
	defer bus.Close()
	defer cacheMgr.Disconnect()

	if stripeKey := os.Getenv("STRIPE_API_KEY"); stripeKey != "" {
		billingSvc := billing.NewService(stripeKey, tenants)
		go runBillingRefresh(ctx, billingSvc, tenants)
	}

	go func() {
		if err := gateway.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	waitForShutdown(cancel, gateway)
}

// runBillingRefresh periodically reconciles each active tenant's cached
// subscription status against Stripe. Only tenants with a stripe
// subscription id recorded in Settings are refreshed; most local/dev
// tenants have none and are skipped.
func runBillingRefresh(ctx context.Context, svc *billing.Service, tenants tenant.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, env := range []tenant.Environment{tenant.EnvProduction, tenant.EnvStaging, tenant.EnvDevelopment} {
				active, err := tenants.ListActive(ctx, env)
				if err != nil {
					log.Printf("billing: failed to list active tenants for %s: %v", env, err)
					continue
				}
				for _, t := range active {
					subID, _ := t.Settings["stripe_subscription_id"].(string)
					if subID == "" {
						continue
					}
					if err := svc.RefreshTenantSubscription(ctx, t, subID); err != nil {
						log.Printf("billing: failed to refresh subscription for tenant %s: %v", t.ID, err)
					}
				}
			}
		}
	}
}

// build wires every component from C1-C13 into a single runnable
// gateway. The tenant registry, analytics warehouse, and external
// identity service are all out of scope (spec §1); MemStore/MemProfileStore/
// MemIdentityLookup stand in so the rest of the system has something
// concrete to run against locally.
func build(ctx context.Context, cfg *config.Config) (*api.Gateway, events.EventBus, *cache.Manager, *tenant.MemStore, error) {
	tenants := tenant.NewMemStore()
	seedDevTenant(tenants)

	cacheMgr := cache.NewManager(cfg.Cache.RedisURL, time.Duration(cfg.Cache.TTL)*time.Second)
	if err := cacheMgr.Connect(ctx); err != nil {
		log.Printf("cache: redis unreachable at startup, degrading to local-only: %v", err)
	}

	encKey, err := crypto.DecodeKey(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encryption key: %w", err)
	}
	sealer, err := crypto.NewSealer(encKey)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("sealer: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour)
	stop := make(chan struct{})
	limiter.RunSweeper(10*time.Minute, stop)

	tenantRouter := &middleware.Router{Tenants: tenants, Limiter: limiter, Sealer: sealer}

	profileStore := analytics.NewMemProfileStore()
	analyticsSvc := analytics.New(profileStore, cacheMgr)

	identity := customer.NewMemIdentityLookup()

	flagBackend := feature.NewStaticBackend(feature.DefaultFeatureFlags)
	flags := feature.NewFeatureFlagManager(flagBackend)

	var adapter llm.Adapter
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		adapter = llm.NewOpenAIAdapter(key)
	}

	kb := knowledgebase.NewService(nil, nil, knowledgebase.KBConfig{
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:      "text-embedding-ada-002",
		SimilarityThreshold: 0.7,
		MaxResults:          5,
	})

	ticketStore := ticket.NewMemStore()
	tickets := ticket.NewService(ticketStore, analyticsSvc, kb, adapter)

	var bus events.EventBus = events.NoopEventBus{}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaBus, err := events.NewKafkaEventBus(events.DefaultKafkaConfig())
		if err != nil {
			log.Printf("events: failed to initialize kafka bus, falling back to noop: %v", err)
		} else {
			bus = kafkaBus
		}
	}

	providers := func(t *tenant.Tenant) provider.WriteBack {
		return provider.New(t.CRMProvider, "", "")
	}

	pipeline := ingestion.NewPipeline(tickets, analyticsSvc, identity, providers, bus)

	nlRouter := nlquery.NewRouter(adapter, flags, analyticsSvc)

	healthChecker := health.NewHealthChecker()
	healthChecker.Register(&health.CacheHealthCheck{Manager: cacheMgr})
	healthChecker.Register(&health.TenantStoreHealthCheck{Store: tenants})

	gwConfig := api.DefaultGatewayConfig()
	gwConfig.Port = cfg.API.Port
	gwConfig.AllowedOrigins = cfg.API.AllowedOrigins
	gwConfig.Environment = cfg.API.Environment
	gwConfig.AdminKey = cfg.Security.AdminKey

	gateway := api.NewGateway(gwConfig, tenants, tenantRouter, tickets, pipeline, nlRouter, healthChecker)
	return gateway, bus, cacheMgr, tenants, nil
}

// seedDevTenant registers a single active tenant so a cold local start
// has something to authenticate against via X-API-Key; production
// deployments replace MemStore with the (out-of-scope) relational store.
func seedDevTenant(store *tenant.MemStore) {
	store.Put(&tenant.Tenant{
		ID:          "dev-tenant",
		Slug:        "dev",
		Name:        "Development Tenant",
		CRMProvider: tenant.ProviderGorgias,
		IsActive:    true,
		Environment: tenant.EnvDevelopment,
		Subscription: tenant.SubscriptionInfo{
			Plan:   "internal",
			Status: "active",
		},
		WebhookIdentifiers: map[string]string{},
		Features:           map[string]bool{},
		Settings:           map[string]interface{}{},
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	})
}

func waitForShutdown(cancel context.CancelFunc, gateway *api.Gateway) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := gateway.Stop(shutdownCtx); err != nil {
		log.Printf("Error during gateway shutdown: %v", err)
	}

	cancel()
	log.Println("securizon-support-gateway stopped")
}

func showHelp() {
	fmt.Printf(`securizon-support-gateway - Multi-tenant AI support ticket triage gateway

Usage:
  gateway [flags]

Flags:
  -config string
        Configuration file path (default "config/config.yaml")
  -version
        Show version information
  -help
        Show this help message

Examples:
  gateway                                  # Start with default config
  gateway -config config/production.yaml   # Start with production config
  gateway -version                         # Show version
`)
}

func showVersion() {
	fmt.Printf("securizon-support-gateway version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", date)
}
