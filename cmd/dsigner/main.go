package main

import (
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/domecloud/dsigner/adapters/custodian"
	"github.com/domecloud/dsigner/adapters/events"
	"github.com/domecloud/dsigner/adapters/identity"
	"github.com/domecloud/dsigner/adapters/store"
	"github.com/domecloud/dsigner/ports"
	"github.com/domecloud/dsigner/service"
	"github.com/domecloud/dsigner/transport/http"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Identity provider: Supabase when configured, in-process otherwise
	var identityProvider ports.IdentityProvider
	if supabaseURL := os.Getenv("SUPABASE_URL"); supabaseURL != "" {
		identityProvider = identity.NewSupabaseProvider(supabaseURL, os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	} else {
		local, err := identity.NewLocalProvider()
		if err != nil {
			logger.Fatal("failed to create local identity provider", zap.Error(err))
		}
		logger.Warn("SUPABASE_URL not set, using in-process identity provider")
		identityProvider = local
	}

	// Custodial wallet provider: engine API when configured, in-process otherwise
	var custodianClient ports.Custodian
	if engineURL := os.Getenv("ENGINE_URL"); engineURL != "" {
		custodianClient = custodian.NewEngineCustodian(engineURL, os.Getenv("ENGINE_BEARER_TOKEN"))
	} else {
		logger.Warn("ENGINE_URL not set, using in-process custodian (keys are not durable)")
		custodianClient = custodian.NewLocalCustodian()
	}

	// Binding store and event publisher: redis-backed when REDIS_URL is set
	var bindings ports.BindingStore
	var eventPub ports.EventPublisher
	wmLogger := watermill.NewStdLogger(false, false)

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal("failed to parse Redis URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			logger.Fatal("failed to create Redis publisher", zap.Error(err))
		}

		bindings = store.NewRedisStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		logger.Warn("REDIS_URL not set, using in-memory binding store")
		bindings = store.NewMemoryStore()
		eventPub = events.NewWatermillPublisher(gochannel.NewGoChannel(gochannel.Config{}, wmLogger))
	}

	resolver := service.NewSessionResolver(identityProvider, bindings, logger)
	provisioner := service.NewWalletProvisioner(custodianClient, bindings, eventPub, logger)
	gateway := service.NewSigningGateway(resolver, custodianClient, logger)
	authService := service.NewAuthService(identityProvider, provisioner, logger)

	router := http.SetupRouter(authService, resolver, gateway)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	logger.Info("starting dsigner backend", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
