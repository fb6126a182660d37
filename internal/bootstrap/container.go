package bootstrap

import (
	"context"
	"time"

	"bottarot-be/internal/authstate"
	"bottarot-be/internal/chatlist"
	"bottarot-be/internal/clientsession"
	"bottarot-be/internal/config"
	"bottarot-be/internal/controller"
	"bottarot-be/internal/guard"
	"bottarot-be/internal/handler"
	"bottarot-be/internal/localstate"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/internal/repository/implementation"
	"bottarot-be/internal/repository/memory"
	"bottarot-be/internal/service"
	"bottarot-be/internal/websocket"
	"bottarot-be/pkg/events"
	pktNats "bottarot-be/pkg/nats"
	"bottarot-be/pkg/permission"
	"bottarot-be/pkg/supabase"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// local state outlives idle client sessions so a returning tab keeps its language
const localStateTTL = 30 * 24 * time.Hour

type Container struct {
	// Controllers
	AuthController       controller.IAuthController
	NavigationController controller.INavigationController
	ChatController       controller.IChatController
	ReadingController    controller.IReadingController
	ProfileController    controller.IProfileController
	LocalController      controller.ILocalController

	// WebSockets & cross-tab sync
	SyncHandler  *handler.SyncHandler
	WebSocketHub *websocket.Hub
	SyncService  *service.SyncService

	Sessions *clientsession.Registry
	Logger   logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	authBus *events.AuthBus
	rdb     *redis.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Repositories
	profileRepo := implementation.NewProfileRepository(db)
	chatListRepo := implementation.NewChatListRepository(db)
	credentials := memory.NewSessionRepository(cfg.Session.IdleTTL)

	// 2. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect NATS publisher, events disabled", map[string]interface{}{"error": err.Error()})
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect NATS subscriber, cross-tab sync disabled", map[string]interface{}{"error": err.Error()})
	}
	// a nil *Publisher inside the interface would not compare equal to nil
	var publisher service.EventPublisher
	if natsPub != nil {
		publisher = natsPub
	}

	rdb := connectRedis(cfg.App.RedisURL, sysLogger)
	var localBackend localstate.Backend
	if rdb != nil {
		localBackend = localstate.NewRedisBackend(rdb, localStateTTL)
	} else {
		localBackend = localstate.NewMemoryBackend(localStateTTL)
	}

	authBus := events.NewAuthBus(sysLogger)
	gotrue := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.JWTSecret, cfg.Supabase.SessionTimeout)
	permissions := permission.NewClient(cfg.PermissionAPI.BaseURL, cfg.PermissionAPI.RequestTimeout)
	warmer := permission.NewWarmer(permissions, sysLogger,
		cfg.PermissionAPI.WarmupTimeout,
		cfg.PermissionAPI.SleepThreshold,
		cfg.PermissionAPI.SlowThreshold,
	)

	// 3. Client sessions
	storeCfg := authstate.Config{
		SessionTimeout:    cfg.Supabase.SessionTimeout,
		PermissionTimeout: cfg.PermissionAPI.RequestTimeout,
	}
	registry := clientsession.NewRegistry(cfg.Session.IdleTTL, func(clientID string) (*clientsession.ClientSession, error) {
		sessionSvc := service.NewSessionService(clientID, gotrue, credentials, authBus, publisher, sysLogger)
		return &clientsession.ClientSession{
			ID:      clientID,
			Auth:    authstate.NewStore(sessionSvc, profileRepo, permissions, sysLogger, storeCfg),
			Chats:   chatlist.NewStore(chatListRepo, sysLogger),
			Local:   localstate.New(localBackend, clientID, sysLogger),
			Session: sessionSvc,
		}, nil
	}, sysLogger)

	// 4. Services
	analytics := service.NewAnalyticsService(publisher, sysLogger)
	localeService := service.NewLocaleService(profileRepo, analytics, sysLogger)
	profileService := service.NewProfileService(profileRepo, publisher, analytics, sysLogger)
	routeGuard := guard.New(cfg.Guard.InitTimeout, sysLogger)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)

	var syncService *service.SyncService
	if natsSub != nil {
		syncService = service.NewSyncService(natsSub, wsHub, registry, wsLogger)
	}

	// 5. Controllers
	return &Container{
		AuthController: controller.NewAuthController(registry, routeGuard, analytics, controller.AuthControllerConfig{
			ClientURL: cfg.App.ClientURL,
			BaseURL:   cfg.App.BaseURL,
			StateWait: cfg.Guard.InitTimeout,
		}),
		NavigationController: controller.NewNavigationController(registry, routeGuard, analytics),
		ChatController:       controller.NewChatController(),
		ReadingController:    controller.NewReadingController(warmer, analytics, cfg.Guard.InitTimeout),
		ProfileController:    controller.NewProfileController(profileService),
		LocalController:      controller.NewLocalController(localeService, analytics),

		SyncHandler:  handler.NewSyncHandler(wsHub, cfg.Guard.InitTimeout, wsLogger),
		WebSocketHub: wsHub,
		SyncService:  syncService,

		Sessions: registry,
		Logger:   sysLogger,

		natsPub: natsPub,
		natsSub: natsSub,
		authBus: authBus,
		rdb:     rdb,
	}
}

// Start launches the background workers. They stop when ctx is done.
func (c *Container) Start(ctx context.Context) {
	go c.WebSocketHub.Run(ctx)
	if c.SyncService != nil {
		if err := c.SyncService.Start(ctx); err != nil {
			c.Logger.Error("Bootstrap", "Auth sync worker failed to start", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	c.Sessions.Close()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.authBus.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Failed to close auth bus", map[string]interface{}{"error": err.Error()})
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
}

// connectRedis returns nil when Redis is unreachable; callers fall back to
// in-process alternatives.
func connectRedis(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis, using in-memory local state", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
