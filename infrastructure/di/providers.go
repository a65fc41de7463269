package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clipstream-backend/application/ports"
	"clipstream-backend/application/services"
	"clipstream-backend/infrastructure/config"
	"clipstream-backend/infrastructure/messaging/eventbridge"
	"clipstream-backend/infrastructure/persistence/dynamodb"
	"clipstream-backend/infrastructure/persistence/repository"
	"clipstream-backend/infrastructure/realtime"
	"clipstream-backend/interfaces/http/rest"
	"clipstream-backend/interfaces/http/rest/handlers"
	"clipstream-backend/interfaces/websocket"
	"clipstream-backend/pkg/auth"
	"clipstream-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Router      chi.Router
	Hub         *websocket.Hub
	WSServer    *websocket.Server
	Metrics     *observability.Metrics
	EventBus    ports.EventBus
	Connections *realtime.ConnectionStore
	SocialGraph *services.SocialGraphService
	Engagement  *services.EngagementService
	Chat        *services.ChatService
}

// Shutdown flushes buffered telemetry and releases resources
func (c *Container) Shutdown(ctx context.Context) {
	if err := c.Metrics.Flush(ctx); err != nil {
		c.Logger.Warn("failed to flush metrics on shutdown", zap.Error(err))
	}
	_ = c.Logger.Sync()
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideAPIGatewayClient creates a management client for the WebSocket
// API Gateway. The endpoint override points it at the deployed stage.
func ProvideAPIGatewayClient(awsCfg aws.Config, cfg *config.Config) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		if cfg.WebSocketEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.WebSocketEndpoint)
		}
	})
}

// ProvideEntityStore creates the DynamoDB-backed document store
func ProvideEntityStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EntityStore {
	return dynamodb.NewEntityStore(client, cfg.DynamoDBTable, logger)
}

// ProvidePairLocker creates the distributed pair locker
func ProvidePairLocker(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.PairLocker {
	return dynamodb.NewPairLocker(client, cfg.DynamoDBTable, logger)
}

// ProvideUserRepository creates the user repository
func ProvideUserRepository(store ports.EntityStore) ports.UserRepository {
	return repository.NewUserRepository(store)
}

// ProvideVideoRepository creates the video repository
func ProvideVideoRepository(store ports.EntityStore) ports.VideoRepository {
	return repository.NewVideoRepository(store)
}

// ProvideMessageRepository creates the message repository
func ProvideMessageRepository(store ports.EntityStore) ports.MessageRepository {
	return repository.NewMessageRepository(store)
}

// ProvideEventBus creates the EventBridge-backed event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the metrics instance. When metrics are disabled the
// instance buffers and discards, so call sites never branch.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(cfg.MetricsNamespace, nil)
	}
	return observability.NewMetrics(cfg.MetricsNamespace, client)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("clipstream-backend")
}

// ProvideJWTValidator creates the token validator. Development falls back to
// a fixed secret so local clients can sign their own tokens.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		secret = "local-development-secret"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideHub creates the in-process connection hub
func ProvideHub(logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(logger)
}

// ProvideConnectionStore creates the durable connection registry
func ProvideConnectionStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *realtime.ConnectionStore {
	return realtime.NewConnectionStore(client, cfg.DynamoDBTable, logger)
}

// ProvideAPIGatewayPusher creates the API Gateway push adapter
func ProvideAPIGatewayPusher(client *apigatewaymanagementapi.Client, connections *realtime.ConnectionStore, logger *zap.Logger) *realtime.APIGatewayPusher {
	return realtime.NewAPIGatewayPusher(client, connections, logger)
}

// ProvidePusher selects the realtime push path. The long-lived server pushes
// through its own hub; the Lambda deployment posts through API Gateway.
func ProvidePusher(cfg *config.Config, hub *websocket.Hub, apigw *realtime.APIGatewayPusher) ports.Pusher {
	if cfg.IsLambda && cfg.WebSocketEndpoint != "" {
		return apigw
	}
	return hub
}

// ProvidePresence selects the presence source to match the push path
func ProvidePresence(cfg *config.Config, hub *websocket.Hub, apigw *realtime.APIGatewayPusher) ports.Presence {
	if cfg.IsLambda && cfg.WebSocketEndpoint != "" {
		return apigw
	}
	return hub
}

// ProvideSocialGraphService creates the social graph service
func ProvideSocialGraphService(
	users ports.UserRepository,
	locker ports.PairLocker,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *services.SocialGraphService {
	return services.NewSocialGraphService(users, locker, eventBus, logger)
}

// ProvideEngagementService creates the engagement service
func ProvideEngagementService(
	videos ports.VideoRepository,
	users ports.UserRepository,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.EngagementService {
	return services.NewEngagementService(videos, users, eventBus, metrics, logger)
}

// ProvideChatService creates the chat service
func ProvideChatService(
	messages ports.MessageRepository,
	users ports.UserRepository,
	presence ports.Presence,
	pusher ports.Pusher,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *services.ChatService {
	return services.NewChatService(messages, users, presence, pusher, eventBus, logger)
}

// ProvideWSServer creates the WebSocket upgrade server
func ProvideWSServer(hub *websocket.Hub, chat *services.ChatService, validator *auth.JWTValidator, logger *zap.Logger) *websocket.Server {
	return websocket.NewServer(hub, chat, validator, nil, logger)
}

// ProvideSocialHandler creates the social graph HTTP handler
func ProvideSocialHandler(social *services.SocialGraphService, logger *zap.Logger) *handlers.SocialHandler {
	return handlers.NewSocialHandler(social, logger)
}

// ProvideEngagementHandler creates the engagement HTTP handler
func ProvideEngagementHandler(engagement *services.EngagementService, logger *zap.Logger) *handlers.EngagementHandler {
	return handlers.NewEngagementHandler(engagement, logger)
}

// ProvideChatHandler creates the chat HTTP handler
func ProvideChatHandler(chat *services.ChatService, logger *zap.Logger) *handlers.ChatHandler {
	return handlers.NewChatHandler(chat, logger)
}

// ProvideRouter assembles the HTTP router. The Lambda deployment gets no /ws
// route; API Gateway terminates WebSocket connections there.
func ProvideRouter(
	cfg *config.Config,
	social *handlers.SocialHandler,
	engagement *handlers.EngagementHandler,
	chat *handlers.ChatHandler,
	validator *auth.JWTValidator,
	wsServer *websocket.Server,
	tracer *observability.Tracer,
	logger *zap.Logger,
) chi.Router {
	routerCfg := rest.RouterConfig{
		Social:       social,
		Engagement:   engagement,
		Chat:         chat,
		JWTValidator: validator,
		EnableCORS:   cfg.EnableCORS,
		Logger:       logger,
	}
	if !cfg.IsLambda {
		routerCfg.WSServer = wsServer
	}
	if cfg.EnableTracing {
		routerCfg.Tracer = tracer
	}
	return rest.NewRouter(routerCfg)
}
