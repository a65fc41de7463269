//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"clipstream-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideAPIGatewayClient,
	ProvideEntityStore,
	ProvidePairLocker,
	ProvideUserRepository,
	ProvideVideoRepository,
	ProvideMessageRepository,
	ProvideEventBus,
	ProvideMetrics,
	ProvideTracer,
	ProvideJWTValidator,
	ProvideHub,
	ProvideConnectionStore,
	ProvideAPIGatewayPusher,
	ProvidePusher,
	ProvidePresence,
	ProvideSocialGraphService,
	ProvideEngagementService,
	ProvideChatService,
	ProvideWSServer,
	ProvideSocialHandler,
	ProvideEngagementHandler,
	ProvideChatHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
