package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
)

// APIGatewayPusher implements ports.Pusher and ports.Presence over the
// API Gateway Management API for the Lambda WebSocket deployment. Gone
// connections are pruned from the registry as they are discovered.
type APIGatewayPusher struct {
	client      *apigatewaymanagementapi.Client
	connections *ConnectionStore
	logger      *zap.Logger
}

// NewAPIGatewayPusher creates a pusher for the given management endpoint
func NewAPIGatewayPusher(client *apigatewaymanagementapi.Client, connections *ConnectionStore, logger *zap.Logger) *APIGatewayPusher {
	return &APIGatewayPusher{
		client:      client,
		connections: connections,
		logger:      logger,
	}
}

// pushEnvelope mirrors the frame shape of the in-process hub
type pushEnvelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Push posts the payload to every registered connection the user holds.
// An error is returned only when no connection accepted the frame.
func (p *APIGatewayPusher) Push(ctx context.Context, userID string, event ports.RealtimeEvent, payload interface{}) error {
	connectionIDs, err := p.connections.ListConnections(ctx, userID)
	if err != nil {
		return err
	}
	if len(connectionIDs) == 0 {
		return fmt.Errorf("no active connections for user %s", userID)
	}

	data, err := json.Marshal(pushEnvelope{
		Event:     string(event),
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	delivered := 0
	for _, connectionID := range connectionIDs {
		_, err := p.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(connectionID),
			Data:         data,
		})
		if err != nil {
			var gone *types.GoneException
			if errors.As(err, &gone) {
				// The client disconnected without a clean close; prune it.
				if delErr := p.connections.DeleteConnection(ctx, connectionID); delErr != nil {
					p.logger.Warn("failed to prune stale connection",
						zap.String("connection_id", connectionID),
						zap.Error(delErr),
					)
				}
				continue
			}
			p.logger.Warn("failed to post to connection",
				zap.String("connection_id", connectionID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("no connection accepted the frame for user %s", userID)
	}
	return nil
}

// IsOnline implements ports.Presence against the connection registry
func (p *APIGatewayPusher) IsOnline(userID string) bool {
	return p.ConnectionCount(userID) > 0
}

// ConnectionCount returns the number of registered connections for a user
func (p *APIGatewayPusher) ConnectionCount(userID string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ids, err := p.connections.ListConnections(ctx, userID)
	if err != nil {
		p.logger.Warn("failed to count connections",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0
	}
	return len(ids)
}
