package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// connectionTTL expires registry entries for connections that never
// disconnected cleanly.
const connectionTTL = 2 * time.Hour

// ConnectionStore is the durable WebSocket connection registry used by the
// API Gateway deployment. Connections are indexed both by user (for fan-out)
// and by connection id (for disconnect cleanup).
type ConnectionStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewConnectionStore creates a DynamoDB-backed connection registry
func NewConnectionStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func userPK(userID string) string       { return "WSCONN#" + userID }
func connPK(connectionID string) string { return "WSCONNID#" + connectionID }

// SaveConnection registers a new connection for a user
func (s *ConnectionStore) SaveConnection(ctx context.Context, userID, connectionID string) error {
	ttl := fmt.Sprintf("%d", time.Now().Add(connectionTTL).Unix())

	// Forward entry: user -> connection, for fan-out.
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK":           &types.AttributeValueMemberS{Value: connectionID},
			"UserID":       &types.AttributeValueMemberS{Value: userID},
			"ConnectionID": &types.AttributeValueMemberS{Value: connectionID},
			"TTL":          &types.AttributeValueMemberN{Value: ttl},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	// Reverse entry: connection -> user, for disconnect cleanup.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: connPK(connectionID)},
			"SK":           &types.AttributeValueMemberS{Value: "CONNECTION"},
			"UserID":       &types.AttributeValueMemberS{Value: userID},
			"ConnectionID": &types.AttributeValueMemberS{Value: connectionID},
			"TTL":          &types.AttributeValueMemberN{Value: ttl},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save connection reverse entry: %w", err)
	}

	s.logger.Info("connection registered",
		zap.String("user_id", userID),
		zap.String("connection_id", connectionID),
	)
	return nil
}

// DeleteConnection removes a connection by its id
func (s *ConnectionStore) DeleteConnection(ctx context.Context, connectionID string) error {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: connPK(connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "CONNECTION"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to look up connection: %w", err)
	}
	if out.Item == nil {
		return nil
	}

	userID := ""
	if v, ok := out.Item["UserID"].(*types.AttributeValueMemberS); ok {
		userID = v.Value
	}

	if userID != "" {
		_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &types.AttributeValueMemberS{Value: connectionID},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete connection entry: %w", err)
		}
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: connPK(connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "CONNECTION"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete connection reverse entry: %w", err)
	}

	s.logger.Info("connection removed",
		zap.String("user_id", userID),
		zap.String("connection_id", connectionID),
	)
	return nil
}

// ListConnections returns every live connection id for a user
func (s *ConnectionStore) ListConnections(ctx context.Context, userID string) ([]string, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	ids := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if v, ok := item["ConnectionID"].(*types.AttributeValueMemberS); ok {
			ids = append(ids, v.Value)
		}
	}
	return ids, nil
}
