// Package main implements the WebSocket $disconnect Lambda handler.
// It removes the connection from the registry on clean close.
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	appconfig "clipstream-backend/infrastructure/config"
	"clipstream-backend/infrastructure/realtime"
)

var (
	connections *realtime.ConnectionStore
	logger      *zap.Logger
)

func init() {
	ctx := context.Background()

	cfg, err := appconfig.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err = zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	connections = realtime.NewConnectionStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, logger)
}

func handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := connections.DeleteConnection(ctx, req.RequestContext.ConnectionID); err != nil {
		logger.Error("failed to remove connection",
			zap.String("connection_id", req.RequestContext.ConnectionID),
			zap.Error(err),
		)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error": "internal server error"}`,
		}, nil
	}

	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

func main() {
	lambda.Start(handler)
}
