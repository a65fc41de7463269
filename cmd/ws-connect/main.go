// Package main implements the WebSocket $connect Lambda handler.
// It authenticates the caller and registers the connection so the
// message delivery path can find it.
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
	"clipstream-backend/pkg/auth"
)

var (
	connections *realtime.ConnectionStore
	validator   *auth.JWTValidator
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

	validator, err = auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}
}

func handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	token := req.QueryStringParameters["token"]
	if token == "" {
		token = req.Headers["Authorization"]
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		logger.Warn("websocket connect rejected",
			zap.String("connection_id", req.RequestContext.ConnectionID),
			zap.Error(err),
		)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusUnauthorized,
			Body:       `{"error": "unauthorized"}`,
		}, nil
	}

	if err := connections.SaveConnection(ctx, claims.UserID, req.RequestContext.ConnectionID); err != nil {
		logger.Error("failed to register connection",
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
