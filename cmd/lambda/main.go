package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clipstream-backend/infrastructure/config"
	"clipstream-backend/infrastructure/di"
)

var (
	chiLambda *chiadapter.ChiLambda
	container *di.Container
)

// init runs during cold start
func init() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	mux, ok := container.Router.(*chi.Mux)
	if !ok {
		log.Fatal("router is not a chi mux")
	}
	chiLambda = chiadapter.New(mux)

	container.Logger.Info("Lambda cold start complete")
}

// Handler proxies API Gateway requests through the chi router
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := chiLambda.ProxyWithContext(ctx, req)

	// Lambdas are frozen between invocations; flush counters while we can.
	if flushErr := container.Metrics.Flush(ctx); flushErr != nil {
		container.Logger.Warn("failed to flush metrics", zap.Error(flushErr))
	}

	return resp, err
}

func main() {
	lambda.Start(Handler)
}
