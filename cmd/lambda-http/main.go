package main

// Build for the provided.al2023 runtime:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"ats-backend/internal/bootstrap"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/telemetry"
)

// The router is built once per execution environment and reused by warm
// invocations. A failed build is retried on the next cold start only.
var (
	buildOnce sync.Once
	adapter   *ginadapter.GinLambdaV2
	buildErr  error
)

func build() {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		buildErr = err
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return
	}
	adapter = ginadapter.NewV2(app.Router)
}

func handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	buildOnce.Do(build)
	if buildErr != nil || adapter == nil {
		return unavailable(), nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

// unavailable mirrors the API error envelope so clients parse it the same way.
func unavailable() events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"error":{"code":"internal","message":"service failed to start"}}`,
	}
}

func main() {
	lambda.Start(handle)
}
