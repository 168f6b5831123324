package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/summoners-reunion/ai-chat-agent/cmd/mainconfig"
	"github.com/summoners-reunion/ai-chat-agent/internal/agent"
	"github.com/summoners-reunion/ai-chat-agent/internal/api/router"
	appconfig "github.com/summoners-reunion/ai-chat-agent/internal/config"
	"github.com/summoners-reunion/ai-chat-agent/internal/http/handlers"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

// The Lambda entrypoint serves the same router as cmd/api by translating API
// Gateway v2 events into plain HTTP requests. Responses are buffered, so the
// SSE endpoint returns its frames in one body rather than incrementally.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	var chatAgent *agent.Agent
	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config, chat endpoints disabled", "error", err)
	} else {
		settings := agent.Settings{
			Region:          cfg.AWSRegion,
			ModelID:         cfg.BedrockModelID,
			KBMaxResults:    cfg.KBMaxResults,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			StreamChunkSize: cfg.StreamChunkSize,
		}
		if cfg.KnowledgeBaseEnabled {
			settings.KnowledgeBaseID = cfg.KnowledgeBaseID
		}
		chatAgent = agent.New(
			bedrockruntime.NewFromConfig(awsCfg),
			bedrockagentruntime.NewFromConfig(awsCfg),
			bedrock.NewFromConfig(awsCfg),
			settings,
			logger,
		)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        handlers.NewChatHandler(chatAgent, cfg.AppName, cfg.MaxConversationHistory, logger),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return serve(ctx, r, evt)
	})
}

func serve(ctx context.Context, handler http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := newHTTPRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	rec := newBufferedResponse()
	handler.ServeHTTP(rec, req)

	headers := make(map[string]string, len(rec.header))
	for key := range rec.header {
		headers[key] = rec.header.Get(key)
	}

	return events.APIGatewayV2HTTPResponse{
		StatusCode: rec.status,
		Headers:    headers,
		Body:       rec.body.String(),
	}, nil
}

// bufferedResponse collects the handler's output so it can be returned as a
// single API Gateway response.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedResponse) WriteHeader(status int) { b.status = status }

// Flush satisfies http.Flusher so the SSE handler can run; writes stay
// buffered until the response is returned.
func (b *bufferedResponse) Flush() {}

func newHTTPRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}

	path := evt.RawPath
	if path == "" {
		path = evt.RequestContext.HTTP.Path
	}
	if path == "" {
		path = "/"
	}
	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}

	var body []byte
	if evt.Body != "" {
		if evt.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(evt.Body)
			if err != nil {
				return nil, err
			}
			body = decoded
		} else {
			body = []byte(evt.Body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, value := range evt.Headers {
		req.Header.Set(key, value)
	}
	if evt.RequestContext.HTTP.SourceIP != "" {
		req.RemoteAddr = evt.RequestContext.HTTP.SourceIP + ":0"
	}
	return req, nil
}
