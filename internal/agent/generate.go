package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.opentelemetry.io/otel/attribute"
)

// invokeResponse is the non-streaming Claude response envelope.
type invokeResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GetResponse returns the complete model response for a single turn.
// Failures never propagate as errors: the result is an in-band "[ERROR] ..."
// string, since the text flows directly into a chat transcript.
func (a *Agent) GetResponse(ctx context.Context, userMessage string, history []Message, systemPrompt string) string {
	ctx, span := agentTracer.Start(ctx, "agent.get_response")
	defer span.End()
	span.SetAttributes(attribute.String("model_id", a.settings.ModelID))

	body, err := a.buildRequest(history, userMessage, systemPrompt)
	if err != nil {
		return a.invokeFailure(err)
	}

	a.logger.Info("getting response", "message_preview", preview(userMessage))

	start := time.Now()
	out, err := a.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.settings.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	a.metrics.ObserveInvokeLatency("invoke_model", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return a.invokeFailure(err)
	}

	var decoded invokeResponse
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		span.RecordError(err)
		return a.invokeFailure(err)
	}

	var builder strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	a.metrics.ObserveRequest("chat", "ok")
	return builder.String()
}

func (a *Agent) invokeFailure(err error) string {
	message, category := classifyInvokeError(err)
	a.logger.Error("error generating response", "error", err, "category", category)
	a.metrics.ObserveRequest("chat", "error")
	a.metrics.ObserveError(category)
	return message
}

// preview truncates a message for log lines.
func preview(s string) string {
	const max = 50
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
