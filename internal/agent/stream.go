package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.opentelemetry.io/otel/attribute"
)

// streamEvent is one decoded element of the model's response stream.
type streamEvent struct {
	Type  string       `json:"type"`
	Delta *streamDelta `json:"delta,omitempty"`
}

type streamDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// StreamResponse streams the model response as a lazy, finite, non-restartable
// sequence of text fragments. The channel is closed when the stream ends, a
// message_stop event arrives, ctx is cancelled, or an error occurs; in the
// error case exactly one final "[ERROR] ..." fragment is emitted first.
func (a *Agent) StreamResponse(ctx context.Context, userMessage string, history []Message, systemPrompt string) <-chan string {
	out := make(chan string, 16)

	go func() {
		defer close(out)

		ctx, span := agentTracer.Start(ctx, "agent.stream_response")
		defer span.End()
		span.SetAttributes(attribute.String("model_id", a.settings.ModelID))

		body, err := a.buildRequest(history, userMessage, systemPrompt)
		if err != nil {
			out <- a.streamFailure(err)
			return
		}

		a.logger.Info("streaming response", "message_preview", preview(userMessage))

		start := time.Now()
		resp, err := a.runtime.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
			ModelId:     aws.String(a.settings.ModelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        body,
		})
		a.metrics.ObserveInvokeLatency("invoke_model_stream", time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			out <- a.streamFailure(err)
			return
		}

		stream := resp.GetStream()
		if stream == nil {
			out <- a.streamFailure(errors.New("bedrock response stream is nil"))
			return
		}
		defer stream.Close()

		sent, stopped, decodeErr := a.forwardEvents(ctx, stream.Events(), out)
		a.metrics.ObserveFragments(sent)
		if decodeErr != nil {
			span.RecordError(decodeErr)
			select {
			case out <- a.streamFailure(decodeErr):
			case <-ctx.Done():
			}
			return
		}
		if !stopped {
			// Transport exhausted on its own; a trailing error may be pending.
			if err := stream.Err(); err != nil {
				span.RecordError(err)
				out <- a.streamFailure(err)
				return
			}
		}
		a.metrics.ObserveRequest("stream", "ok")
	}()

	return out
}

// forwardEvents decodes stream elements and forwards text fragments to out.
// It returns when the transport ends (stopped=false), when a message_stop
// event arrives or ctx is done (stopped=true, consumption halts before the
// transport drains), or when a payload fails to decode (err != nil).
func (a *Agent) forwardEvents(ctx context.Context, events <-chan brtypes.ResponseStream, out chan<- string) (sent int, stopped bool, err error) {
	for {
		select {
		case <-ctx.Done():
			// The client went away; abandon the remote stream.
			return sent, true, nil
		case event, ok := <-events:
			if !ok {
				return sent, false, nil
			}

			chunk, ok := event.(*brtypes.ResponseStreamMemberChunk)
			if !ok || chunk.Value.Bytes == nil {
				continue
			}

			var decoded streamEvent
			if err := json.Unmarshal(chunk.Value.Bytes, &decoded); err != nil {
				return sent, false, err
			}

			switch decoded.Type {
			case "content_block_delta":
				if decoded.Delta == nil || decoded.Delta.Type != "text_delta" || decoded.Delta.Text == "" {
					continue
				}
				select {
				case out <- decoded.Delta.Text:
					sent++
				case <-ctx.Done():
					return sent, true, nil
				}
			case "message_delta":
				// Metadata only (usage stats and the like); skip.
			case "message_stop":
				return sent, true, nil
			}
		}
	}
}

func (a *Agent) streamFailure(err error) string {
	message, category := classifyInvokeError(err)
	a.logger.Error("error streaming response", "error", err, "category", category)
	a.metrics.ObserveRequest("stream", "error")
	a.metrics.ObserveError(category)
	return message
}
