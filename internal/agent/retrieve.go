package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// RetrieveFromKnowledgeBase performs semantic search against the knowledge
// base, falling back to the configured default when no ID is given. Results
// keep the remote ranking order. A missing knowledge base configuration or a
// remote failure yields an empty list rather than an error; unlike the
// generate paths, retrieval failures are not surfaced to the caller.
func (a *Agent) RetrieveFromKnowledgeBase(ctx context.Context, query, knowledgeBaseID string, maxResults int) []KnowledgeResult {
	ctx, span := agentTracer.Start(ctx, "agent.retrieve")
	defer span.End()

	kbID := knowledgeBaseID
	if kbID == "" {
		kbID = a.settings.KnowledgeBaseID
	}
	if kbID == "" {
		a.logger.Warn("no knowledge base ID configured")
		return []KnowledgeResult{}
	}
	if a.agentRT == nil {
		a.logger.Warn("knowledge base client not configured")
		return []KnowledgeResult{}
	}
	if maxResults <= 0 {
		maxResults = a.settings.KBMaxResults
	}
	span.SetAttributes(attribute.String("knowledge_base_id", kbID))

	a.logger.Info("retrieving from knowledge base", "knowledge_base_id", kbID, "query_preview", preview(query))

	start := time.Now()
	out, err := a.agentRT.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(kbID),
		RetrievalQuery: &agenttypes.KnowledgeBaseQuery{
			Text: aws.String(query),
		},
		RetrievalConfiguration: &agenttypes.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &agenttypes.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(maxResults)),
			},
		},
	})
	a.metrics.ObserveInvokeLatency("retrieve", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		a.logger.Error("error retrieving from knowledge base", "error", err)
		a.metrics.ObserveRequest("retrieve", "error")
		return []KnowledgeResult{}
	}

	results := make([]KnowledgeResult, 0, len(out.RetrievalResults))
	for _, item := range out.RetrievalResults {
		result := KnowledgeResult{
			Score:    aws.ToFloat64(item.Score),
			Metadata: map[string]any{},
		}
		if item.Content != nil {
			result.Content = aws.ToString(item.Content.Text)
		}
		if item.Location != nil {
			result.Location = item.Location
		}
		for key, doc := range item.Metadata {
			var value any
			if err := doc.UnmarshalSmithyDocument(&value); err == nil {
				result.Metadata[key] = value
			}
		}
		results = append(results, result)
	}

	a.logger.Info("retrieved results from knowledge base", "count", len(results))
	a.metrics.ObserveRequest("retrieve", "ok")
	return results
}

// RetrieveAndGenerate delegates retrieval and generation to Bedrock's managed
// composite call. The underlying API is not incremental, so the returned full
// text is sliced into fixed-width fragments to present a streamed shape; this
// is a simulation, not token-level streaming. With no knowledge base
// configured the call falls back transparently to plain streaming generate.
func (a *Agent) RetrieveAndGenerate(ctx context.Context, userMessage, knowledgeBaseID string, history []Message, systemPrompt string) <-chan string {
	kbID := knowledgeBaseID
	if kbID == "" {
		kbID = a.settings.KnowledgeBaseID
	}
	if kbID == "" || a.agentRT == nil {
		a.logger.Warn("no knowledge base configured, falling back to regular chat")
		return a.StreamResponse(ctx, userMessage, history, systemPrompt)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)

		ctx, span := agentTracer.Start(ctx, "agent.retrieve_and_generate")
		defer span.End()
		span.SetAttributes(attribute.String("knowledge_base_id", kbID))

		a.logger.Info("using retrieve-and-generate", "knowledge_base_id", kbID)

		input := &bedrockagentruntime.RetrieveAndGenerateInput{
			Input: &agenttypes.RetrieveAndGenerateInput{
				Text: aws.String(userMessage),
			},
			RetrieveAndGenerateConfiguration: &agenttypes.RetrieveAndGenerateConfiguration{
				Type: agenttypes.RetrieveAndGenerateTypeKnowledgeBase,
				KnowledgeBaseConfiguration: &agenttypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
					KnowledgeBaseId: aws.String(kbID),
					ModelArn:        aws.String(a.modelARN()),
					GenerationConfiguration: &agenttypes.GenerationConfiguration{
						InferenceConfig: &agenttypes.InferenceConfig{
							TextInferenceConfig: &agenttypes.TextInferenceConfig{
								MaxTokens:   aws.Int32(a.settings.MaxTokens),
								Temperature: aws.Float32(a.settings.Temperature),
								TopP:        aws.Float32(a.settings.TopP),
							},
						},
					},
				},
			},
		}
		if len(history) > 0 {
			input.SessionId = aws.String(uuid.NewString())
		}

		start := time.Now()
		resp, err := a.agentRT.RetrieveAndGenerate(ctx, input)
		a.metrics.ObserveInvokeLatency("retrieve_and_generate", time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			message, category := classifyRetrieveAndGenerateError(err)
			a.logger.Error("error in retrieve-and-generate", "error", err, "category", category)
			a.metrics.ObserveRequest("retrieve_and_generate", "error")
			a.metrics.ObserveError(category)
			out <- message
			return
		}

		var text string
		if resp.Output != nil {
			text = aws.ToString(resp.Output.Text)
		}

		fragments := sliceChunks(text, a.settings.StreamChunkSize)
		for _, fragment := range fragments {
			select {
			case out <- fragment:
			case <-ctx.Done():
				return
			}
		}
		a.metrics.ObserveFragments(len(fragments))
		a.metrics.ObserveRequest("retrieve_and_generate", "ok")

		if n := len(resp.Citations); n > 0 {
			a.logger.Info("response includes knowledge base citations", "count", n)
		}
	}()

	return out
}

// StreamWithKnowledge retrieves context first, folds it into the system
// directive, then streams an ordinary generation. Zero retrieval results
// leave the caller's directive untouched.
func (a *Agent) StreamWithKnowledge(ctx context.Context, userMessage, knowledgeBaseID string, history []Message, systemPrompt string, maxResults int) <-chan string {
	if maxResults <= 0 {
		maxResults = a.settings.KBMaxResults
	}

	results := a.RetrieveFromKnowledgeBase(ctx, userMessage, knowledgeBaseID, maxResults)
	return a.StreamResponse(ctx, userMessage, history, augmentSystemPrompt(systemPrompt, results))
}

// augmentSystemPrompt prepends retrieved passages and analysis instructions to
// the caller's system directive. With no results the directive passes through
// byte-for-byte.
func augmentSystemPrompt(systemPrompt string, results []KnowledgeResult) string {
	if len(results) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString("\n\n=== RETRIEVED MATCH DATA FROM KNOWLEDGE BASE ===\n")
	fmt.Fprintf(&b, "You have access to %d League of Legends match records.\n", len(results))
	b.WriteString("Each record is JSON data containing: championName, kills, deaths, assists, gameMode, win, items, gold, damage, etc.\n\n")

	for i, result := range results {
		fmt.Fprintf(&b, "\n[Match %d] (Relevance: %.2f)\n", i+1, result.Score)
		b.WriteString(result.Content)
		b.WriteString("\n")
	}

	b.WriteString("\n=== END OF MATCH DATA ===\n\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Analyze ALL the match data provided above\n")
	b.WriteString("- Count champion occurrences to determine most played\n")
	b.WriteString("- Calculate win rates, KDA, and other statistics\n")
	b.WriteString("- Provide specific numbers and examples from the data\n")
	b.WriteString("- If asked about 'most played', count all instances of each champion\n")
	b.WriteString("\n\n")
	b.WriteString(systemPrompt)
	return b.String()
}

// sliceChunks splits text into fixed-width rune chunks, preserving order.
// Concatenating the chunks reproduces the input exactly.
func sliceChunks(text string, width int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+width-1)/width)
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func (a *Agent) modelARN() string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", a.settings.Region, a.settings.ModelID)
}
