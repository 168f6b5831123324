package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retrievalResult(content string, score float64) agenttypes.KnowledgeBaseRetrievalResult {
	return agenttypes.KnowledgeBaseRetrievalResult{
		Content: &agenttypes.RetrievalResultContent{Text: aws.String(content)},
		Score:   aws.Float64(score),
	}
}

func TestRetrieveReturnsRankedResultsInRemoteOrder(t *testing.T) {
	agentRT := &fakeAgentRuntime{
		retrieveOut: &bedrockagentruntime.RetrieveOutput{
			RetrievalResults: []agenttypes.KnowledgeBaseRetrievalResult{
				retrievalResult("second best", 0.71),
				retrievalResult("best", 0.93),
			},
		},
	}
	a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

	results := a.RetrieveFromKnowledgeBase(context.Background(), "most played champion", "", 0)

	require.Len(t, results, 2)
	// The remote ranking is preserved, never re-sorted locally.
	assert.Equal(t, "second best", results[0].Content)
	assert.InDelta(t, 0.71, results[0].Score, 0.0001)
	assert.Equal(t, "best", results[1].Content)

	// Default knowledge base and result cap applied.
	assert.Equal(t, "KB123", aws.ToString(agentRT.retrieveInput.KnowledgeBaseId))
	assert.Equal(t, int32(5), aws.ToInt32(agentRT.retrieveInput.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults))
}

func TestRetrieveDecodesMetadata(t *testing.T) {
	result := retrievalResult("match record", 0.5)
	result.Metadata = map[string]document.Interface{
		"source": document.NewLazyDocument("s3://matches/1.json"),
	}
	agentRT := &fakeAgentRuntime{
		retrieveOut: &bedrockagentruntime.RetrieveOutput{
			RetrievalResults: []agenttypes.KnowledgeBaseRetrievalResult{result},
		},
	}
	a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

	results := a.RetrieveFromKnowledgeBase(context.Background(), "query", "", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "s3://matches/1.json", results[0].Metadata["source"])
	assert.Equal(t, int32(3), aws.ToInt32(agentRT.retrieveInput.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults))
}

func TestRetrieveWithoutConfiguredKnowledgeBaseReturnsEmpty(t *testing.T) {
	agentRT := &fakeAgentRuntime{}
	a := newTestAgent(t, nil, agentRT, nil, nil)

	results := a.RetrieveFromKnowledgeBase(context.Background(), "query", "", 5)

	assert.Empty(t, results)
	assert.Nil(t, agentRT.retrieveInput, "remote call should not happen without a knowledge base ID")
}

func TestRetrieveSwallowsRemoteErrors(t *testing.T) {
	agentRT := &fakeAgentRuntime{retrieveErr: errors.New("ThrottlingException")}
	a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

	results := a.RetrieveFromKnowledgeBase(context.Background(), "query", "", 5)
	assert.Empty(t, results)
}

func TestRetrieveExplicitIDOverridesDefault(t *testing.T) {
	agentRT := &fakeAgentRuntime{retrieveOut: &bedrockagentruntime.RetrieveOutput{}}
	a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB-default" })

	a.RetrieveFromKnowledgeBase(context.Background(), "query", "KB-override", 5)
	assert.Equal(t, "KB-override", aws.ToString(agentRT.retrieveInput.KnowledgeBaseId))
}

func TestRetrieveAndGenerateSlicesOutputIntoFixedChunks(t *testing.T) {
	agentRT := &fakeAgentRuntime{
		ragOut: &bedrockagentruntime.RetrieveAndGenerateOutput{
			Output: &agenttypes.RetrieveAndGenerateOutput{
				Text: aws.String("abcdefghijklmnopqrstuvwxy"), // 25 chars
			},
		},
	}
	a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

	fragments := collect(a.RetrieveAndGenerate(context.Background(), "question", "", nil, ""))

	require.Len(t, fragments, 3)
	assert.Len(t, fragments[0], 10)
	assert.Len(t, fragments[1], 10)
	assert.Len(t, fragments[2], 5)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxy", strings.Join(fragments, ""))

	// No history means no session ID.
	assert.Nil(t, agentRT.ragInput.SessionId)
}

func TestRetrieveAndGenerateAttachesSessionIDWithHistory(t *testing.T) {
	agentRT := &fakeAgentRuntime{
		ragOut: &bedrockagentruntime.RetrieveAndGenerateOutput{
			Output: &agenttypes.RetrieveAndGenerateOutput{Text: aws.String("ok")},
		},
	}
	a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

	history := []Message{{Role: RoleUser, Content: "earlier"}}
	collect(a.RetrieveAndGenerate(context.Background(), "question", "", history, ""))

	require.NotNil(t, agentRT.ragInput.SessionId)
	assert.NotEmpty(t, aws.ToString(agentRT.ragInput.SessionId))
}

func TestRetrieveAndGenerateKnowledgeBaseErrorCategories(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want string
	}{
		{"kb not found", "ResourceNotFoundException", "[ERROR] Knowledge base not found. Please verify the knowledge base ID."},
		{"kb access denied", "AccessDeniedException", "[ERROR] Access denied to knowledge base. Please check IAM permissions."},
		{"generic", "something else entirely", "[ERROR] Failed to retrieve and generate: something else entirely"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agentRT := &fakeAgentRuntime{ragErr: errors.New(tt.err)}
			a := newTestAgent(t, nil, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

			fragments := collect(a.RetrieveAndGenerate(context.Background(), "q", "", nil, ""))
			require.Len(t, fragments, 1)
			assert.Equal(t, tt.want, fragments[0])
		})
	}
}

func TestRetrieveAndGenerateFallsBackWithoutKnowledgeBase(t *testing.T) {
	// No knowledge base configured: the call must transparently become a
	// plain streaming generate against the runtime client.
	runtime := &fakeRuntime{streamErr: errors.New("ValidationException")}
	a := newTestAgent(t, runtime, nil, nil, nil)

	fragments := collect(a.RetrieveAndGenerate(context.Background(), "question", "", nil, "directive"))

	require.Len(t, fragments, 1)
	assert.Equal(t, "[ERROR] Invalid request to AWS Bedrock. Please check your configuration.", fragments[0])

	req := decodeRequest(t, runtime.capturedBody)
	assert.Equal(t, "directive", req.System)
}

func TestStreamWithKnowledgeAugmentsSystemPrompt(t *testing.T) {
	agentRT := &fakeAgentRuntime{
		retrieveOut: &bedrockagentruntime.RetrieveOutput{
			RetrievalResults: []agenttypes.KnowledgeBaseRetrievalResult{
				retrievalResult(`{"championName":"Ahri","win":true}`, 0.88),
			},
		},
	}
	runtime := &fakeRuntime{streamErr: errors.New("stop here")}
	a := newTestAgent(t, runtime, agentRT, nil, func(s *Settings) { s.KnowledgeBaseID = "KB123" })

	collect(a.StreamWithKnowledge(context.Background(), "who wins most?", "", nil, "answer briefly", 0))

	req := decodeRequest(t, runtime.capturedBody)
	assert.Contains(t, req.System, "=== RETRIEVED MATCH DATA FROM KNOWLEDGE BASE ===")
	assert.Contains(t, req.System, "[Match 1] (Relevance: 0.88)")
	assert.Contains(t, req.System, `{"championName":"Ahri","win":true}`)
	assert.Contains(t, req.System, "=== END OF MATCH DATA ===")
	assert.True(t, strings.HasSuffix(req.System, "answer briefly"))
}

func TestAugmentSystemPromptZeroResultsPassesThroughUnchanged(t *testing.T) {
	original := "caller directive"
	assert.Equal(t, original, augmentSystemPrompt(original, nil))
	assert.Equal(t, original, augmentSystemPrompt(original, []KnowledgeResult{}))
	assert.Equal(t, "", augmentSystemPrompt("", nil))
}

func TestSliceChunks(t *testing.T) {
	assert.Nil(t, sliceChunks("", 10))

	chunks := sliceChunks("abcdefghijklmnopqrstuvwxy", 10)
	require.Equal(t, []string{"abcdefghij", "klmnopqrst", "uvwxy"}, chunks)

	// Exact multiple leaves no short tail.
	assert.Equal(t, []string{"ab", "cd"}, sliceChunks("abcd", 2))

	// Multi-byte runes are never split.
	uni := sliceChunks("héllo wörld", 4)
	assert.Equal(t, "héllo wörld", strings.Join(uni, ""))
	for _, chunk := range uni {
		assert.LessOrEqual(t, len([]rune(chunk)), 4)
	}
}

func TestModelARN(t *testing.T) {
	a := newTestAgent(t, nil, nil, nil, nil)
	assert.Equal(t,
		"arn:aws:bedrock:us-east-1::foundation-model/us.anthropic.claude-3-5-sonnet-20241022-v2:0",
		a.modelARN())
}
