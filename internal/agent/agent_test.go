package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

// fakeRuntime implements the bedrockruntime surface the agent uses.
type fakeRuntime struct {
	invokeOut    *bedrockruntime.InvokeModelOutput
	invokeErr    error
	capturedBody []byte

	streamErr error
}

func (f *fakeRuntime) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.capturedBody = params.Body
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.invokeOut, nil
}

func (f *fakeRuntime) InvokeModelWithResponseStream(_ context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error) {
	f.capturedBody = params.Body
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return nil, errors.New("streaming output cannot be faked")
}

// fakeAgentRuntime implements the bedrockagentruntime surface the agent uses.
type fakeAgentRuntime struct {
	retrieveOut   *bedrockagentruntime.RetrieveOutput
	retrieveErr   error
	retrieveInput *bedrockagentruntime.RetrieveInput

	ragOut   *bedrockagentruntime.RetrieveAndGenerateOutput
	ragErr   error
	ragInput *bedrockagentruntime.RetrieveAndGenerateInput
}

func (f *fakeAgentRuntime) Retrieve(_ context.Context, params *bedrockagentruntime.RetrieveInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error) {
	f.retrieveInput = params
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.retrieveOut, nil
}

func (f *fakeAgentRuntime) RetrieveAndGenerate(_ context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error) {
	f.ragInput = params
	if f.ragErr != nil {
		return nil, f.ragErr
	}
	return f.ragOut, nil
}

// fakeControl implements the bedrock control-plane surface.
type fakeControl struct {
	listOut *bedrock.ListFoundationModelsOutput
	listErr error
}

func (f *fakeControl) ListFoundationModels(_ context.Context, _ *bedrock.ListFoundationModelsInput, _ ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func testSettings() Settings {
	return Settings{
		Region:          "us-east-1",
		ModelID:         "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
		KBMaxResults:    5,
		MaxTokens:       1024,
		Temperature:     0.7,
		TopP:            0.9,
		StreamChunkSize: 10,
	}
}

func newTestAgent(t *testing.T, runtime *fakeRuntime, agentRT *fakeAgentRuntime, control *fakeControl, mutate func(*Settings)) *Agent {
	t.Helper()
	settings := testSettings()
	if mutate != nil {
		mutate(&settings)
	}
	if runtime == nil {
		runtime = &fakeRuntime{}
	}
	var agentClient bedrockAgentAPI
	if agentRT != nil {
		agentClient = agentRT
	}
	var controlClient bedrockControlAPI
	if control != nil {
		controlClient = control
	}
	return New(runtime, agentClient, controlClient, settings, logging.New("error"))
}

// chunkEvent wraps a JSON payload as a model response stream element.
func chunkEvent(t *testing.T, payload any) brtypes.ResponseStream {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &brtypes.ResponseStreamMemberChunk{Value: brtypes.PayloadPart{Bytes: data}}
}

// collect drains a fragment channel into a slice.
func collect(ch <-chan string) []string {
	var fragments []string
	for fragment := range ch {
		fragments = append(fragments, fragment)
	}
	return fragments
}
