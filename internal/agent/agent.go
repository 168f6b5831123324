package agent

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/summoners-reunion/ai-chat-agent/internal/observability/metrics"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
	"go.opentelemetry.io/otel"
)

var agentTracer = otel.Tracer("aiagent.internal.agent")

type bedrockRuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

type bedrockAgentAPI interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

type bedrockControlAPI interface {
	ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
}

// Settings are process-fixed agent parameters, typically derived from config.
type Settings struct {
	Region          string
	ModelID         string
	KnowledgeBaseID string
	KBMaxResults    int
	MaxTokens       int32
	Temperature     float32
	TopP            float32
	StreamChunkSize int
}

// Agent relays chat requests to AWS Bedrock. It is constructed once at
// startup and is safe for concurrent use: it holds no per-call mutable state.
type Agent struct {
	runtime  bedrockRuntimeAPI
	agentRT  bedrockAgentAPI
	control  bedrockControlAPI
	settings Settings
	logger   *logging.Logger
	metrics  *metrics.ChatMetrics
}

// Option customizes agent construction.
type Option func(*Agent)

// WithMetrics attaches chat metrics to the agent.
func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// New creates a Bedrock chat agent. runtime and control must not be nil;
// agentRT may be nil when no knowledge base is in use, in which case the
// retrieval paths behave as if no knowledge base were configured.
func New(runtime bedrockRuntimeAPI, agentRT bedrockAgentAPI, control bedrockControlAPI, settings Settings, logger *logging.Logger, opts ...Option) *Agent {
	if runtime == nil {
		panic("agent: bedrock runtime client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if settings.KBMaxResults <= 0 {
		settings.KBMaxResults = 5
	}
	if settings.StreamChunkSize <= 0 {
		settings.StreamChunkSize = 10
	}

	a := &Agent{
		runtime:  runtime,
		agentRT:  agentRT,
		control:  control,
		settings: settings,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ModelID reports the configured foundation model identifier.
func (a *Agent) ModelID() string {
	return a.settings.ModelID
}

// KnowledgeBaseConfigured reports whether a default knowledge base is usable.
func (a *Agent) KnowledgeBaseConfigured() bool {
	return a.settings.KnowledgeBaseID != "" && a.agentRT != nil
}
