package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/summoners-reunion/ai-chat-agent/cmd/mainconfig"
	"github.com/summoners-reunion/ai-chat-agent/internal/agent"
	appconfig "github.com/summoners-reunion/ai-chat-agent/internal/config"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

// Manual smoke test against live Bedrock. Needs real AWS credentials in the
// environment or a .env file.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, "text", log.Writer())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	a := agent.New(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockagentruntime.NewFromConfig(awsCfg),
		bedrock.NewFromConfig(awsCfg),
		agent.Settings{
			Region:          cfg.AWSRegion,
			ModelID:         cfg.BedrockModelID,
			KnowledgeBaseID: cfg.KnowledgeBaseID,
			KBMaxResults:    cfg.KBMaxResults,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			StreamChunkSize: cfg.StreamChunkSize,
		},
		logger,
	)

	fmt.Println("Bedrock Agent Test")
	fmt.Println("==================")

	fmt.Println("\n[1] Health check...")
	if a.CheckHealth(ctx) {
		fmt.Println("    OK: Bedrock is reachable")
	} else {
		fmt.Println("    FAILED: Bedrock is not reachable, aborting")
		return
	}

	fmt.Println("\n[2] Non-streaming response...")
	start := time.Now()
	reply := a.GetResponse(ctx, "Reply with a single short sentence: what game is League of Legends?", nil, "")
	fmt.Printf("    (%v) %s\n", time.Since(start).Round(time.Millisecond), reply)

	fmt.Println("\n[3] Streaming response...")
	start = time.Now()
	fragments := 0
	for chunk := range a.StreamResponse(ctx, "Count from 1 to 5, one number per line.", nil, "") {
		fmt.Print(chunk)
		fragments++
	}
	fmt.Printf("\n    %d fragments in %v\n", fragments, time.Since(start).Round(time.Millisecond))

	if cfg.KnowledgeBaseID == "" {
		fmt.Println("\n[4] Skipping knowledge base tests (KNOWLEDGE_BASE_ID not set)")
		return
	}

	fmt.Println("\n[4] Knowledge base retrieval...")
	results := a.RetrieveFromKnowledgeBase(ctx, "most played champion", "", cfg.KBMaxResults)
	fmt.Printf("    %d results\n", len(results))
	for i, r := range results {
		fmt.Printf("    [%d] score=%.2f %.80s\n", i+1, r.Score, r.Content)
	}

	fmt.Println("\n[5] Retrieve-and-generate...")
	for chunk := range a.RetrieveAndGenerate(ctx, "Which champion appears most often in my matches?", "", nil, "") {
		fmt.Print(chunk)
	}
	fmt.Println()
}
