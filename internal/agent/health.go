package agent

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
)

// CheckHealth verifies connectivity to Bedrock by listing available Anthropic
// foundation models. A reachable endpoint counts as healthy even when the
// configured model is absent from the listing; that only logs a warning.
func (a *Agent) CheckHealth(ctx context.Context) bool {
	if a.control == nil {
		return false
	}

	out, err := a.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{
		ByProvider: aws.String("Anthropic"),
	})
	if err != nil {
		a.logger.Error("bedrock health check failed", "error", err)
		return false
	}

	for _, summary := range out.ModelSummaries {
		if aws.ToString(summary.ModelId) == a.settings.ModelID {
			a.logger.Debug("bedrock health check ok")
			return true
		}
	}

	a.logger.Warn("configured model not found in available models", "model_id", a.settings.ModelID)
	return true
}
