package agent

import (
	"fmt"
	"strings"
)

// errorRule maps a provider exception identifier, found by substring search in
// the error text, onto a user-facing message. Bedrock surfaces its exception
// names inside the wrapped error string, so matching is ordered and textual.
type errorRule struct {
	substr   string
	category string
	message  string
}

var invokeErrorRules = []errorRule{
	{
		substr:   "ValidationException",
		category: "validation",
		message:  "[ERROR] Invalid request to AWS Bedrock. Please check your configuration.",
	},
	{
		substr:   "AccessDeniedException",
		category: "access_denied",
		message:  "[ERROR] Access denied. Please verify your AWS credentials and Bedrock permissions.",
	},
	{
		substr:   "ResourceNotFoundException",
		category: "not_found",
		message:  "[ERROR] Model not found. Please ensure the configured model is enabled in your AWS region.",
	},
	{
		substr:   "ThrottlingException",
		category: "throttled",
		message:  "[ERROR] Rate limit exceeded. Please try again in a moment.",
	},
}

var retrieveAndGenerateErrorRules = []errorRule{
	{
		substr:   "ResourceNotFoundException",
		category: "kb_not_found",
		message:  "[ERROR] Knowledge base not found. Please verify the knowledge base ID.",
	},
	{
		substr:   "AccessDeniedException",
		category: "kb_access_denied",
		message:  "[ERROR] Access denied to knowledge base. Please check IAM permissions.",
	},
}

// classifyInvokeError converts a generate-path failure into the in-band error
// text delivered through the normal output channel, plus a metrics category.
func classifyInvokeError(err error) (message, category string) {
	text := err.Error()
	for _, rule := range invokeErrorRules {
		if strings.Contains(text, rule.substr) {
			return rule.message, rule.category
		}
	}
	return fmt.Sprintf("[ERROR] Failed to generate response: %s", text), "other"
}

// classifyRetrieveAndGenerateError is the composite-call variant: two
// knowledge-base specific rules are checked before the generic fallthrough.
func classifyRetrieveAndGenerateError(err error) (message, category string) {
	text := err.Error()
	for _, rule := range retrieveAndGenerateErrorRules {
		if strings.Contains(text, rule.substr) {
			return rule.message, rule.category
		}
	}
	return fmt.Sprintf("[ERROR] Failed to retrieve and generate: %s", text), "other"
}
