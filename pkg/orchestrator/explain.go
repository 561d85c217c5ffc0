package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

const explainSystemPrompt = `A financial data lookup failed. Write a short,
friendly markdown message for the user explaining what went wrong and what
they could try. Do not mention internal systems or stack traces.`

// explainFetchError turns a structured price-fetch failure into a
// user-facing markdown explanation: an LLM phrasing when available, a
// deterministic fallback otherwise.
func explainFetchError(ctx context.Context, client llm.Client, entityName string, fetchErr *models.DataFetchError) string {
	prompt := fmt.Sprintf("Looking up prices for %s failed. Failure kind: %s. Detail: %s.",
		entityName, fetchErr.Kind, fetchErr.Context)

	text, err := client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: explainSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("Fetch-error explainer failed, using deterministic text", "error", err)
		return fallbackExplanation(entityName, fetchErr)
	}
	return strings.TrimSpace(text)
}

func fallbackExplanation(entityName string, fetchErr *models.DataFetchError) string {
	switch fetchErr.Kind {
	case models.FetchErrInvalidCode:
		return fmt.Sprintf("I could not find price data for **%s**. The code may be wrong or not covered by the data source. Please check the instrument and try again.", entityName)
	case models.FetchErrPermission:
		return fmt.Sprintf("The price data source declined the request for **%s**. This usually clears up on its own; please try again later.", entityName)
	case models.FetchErrNetwork:
		return fmt.Sprintf("I could not reach the price data source for **%s**. Please try again in a moment.", entityName)
	default:
		return fmt.Sprintf("Fetching price data for **%s** failed unexpectedly. Please try again.", entityName)
	}
}
