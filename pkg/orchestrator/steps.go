package orchestrator

import "github.com/tickertalk/tickertalk/pkg/models"

// Step names. The schedule a message follows is fixed once its intent is
// determined.
const (
	stepIntent  = "intent"
	stepEntity  = "entity"
	stepCollect = "collect"
	stepAnalyze = "analyze"
	stepPredict = "predict"
	stepNarrate = "narrate"
	stepGather  = "gather"
	stepRespond = "respond"
)

// stepsFor returns the step schedule for a classified intent. Out-of-scope
// queries stop at intent; chat runs gather/respond with an entity step only
// when the query mentions an instrument; forecasts run the full pipeline.
func stepsFor(intent *models.Intent) []models.Step {
	var names []string
	switch {
	case !intent.InScope():
		names = []string{stepIntent}
	case intent.IsForecast:
		names = []string{stepIntent, stepEntity, stepCollect, stepAnalyze, stepPredict, stepNarrate}
	case intent.StockMention != "":
		names = []string{stepIntent, stepEntity, stepGather, stepRespond}
	default:
		names = []string{stepIntent, stepGather, stepRespond}
	}

	steps := make([]models.Step, len(names))
	for i, name := range names {
		steps[i] = models.Step{Index: i + 1, Name: name, Status: models.StepPending}
	}
	return steps
}

// stepIndex finds the 1-based index of a named step, or 0 when the
// schedule does not include it.
func stepIndex(msg *models.Message, name string) int {
	for _, s := range msg.Steps {
		if s.Name == name {
			return s.Index
		}
	}
	return 0
}
