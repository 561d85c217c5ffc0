package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// SelectionError reports that the history is too short for even one
// back-test window.
type SelectionError struct {
	Have   int // history length
	Needed int // min_train_size + horizon
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("history too short for model selection: have %d points, need at least %d", e.Have, e.Needed)
}

// Selector runs the rolling-window back-test over the candidate models and
// the baseline, and applies the baseline-penalty policy.
type Selector struct {
	candidates      []Forecaster
	baseline        Forecaster
	windows         int
	minTrain        int
	baselinePenalty bool
}

// NewSelector creates a Selector from config and the service-backed
// candidates.
func NewSelector(cfg config.ModelsConfig, candidates []Forecaster) *Selector {
	return &Selector{
		candidates:      candidates,
		baseline:        SeasonalNaive{},
		windows:         cfg.SelectionWindows,
		minTrain:        cfg.MinTrainSize,
		baselinePenalty: cfg.BaselinePenalty,
	}
}

// Select back-tests every model over up to the configured number of rolling
// windows of length horizon and returns the comparison plus the production
// choice. A non-empty userModel pins the production choice to the user's
// model, still subject to the baseline penalty. The series must be
// normalized ascending.
func (s *Selector) Select(ctx context.Context, series []models.TimePoint, horizon int, userModel string) (*models.ModelSelection, error) {
	length := len(series)
	if length < s.minTrain+horizon {
		return nil, &SelectionError{Have: length, Needed: s.minTrain + horizon}
	}

	// Window i tests the slice [L-(i+1)h, L-i*h), training on everything
	// before it. Windows whose training slice would drop below the minimum
	// are not formed.
	var windows [][2]int
	for i := 0; i < s.windows; i++ {
		trainEnd := length - (i+1)*horizon
		if trainEnd < s.minTrain {
			break
		}
		windows = append(windows, [2]int{trainEnd, trainEnd + horizon})
	}

	all := append([]Forecaster{s.baseline}, s.candidates...)
	scores := make([]models.ModelScore, 0, len(all))
	avgByModel := make(map[string]float64, len(all))

	for _, model := range all {
		var maes []float64
		for _, w := range windows {
			mae, err := s.windowMAE(ctx, model, series, w[0], w[1])
			if err != nil {
				slog.Warn("Back-test window failed", "model", model.Name(), "error", err)
				continue
			}
			maes = append(maes, mae)
		}

		score := models.ModelScore{
			Model:      model.Name(),
			Windows:    len(maes),
			IsBaseline: model.Name() == BaselineModel,
		}
		if len(maes) == 0 {
			score.Failed = true
			avgByModel[score.Model] = math.Inf(1)
		} else {
			avg, err := stats.Mean(maes)
			if err != nil {
				return nil, fmt.Errorf("failed to aggregate window errors: %w", err)
			}
			score.AvgMAE = avg
			avgByModel[score.Model] = avg
		}
		scores = append(scores, score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return avgByModel[scores[i].Model] < avgByModel[scores[j].Model]
	})

	return s.decide(scores, avgByModel, userModel), nil
}

// windowMAE trains on series[:trainEnd] and scores predictions against
// series[trainEnd:testEnd].
func (s *Selector) windowMAE(ctx context.Context, model Forecaster, series []models.TimePoint, trainEnd, testEnd int) (float64, error) {
	test := series[trainEnd:testEnd]
	dates := make([]string, len(test))
	for i, p := range test {
		dates[i] = p.Date
	}

	preds, err := model.Predict(ctx, Request{Series: series[:trainEnd], FutureDates: dates})
	if err != nil {
		return 0, err
	}
	if len(preds) != len(test) {
		return 0, fmt.Errorf("model %s predicted %d points for a %d point window", model.Name(), len(preds), len(test))
	}

	absErrs := make([]float64, len(test))
	for i := range test {
		absErrs[i] = math.Abs(preds[i].Value - test[i].Value)
	}
	return stats.Mean(absErrs)
}

// decide picks the production model from the sorted comparison.
func (s *Selector) decide(scores []models.ModelScore, avg map[string]float64, userModel string) *models.ModelSelection {
	baselineMAE := avg[BaselineModel]

	best := ""
	for _, score := range scores {
		if !score.IsBaseline && !score.Failed {
			best = score.Model
			break
		}
	}

	sel := &models.ModelSelection{
		Baseline:           BaselineModel,
		Comparison:         scores,
		UserSpecifiedModel: userModel,
	}

	if best == "" && userModel == "" {
		sel.BestModel = BaselineModel
		sel.SelectedModel = BaselineModel
		sel.Reason = "every candidate model failed the back-test, falling back to the seasonal_naive baseline"
		return sel
	}

	if best != "" {
		sel.BestModel = best
		sel.IsBetterThanBaseline = avg[best] < baselineMAE
	} else {
		sel.BestModel = BaselineModel
	}

	if userModel != "" {
		userMAE, known := avg[userModel]
		switch {
		case s.baselinePenalty && (!known || userMAE >= baselineMAE):
			sel.SelectedModel = BaselineModel
			sel.Reason = fmt.Sprintf("%s did not beat seasonal_naive at MAE %.4f in the back-test, downgrading to the baseline",
				userModel, baselineMAE)
		default:
			sel.SelectedModel = userModel
			sel.Reason = fmt.Sprintf("using %s as requested", userModel)
		}
		return sel
	}

	switch {
	case sel.IsBetterThanBaseline:
		sel.SelectedModel = best
		sel.Reason = fmt.Sprintf("%s averaged MAE %.4f over %d window(s), below seasonal_naive at %.4f",
			best, avg[best], s.windowCount(scores, best), baselineMAE)
	case s.baselinePenalty:
		sel.SelectedModel = BaselineModel
		sel.Reason = fmt.Sprintf("%s averaged MAE %.4f but did not beat seasonal_naive at %.4f, downgrading to the baseline",
			best, avg[best], baselineMAE)
	default:
		sel.SelectedModel = best
		sel.Reason = fmt.Sprintf("%s averaged MAE %.4f, not below seasonal_naive at %.4f, kept without baseline penalty",
			best, avg[best], baselineMAE)
	}
	return sel
}

func (s *Selector) windowCount(scores []models.ModelScore, model string) int {
	for _, sc := range scores {
		if sc.Model == model {
			return sc.Windows
		}
	}
	return 0
}

// FallbackSelection records the model used when the back-test could not
// run at all: the user's explicit choice, or the configured default.
func FallbackSelection(model, userModel, reason string) *models.ModelSelection {
	return &models.ModelSelection{
		SelectedModel:      model,
		BestModel:          model,
		Baseline:           BaselineModel,
		UserSpecifiedModel: userModel,
		Reason:             reason,
	}
}
