// Package orchestrator drives one message from user query to terminal
// event: intent, entity resolution, parallel collection, analysis,
// prediction, and narration, publishing into the event fabric at every
// boundary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tickertalk/tickertalk/pkg/analysis"
	"github.com/tickertalk/tickertalk/pkg/collect"
	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/entity"
	"github.com/tickertalk/tickertalk/pkg/events"
	"github.com/tickertalk/tickertalk/pkg/forecast"
	"github.com/tickertalk/tickertalk/pkg/intent"
	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// defaultIdleTimeout bounds how long a run may go without producing an
// event before it is errored out.
const defaultIdleTimeout = 30 * time.Second

// defaultHistoryDays is the price window when the intent names none.
const defaultHistoryDays = 365

// historyTurnsForChat bounds the transcript passed to the chat responder
// and classifier.
const historyTurnsForChat = 10

// Publisher is the slice of the event fabric the orchestrator writes to.
type Publisher interface {
	Publish(ctx context.Context, sessionID, messageID, eventType string, payload any) error
}

// StateStore is the slice of the state store the orchestrator writes to.
type StateStore interface {
	SaveSession(ctx context.Context, sess *models.Session) error
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Store      StateStore
	Publisher  Publisher
	LLM        llm.Client
	Classifier *intent.Classifier
	Resolver   entity.Resolver
	Prices     collect.PriceFetcher
	News       collect.NewsCollector
	Research   collect.ResearchRetriever
	Zones      collect.ZoneProvider
	Selector   *forecast.Selector
	// Forecasters are the candidate backends; the seasonal-naive baseline
	// is always available in addition.
	Forecasters []forecast.Forecaster
	Calendar    forecast.TradingCalendar
	Models      config.ModelsConfig
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Orchestrator owns the background tasks that process messages.
type Orchestrator struct {
	deps        Deps
	forecasters map[string]forecast.Forecaster
	reg         *registry
	idleTimeout time.Duration
}

// New creates an Orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Calendar == nil {
		deps.Calendar = forecast.WeekdayCalendar{}
	}
	forecasters := map[string]forecast.Forecaster{
		forecast.BaselineModel: forecast.SeasonalNaive{},
	}
	for _, f := range deps.Forecasters {
		forecasters[f.Name()] = f
	}
	idle := deps.Models.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Orchestrator{
		deps:        deps,
		forecasters: forecasters,
		reg:         newRegistry(),
		idleTimeout: idle,
	}
}

// Start spawns the background task for a message. It returns false when a
// task already owns the message, which is the idempotent re-attach case.
func (o *Orchestrator) Start(sess *models.Session, msg *models.Message) bool {
	ctx, ok := o.reg.acquire(msg.ID)
	if !ok {
		return false
	}
	go o.run(ctx, sess, msg)
	return true
}

// Processing reports whether a task currently owns the message.
func (o *Orchestrator) Processing(messageID string) bool {
	return o.reg.active(messageID)
}

// Shutdown drains active runs, cancelling whatever remains after the
// timeout.
func (o *Orchestrator) Shutdown(timeout time.Duration) bool {
	return o.reg.drain(timeout)
}

// run is one message's lifecycle. It never lets a failure escape; every
// exit path has published a terminal event.
func (o *Orchestrator) run(ctx context.Context, sess *models.Session, msg *models.Message) {
	defer o.reg.release(msg.ID)

	r := &run{o: o, ctx: ctx, sess: sess, msg: msg}
	r.lastEvent.Store(o.deps.Now().UnixNano())

	stopWatch := r.watch()
	defer stopWatch()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Orchestration panicked", "message_id", msg.ID, "panic", p)
			r.failSystem("internal_error", fmt.Errorf("internal failure: %v", p))
		}
	}()

	msg.Status = models.MessageStatusProcessing
	msg.StreamStatus = models.StreamStatusStreaming
	sess.CurrentMessageID = msg.ID
	if err := o.deps.Store.SaveSession(ctx, sess); err != nil {
		r.failSystem("redis_unavailable", err)
		return
	}
	if err := o.deps.Store.SaveMessage(ctx, msg); err != nil {
		r.failSystem("redis_unavailable", err)
		return
	}

	r.publish(events.TypeSessionCreated, events.SessionCreatedPayload{
		SessionID: sess.ID,
		MessageID: msg.ID,
	})

	if !r.stageIntent() {
		return
	}
	if !r.msg.Intent.InScope() {
		refusal := r.msg.Intent.Refusal
		if refusal == "" {
			refusal = "I focus on financial analysis and cannot help with that request."
		}
		r.conclude(refusal)
		return
	}
	if !r.stageEntity() {
		return
	}

	if r.msg.Intent.IsForecast {
		r.runForecast()
	} else {
		r.runChat()
	}
}

// run is the per-message execution state.
type run struct {
	o    *Orchestrator
	ctx  context.Context
	sess *models.Session
	msg  *models.Message

	lastEvent atomic.Int64
	terminal  atomic.Bool
}

// publish sends one event and notes the activity for the idle watchdog.
// Publish failures after the run has gone terminal are expected (context
// cancelled) and dropped.
func (r *run) publish(eventType string, payload any) {
	r.lastEvent.Store(r.o.deps.Now().UnixNano())
	if err := r.o.deps.Publisher.Publish(r.ctx, r.sess.ID, r.msg.ID, eventType, payload); err != nil {
		if !r.terminal.Load() {
			slog.Warn("Failed to publish event", "message_id", r.msg.ID, "type", eventType, "error", err)
		}
	}
}

func (r *run) publishStep(index int, status models.StepStatus, note string) {
	r.msg.SetStep(index, status, note)
	r.publish(events.TypeStepUpdate, events.StepUpdatePayload{
		Step:    index,
		Status:  string(status),
		Message: note,
	})
}

// save persists the message, logging instead of failing: the next save or
// the terminal path will retry.
func (r *run) save() {
	if err := r.o.deps.Store.SaveMessage(r.ctx, r.msg); err != nil {
		slog.Warn("Failed to save message snapshot", "message_id", r.msg.ID, "error", err)
	}
}

// watch errors out the run when no event is produced for the idle window.
func (r *run) watch() func() {
	stopped := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopped:
				return
			case <-ticker.C:
				last := time.Unix(0, r.lastEvent.Load())
				if r.o.deps.Now().Sub(last) > r.o.idleTimeout {
					r.failSystem("idle_timeout", fmt.Errorf("no progress for %s", r.o.idleTimeout))
					r.o.reg.cancel(r.msg.ID)
					return
				}
			}
		}
	}()
	return func() {
		close(stopped)
		<-done
	}
}

// conclude completes the message: saves the conclusion, extends the
// transcript, and publishes the terminal analysis_complete.
func (r *run) conclude(text string) {
	if !r.terminal.CompareAndSwap(false, true) {
		return
	}
	ctx := context.WithoutCancel(r.ctx)

	r.msg.Conclusion = text
	r.msg.Status = models.MessageStatusCompleted
	r.msg.StreamStatus = models.StreamStatusCompleted
	r.sess.AppendTurn(llm.RoleUser, r.msg.Query)
	r.sess.AppendTurn(llm.RoleAssistant, text)
	r.sess.CurrentMessageID = ""

	if err := r.o.deps.Store.SaveMessage(ctx, r.msg); err != nil {
		slog.Error("Failed to save completed message", "message_id", r.msg.ID, "error", err)
	}
	if err := r.o.deps.Store.SaveSession(ctx, r.sess); err != nil {
		slog.Error("Failed to save session transcript", "session_id", r.sess.ID, "error", err)
	}

	if err := r.o.deps.Publisher.Publish(ctx, r.sess.ID, r.msg.ID, events.TypeAnalysisComplete, events.EmptyPayload{}); err != nil {
		slog.Error("Failed to publish analysis_complete", "message_id", r.msg.ID, "error", err)
	}
}

// failSystem publishes the terminal error event and marks the message
// errored. Infrastructure failures land here; user-facing failures go
// through conclude.
func (r *run) failSystem(code string, err error) {
	if !r.terminal.CompareAndSwap(false, true) {
		return
	}
	slog.Error("Orchestration failed", "message_id", r.msg.ID, "code", code, "error", err)
	ctx := context.WithoutCancel(r.ctx)

	r.msg.Status = models.MessageStatusError
	r.msg.StreamStatus = models.StreamStatusError
	r.msg.ErrorMessage = err.Error()
	r.sess.CurrentMessageID = ""
	if serr := r.o.deps.Store.SaveMessage(ctx, r.msg); serr != nil {
		slog.Error("Failed to save errored message", "message_id", r.msg.ID, "error", serr)
	}
	if serr := r.o.deps.Store.SaveSession(ctx, r.sess); serr != nil {
		slog.Error("Failed to save session after error", "session_id", r.sess.ID, "error", serr)
	}

	if perr := r.o.deps.Publisher.Publish(ctx, r.sess.ID, r.msg.ID, events.TypeError, events.ErrorPayload{
		Error:           err.Error(),
		ErrorCode:       code,
		RetryAble:       true,
		SuggestedAction: "Please retry the request; if the problem persists, try again later.",
	}); perr != nil {
		slog.Error("Failed to publish error event", "message_id", r.msg.ID, "error", perr)
	}
}

// stageIntent classifies the query, streaming narration as thinking
// chunks. Returns false when the run has gone terminal.
func (r *run) stageIntent() bool {
	r.publishStep(1, models.StepRunning, "")

	var accumulated strings.Builder
	bridge := newChunkBridge(func(payload any) error {
		r.lastEvent.Store(r.o.deps.Now().UnixNano())
		return r.o.deps.Publisher.Publish(r.ctx, r.sess.ID, r.msg.ID, events.TypeThinkingChunk, payload)
	})
	onDelta := func(chunk string) {
		accumulated.WriteString(chunk)
		bridge.enqueue(events.ThinkingChunkPayload{Chunk: chunk, Accumulated: accumulated.String()})
	}

	res, err := r.o.deps.Classifier.Classify(r.ctx, r.msg.Query, r.sess.RecentHistory(historyTurnsForChat), onDelta)
	bridge.close()
	if err != nil {
		r.failSystem("llm_unavailable", err)
		return false
	}

	r.publish(events.TypeThinkingComplete, events.ThinkingCompletePayload{
		ThinkingContent: res.Thinking,
		TotalLength:     len(res.Thinking),
	})

	r.msg.Intent = res.Intent
	r.msg.ThinkingContent = res.Thinking
	r.msg.Steps = stepsFor(res.Intent)
	r.publish(events.TypeIntentDetermined, res.Intent)
	r.publishStep(1, models.StepCompleted, "")
	r.save()
	return true
}

// stageEntity resolves the mentioned instrument and rewrites the keyword
// lists. Returns false when the run has gone terminal.
func (r *run) stageEntity() bool {
	it := r.msg.Intent
	idx := stepIndex(r.msg, stepEntity)
	if it.StockMention == "" || idx == 0 {
		r.msg.Keywords = &models.ResolvedKeywords{
			Research: it.ResearchKeywords,
			Web:      it.WebKeywords,
			News:     it.NewsKeywords,
		}
		return true
	}

	r.publishStep(idx, models.StepRunning, "")

	name := it.StockFullName
	if name == "" {
		name = it.StockMention
	}
	match, err := r.o.deps.Resolver.Resolve(r.ctx, name)
	if err != nil {
		r.failSystem("entity_index_unavailable", err)
		return false
	}
	if match.Kind != models.EntityMatchFound {
		r.publishStep(idx, models.StepError, match.Message)
		r.conclude(entityConclusion(match))
		return false
	}

	r.msg.Entity = match.Entity
	r.msg.Keywords = resolveKeywords(it, match.Entity)
	r.publishStep(idx, models.StepCompleted, "")
	r.save()
	return true
}

// entityConclusion renders a resolution failure for the user.
func entityConclusion(match *models.EntityMatch) string {
	if match.Kind == models.EntityMatchAmbiguous && len(match.Suggestions) > 0 {
		return fmt.Sprintf("%s. Did you mean: %s?", match.Message, strings.Join(match.Suggestions, ", "))
	}
	return match.Message
}

// resolveKeywords rewrites each keyword list: aliases of the instrument
// become its canonical name, and the entity code is appended.
func resolveKeywords(it *models.Intent, ent *models.Entity) *models.ResolvedKeywords {
	rewrite := func(keywords []string) []string {
		out := make([]string, 0, len(keywords)+1)
		for _, kw := range keywords {
			if strings.EqualFold(kw, it.StockMention) || strings.EqualFold(kw, it.StockFullName) {
				kw = ent.Name
			}
			out = append(out, kw)
		}
		return append(out, ent.Code)
	}
	return &models.ResolvedKeywords{
		Research: rewrite(it.ResearchKeywords),
		Web:      rewrite(it.WebKeywords),
		News:     rewrite(it.NewsKeywords),
	}
}

// runForecast is the forecast pipeline: collect, analyze, select+predict,
// narrate.
func (r *run) runForecast() {
	if r.msg.Entity == nil {
		r.conclude("Please name the instrument you would like a forecast for, for example a company name or stock code.")
		return
	}
	if !r.forecastCollect() {
		return
	}
	features, ok := r.forecastAnalyze()
	if !ok {
		return
	}
	horizon, ok := r.forecastPredict(features)
	if !ok {
		return
	}
	r.forecastNarrate(features, horizon)
}

// forecastCollect fans out the price, news, and research fetchers. The
// price series is load-bearing; the others degrade to empty.
func (r *run) forecastCollect() bool {
	idx := stepIndex(r.msg, stepCollect)
	r.publishStep(idx, models.StepRunning, "")

	it := r.msg.Intent
	ent := r.msg.Entity
	kw := r.msg.Keywords
	historyDays := it.HistoryDays
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}

	g, gctx := errgroup.WithContext(r.ctx)

	g.Go(func() error {
		series, err := r.o.deps.Prices.FetchDaily(gctx, ent.Code, ent.Market, historyDays)
		if err != nil {
			return err
		}
		r.msg.OriginalSeries = series
		r.publish(events.TypeData, events.DataPayload{
			DataType: events.DataTimeSeriesOriginal,
			Data:     series,
		})

		if r.o.deps.Zones != nil {
			zones, zerr := r.o.deps.Zones.Zones(gctx, ent.Code, series)
			if zerr != nil {
				slog.Warn("Anomaly zone computation skipped", "code", ent.Code, "error", zerr)
			} else if len(zones) > 0 {
				r.publish(events.TypeData, events.DataPayload{
					DataType: events.DataAnomalyZones,
					Data:     zones,
				})
			}
		}
		return nil
	})

	g.Go(func() error {
		items, err := r.o.deps.News.Collect(gctx, kw.Web, kw.News)
		if err != nil {
			slog.Warn("News collection degraded to empty", "error", err)
			return nil
		}
		if len(items) == 0 {
			return nil
		}
		items = analysis.SummarizeNews(gctx, r.o.deps.LLM, items)
		r.msg.News = items
		r.publish(events.TypeData, events.DataPayload{
			DataType: events.DataNews,
			Data:     items,
		})
		return nil
	})

	g.Go(func() error {
		excerpts, err := r.o.deps.Research.Query(gctx, kw.Research)
		if err != nil {
			slog.Warn("Research retrieval degraded to empty", "error", err)
			return nil
		}
		r.msg.Research = excerpts
		return nil
	})

	if err := g.Wait(); err != nil {
		var fetchErr *models.DataFetchError
		if errors.As(err, &fetchErr) {
			r.publishStep(idx, models.StepError, fetchErr.Error())
			text := explainFetchError(context.WithoutCancel(r.ctx), r.o.deps.LLM, ent.Name, fetchErr)
			r.conclude(text)
			return false
		}
		r.failSystem("collect_failed", err)
		return false
	}

	r.publishStep(idx, models.StepCompleted, "")
	r.save()
	return true
}

// forecastAnalyze extracts features and streams the sentiment scorer.
func (r *run) forecastAnalyze() (*models.Features, bool) {
	idx := stepIndex(r.msg, stepAnalyze)
	r.publishStep(idx, models.StepRunning, "")

	features, err := analysis.ExtractFeatures(r.msg.OriginalSeries)
	if err != nil {
		r.failSystem("analysis_failed", err)
		return nil, false
	}

	bridge := newChunkBridge(func(payload any) error {
		r.lastEvent.Store(r.o.deps.Now().UnixNano())
		return r.o.deps.Publisher.Publish(r.ctx, r.sess.ID, r.msg.ID, events.TypeEmotionChunk, payload)
	})
	sentiment, err := analysis.ScoreSentiment(r.ctx, r.o.deps.LLM, r.msg.Entity.Name, r.msg.News, func(chunk string) {
		bridge.enqueue(events.ChunkPayload{Content: chunk})
	})
	bridge.close()
	if err != nil {
		r.failSystem("llm_unavailable", err)
		return nil, false
	}

	r.msg.Sentiment = sentiment
	r.publish(events.TypeData, events.DataPayload{
		DataType: events.DataEmotion,
		Data:     events.EmotionPayload{Score: sentiment.Score, Narrative: sentiment.Narrative},
	})
	r.publishStep(idx, models.StepCompleted, "")
	r.save()
	return features, true
}

// forecastPredict selects the production model and extends the series with
// predictions. Returns the horizon for the narration stage.
func (r *run) forecastPredict(features *models.Features) (int, bool) {
	idx := stepIndex(r.msg, stepPredict)
	r.publishStep(idx, models.StepRunning, "")

	it := r.msg.Intent
	series := r.msg.OriginalSeries

	horizon, err := forecast.Horizon(models.LastDate(series), r.o.deps.Now())
	if err != nil {
		r.failSystem("forecast_failed", err)
		return 0, false
	}

	userModel := it.ForecastModel
	if userModel == "" {
		userModel = r.msg.ModelHint
	}
	sel, err := r.o.deps.Selector.Select(r.ctx, series, horizon, userModel)
	if err != nil {
		fallback := userModel
		if fallback == "" {
			fallback = r.o.deps.Models.DefaultModel
		}
		sel = forecast.FallbackSelection(fallback, userModel,
			fmt.Sprintf("model selection skipped (%v), using %s", err, fallback))
	}
	r.msg.Selection = sel
	r.publish(events.TypeModelSelection, sel)

	forecaster, ok := r.o.forecasters[sel.SelectedModel]
	if !ok {
		r.failSystem("forecast_failed", fmt.Errorf("no backend for model %q", sel.SelectedModel))
		return 0, false
	}

	var params *forecast.ProphetParams
	if sel.SelectedModel == forecast.ModelProphet {
		params = analysis.RecommendProphetParams(r.ctx, r.o.deps.LLM, features, r.msg.Sentiment)
	}

	last, err := time.Parse(models.DateLayout, models.LastDate(series))
	if err != nil {
		r.failSystem("forecast_failed", err)
		return 0, false
	}
	futureDates := r.o.deps.Calendar.NextTradingDays(last, horizon)

	preds, err := forecaster.Predict(r.ctx, forecast.Request{
		Series:      series,
		FutureDates: futureDates,
		Params:      params,
	})
	if err != nil {
		r.failSystem("forecast_failed", err)
		return 0, false
	}
	if len(preds) == 0 {
		r.failSystem("forecast_failed", fmt.Errorf("model %q returned no predictions", sel.SelectedModel))
		return 0, false
	}

	full := make([]models.TimePoint, 0, len(series)+len(preds))
	full = append(full, series...)
	full = append(full, preds...)
	r.msg.FullSeries = full
	r.msg.PredictionStartDay = preds[0].Date

	r.publish(events.TypeData, events.DataPayload{
		DataType:           events.DataTimeSeriesFull,
		Data:               full,
		PredictionStartDay: r.msg.PredictionStartDay,
	})
	r.publishStep(idx, models.StepCompleted, "")
	r.save()
	return horizon, true
}

// forecastNarrate streams the final report and concludes the message.
func (r *run) forecastNarrate(features *models.Features, horizon int) {
	idx := stepIndex(r.msg, stepNarrate)
	r.publishStep(idx, models.StepRunning, "")

	bridge := newChunkBridge(func(payload any) error {
		r.lastEvent.Store(r.o.deps.Now().UnixNano())
		return r.o.deps.Publisher.Publish(r.ctx, r.sess.ID, r.msg.ID, events.TypeReportChunk, payload)
	})
	text, err := r.o.deps.LLM.Stream(r.ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: reportSystemPrompt},
		{Role: llm.RoleUser, Content: reportPrompt(r.msg, features, horizon)},
	}, func(chunk string) {
		bridge.enqueue(events.ChunkPayload{Content: chunk})
	})
	bridge.close()
	if err != nil {
		r.failSystem("llm_unavailable", err)
		return
	}

	r.publishStep(idx, models.StepCompleted, "")
	r.conclude(strings.TrimSpace(text))
}

// runChat is the chat pipeline: gather enabled tools, then respond.
func (r *run) runChat() {
	gatherIdx := stepIndex(r.msg, stepGather)
	r.publishStep(gatherIdx, models.StepRunning, "")

	it := r.msg.Intent
	kw := r.msg.Keywords

	g, gctx := errgroup.WithContext(r.ctx)
	if it.UseResearch {
		g.Go(func() error {
			excerpts, err := r.o.deps.Research.Query(gctx, kw.Research)
			if err != nil {
				slog.Warn("Research retrieval degraded to empty", "error", err)
				return nil
			}
			r.msg.Research = excerpts
			return nil
		})
	}
	if it.UseWebSearch || it.UseDomainNews {
		g.Go(func() error {
			web, domain := kw.Web, kw.News
			if !it.UseWebSearch {
				web = nil
			}
			if !it.UseDomainNews {
				domain = nil
			}
			items, err := r.o.deps.News.Collect(gctx, web, domain)
			if err != nil {
				slog.Warn("News collection degraded to empty", "error", err)
				return nil
			}
			r.msg.News = items
			return nil
		})
	}
	_ = g.Wait()

	r.publishStep(gatherIdx, models.StepCompleted, "")
	r.save()

	respondIdx := stepIndex(r.msg, stepRespond)
	r.publishStep(respondIdx, models.StepRunning, "")

	messages := []llm.Message{{Role: llm.RoleSystem, Content: chatSystemPrompt}}
	for _, turn := range r.sess.RecentHistory(historyTurnsForChat) {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: chatPrompt(r.msg.Query, contextBlock(r.msg.Research, r.msg.News)),
	})

	bridge := newChunkBridge(func(payload any) error {
		r.lastEvent.Store(r.o.deps.Now().UnixNano())
		return r.o.deps.Publisher.Publish(r.ctx, r.sess.ID, r.msg.ID, events.TypeChatChunk, payload)
	})
	text, err := r.o.deps.LLM.Stream(r.ctx, messages, func(chunk string) {
		bridge.enqueue(events.ChunkPayload{Content: chunk})
	})
	bridge.close()
	if err != nil {
		r.failSystem("llm_unavailable", err)
		return
	}

	r.publishStep(respondIdx, models.StepCompleted, "")
	r.conclude(strings.TrimSpace(text))
}
