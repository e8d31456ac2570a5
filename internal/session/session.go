// Package session runs the flush pipeline for closed episodes and owns the
// state shared by every display surface of one tokenwatt process.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/delta"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/sink"
	"github.com/zjrosen/tokenwatt/internal/tokenizer"
	"github.com/zjrosen/tokenwatt/internal/tracing"
	"github.com/zjrosen/tokenwatt/internal/usage"
)

// Outcome is the result of processing one episode.
type Outcome int

const (
	// OutcomeRecorded means totals were updated and the record was persisted.
	OutcomeRecorded Outcome = iota
	// OutcomeDiscarded means the episode inserted nothing but whitespace.
	OutcomeDiscarded
	// OutcomeTokenizerFailed means counting failed; nothing changed.
	OutcomeTokenizerFailed
	// OutcomeBelowThreshold means the token count was under the minimum.
	OutcomeBelowThreshold
	// OutcomeRecordedUnsaved means totals were updated but persisting failed.
	OutcomeRecordedUnsaved
	// OutcomeExtractFailed means delta extraction panicked; nothing changed.
	OutcomeExtractFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeTokenizerFailed:
		return "tokenizer_failed"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomeRecordedUnsaved:
		return "recorded_unsaved"
	case OutcomeExtractFailed:
		return "extract_failed"
	default:
		return "unknown"
	}
}

// Update is the payload pushed to display surfaces.
type Update struct {
	EpisodeID           string    `json:"episode_id,omitempty"`
	FileName            string    `json:"file_name,omitempty"`
	Tokens              int       `json:"tokens,omitempty"`
	EnergyJoules        float64   `json:"energy_joules"`
	TotalEnergyJoules   float64   `json:"total_energy_joules"`
	TotalEmissionsGrams float64   `json:"total_emissions_grams"`
	Episodes            int       `json:"episodes"`
	Enabled             bool      `json:"enabled"`
	Error               string    `json:"error,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// Config wires a Session.
type Config struct {
	Extractor delta.Extractor
	Counter   tokenizer.Counter
	Estimator *usage.Estimator
	// Sink may be nil, in which case records are only published.
	Sink     sink.Sink
	Notifier sink.Notifier
	Broker   *pubsub.Broker[Update]
	Tracer   trace.Tracer
	Now      func() time.Time
}

// Session is the per-process context: estimator totals, sinks and the
// display broker. HandleEpisode runs on the capture loop goroutine; Totals
// and Subscribe may be called from any goroutine.
type Session struct {
	extractor delta.Extractor
	counter   tokenizer.Counter
	estimator *usage.Estimator
	sink      sink.Sink
	notifier  sink.Notifier
	broker    *pubsub.Broker[Update]
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates a Session. Nil Notifier, Broker, Tracer and Now get working defaults.
func New(cfg Config) *Session {
	s := &Session{
		extractor: cfg.Extractor,
		counter:   cfg.Counter,
		estimator: cfg.Estimator,
		sink:      cfg.Sink,
		notifier:  cfg.Notifier,
		broker:    cfg.Broker,
		tracer:    cfg.Tracer,
		now:       cfg.Now,
	}
	if s.notifier == nil {
		s.notifier = sink.NopNotifier{}
	}
	if s.broker == nil {
		s.broker = pubsub.NewBroker[Update]()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

var _ capture.Handler = (*Session)(nil)

// HandleEpisode implements capture.Handler.
func (s *Session) HandleEpisode(ctx context.Context, ep capture.Episode) {
	s.Process(ctx, ep)
}

// Process runs extract, count, estimate, persist and publish for ep.
// Failures are contained: nothing here returns an error to the capture loop.
func (s *Session) Process(ctx context.Context, ep capture.Episode) (outcome Outcome) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanEpisodeFlush,
		trace.WithAttributes(
			attribute.String(tracing.AttrEpisodeID, ep.ID),
			attribute.String(tracing.AttrDocument, ep.Document),
			attribute.Int(tracing.AttrEpisodeEdits, ep.Edits),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String(tracing.AttrOutcome, outcome.String()))
		span.End()
	}()

	inserted, err := s.extract(ep.Base, ep.Final)
	if err != nil {
		log.ErrorErr(log.CatDelta, "Delta extraction failed", err, "episode", ep.ID)
		span.RecordError(err)
		return OutcomeExtractFailed
	}
	span.AddEvent(tracing.EventDeltaExtracted, trace.WithAttributes(attribute.Int(tracing.AttrInsertChars, len(inserted))))
	if ep.Base == ep.Final || strings.TrimSpace(inserted) == "" {
		log.Debug(log.CatDelta, "Discarding empty episode", "episode", ep.ID)
		return OutcomeDiscarded
	}

	tokens, err := s.count(inserted)
	if err != nil {
		log.Warn(log.CatTokenizer, "Token count failed", "episode", ep.ID, "error", err)
		span.RecordError(err)
		return OutcomeTokenizerFailed
	}
	span.AddEvent(tracing.EventTokensCounted, trace.WithAttributes(attribute.Int(tracing.AttrTokens, tokens)))
	span.SetAttributes(attribute.Int(tracing.AttrTokens, tokens))

	reading, ok := s.estimator.Estimate(tokens)
	if !ok {
		return OutcomeBelowThreshold
	}
	span.AddEvent(tracing.EventEstimated)
	span.SetAttributes(attribute.Float64(tracing.AttrEnergyJoules, reading.EnergyJoules))

	at := ep.ClosedAt
	if at.IsZero() {
		at = s.now()
	}
	rec := sink.Record{
		ID:                  ep.ID,
		Timestamp:           at,
		FileName:            filepath.Base(ep.Document),
		InsertedText:        inserted,
		TokenCount:          reading.Tokens,
		EnergyJoules:        reading.EnergyJoules,
		TotalEnergyJoules:   reading.TotalEnergyJoules,
		TotalEmissionsGrams: reading.TotalEmissionsGrams,
	}

	upd := s.update(rec)
	s.broker.Publish(pubsub.EpisodeRecorded, upd)

	if s.sink == nil {
		return OutcomeRecorded
	}
	if err := s.sink.Append(ctx, rec); err != nil {
		log.ErrorErr(log.CatSink, "Failed to persist episode", err, "episode", ep.ID)
		span.RecordError(err)
		span.AddEvent(tracing.EventSinkFailed)
		span.SetStatus(codes.Error, "sink append failed")

		upd.Error = err.Error()
		s.broker.Publish(pubsub.SinkFailed, upd)
		if nerr := s.notifier.Notify("tokenwatt: failed to write log", err.Error()); nerr != nil {
			log.Warn(log.CatSink, "Notification failed", "error", nerr)
		}
		return OutcomeRecordedUnsaved
	}
	return OutcomeRecorded
}

func (s *Session) extract(base, final string) (inserted string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return s.extractor.Extract(base, final), nil
}

func (s *Session) count(text string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	return s.counter.Count(text)
}

func (s *Session) update(rec sink.Record) Update {
	totals := s.estimator.Totals()
	return Update{
		EpisodeID:           rec.ID,
		FileName:            rec.FileName,
		Tokens:              rec.TokenCount,
		EnergyJoules:        rec.EnergyJoules,
		TotalEnergyJoules:   rec.TotalEnergyJoules,
		TotalEmissionsGrams: rec.TotalEmissionsGrams,
		Episodes:            totals.Episodes,
		Enabled:             true,
		Timestamp:           rec.Timestamp,
	}
}

// Totals returns the running totals.
func (s *Session) Totals() usage.Totals {
	return s.estimator.Totals()
}

// Snapshot returns the current totals as an Update, for surfaces that
// render state on connect.
func (s *Session) Snapshot(enabled bool) Update {
	t := s.estimator.Totals()
	return Update{
		TotalEnergyJoules:   t.EnergyJoules,
		TotalEmissionsGrams: t.EmissionsGrams,
		Episodes:            t.Episodes,
		Enabled:             enabled,
		Timestamp:           s.now(),
	}
}

// PublishToggle tells display surfaces that capture was enabled or disabled.
func (s *Session) PublishToggle(enabled bool) {
	s.broker.Publish(pubsub.LoggingToggled, s.Snapshot(enabled))
}

// Broker returns the display broker.
func (s *Session) Broker() *pubsub.Broker[Update] {
	return s.broker
}
