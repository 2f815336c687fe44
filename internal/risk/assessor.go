package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/skybrief/avwx-risk/internal/domain"
	"github.com/skybrief/avwx-risk/internal/observability"
)

// WeatherSource provides the raw per-kind collections the assessor scores.
type WeatherSource interface {
	FetchMETAR(ctx context.Context, stations []string, hours int) ([]domain.RawMETAR, error)
	FetchTAF(ctx context.Context, stations []string, hours int) ([]domain.RawTAF, error)
	FetchPIREPs(ctx context.Context, hours int) ([]domain.RawPIREP, error)
	FetchSIGMETs(ctx context.Context, hours int) ([]domain.RawSIGMET, error)
	FetchAFD(ctx context.Context, stations []string, hours int) ([]domain.RawAFD, error)
}

// Publisher emits completed assessments to downstream consumers.
type Publisher interface {
	PublishAssessment(ctx context.Context, stations []string, assessment domain.RiskAssessment) error
}

const (
	metarLookbackHours    = 2
	forecastLookbackHours = 6
)

// Assessor orchestrates one scoring cycle: gather raw data, normalize,
// score, and optionally publish and summarize. Scoring never returns an
// error to the caller; failures produce a degraded low-band assessment
// with the Error field set.
type Assessor struct {
	source     WeatherSource
	publisher  Publisher // may be nil
	summarizer domain.Summarizer
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
	ready      atomic.Bool
}

// NewAssessor wires an assessor. publisher may be nil to disable
// downstream publishing; summarizer may be nil to use the built-in
// template summarizer.
func NewAssessor(source WeatherSource, publisher Publisher, summarizer domain.Summarizer, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Assessor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if summarizer == nil {
		summarizer = domain.TemplateSummarizer{}
	}
	return &Assessor{
		source:     source,
		publisher:  publisher,
		summarizer: summarizer,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Gather fetches every data kind for the given stations. Pilot reports
// are best-effort: a PIREP failure degrades to an empty collection, any
// other failure aborts the gather.
func (a *Assessor) Gather(ctx context.Context, stations []string) (domain.WeatherData, error) {
	var data domain.WeatherData
	var err error

	if data.METAR, err = a.source.FetchMETAR(ctx, stations, metarLookbackHours); err != nil {
		return data, fmt.Errorf("gather metar: %w", err)
	}
	if data.TAF, err = a.source.FetchTAF(ctx, stations, forecastLookbackHours); err != nil {
		return data, fmt.Errorf("gather taf: %w", err)
	}
	if data.PIREP, err = a.source.FetchPIREPs(ctx, forecastLookbackHours); err != nil {
		a.logger.Warn("pilot reports unavailable, continuing without", "error", err)
		data.PIREP = []domain.RawPIREP{}
	}
	if data.SIGMET, err = a.source.FetchSIGMETs(ctx, forecastLookbackHours); err != nil {
		return data, fmt.Errorf("gather sigmet: %w", err)
	}
	if data.AFD, err = a.source.FetchAFD(ctx, stations, forecastLookbackHours); err != nil {
		return data, fmt.Errorf("gather afd: %w", err)
	}
	return data, nil
}

// ScoreRisk runs a full assessment cycle for the given stations.
func (a *Assessor) ScoreRisk(ctx context.Context, stations []string) domain.RiskAssessment {
	start := a.clock.Now()
	a.metrics.AssessmentsTotal.Inc()
	defer func() {
		a.metrics.AssessmentDuration.Observe(a.clock.Since(start).Seconds())
	}()

	data, err := a.Gather(ctx, stations)
	if err != nil {
		a.metrics.AssessmentsFailed.Inc()
		a.logger.Error("assessment degraded: gather failed", "stations", stations, "error", err)
		return a.degraded("Unable to calculate risk score")
	}

	assessment := a.ScoreRiskFromData(data)
	if assessment.Error != "" {
		return assessment
	}

	a.ready.Store(true)
	a.metrics.LastOverallScore.Set(float64(assessment.OverallScore))
	a.logger.Info("assessment complete",
		"stations", stations,
		"overall_score", assessment.OverallScore,
		"band", assessment.Band.Name)

	if a.publisher != nil {
		if err := a.publisher.PublishAssessment(ctx, stations, assessment); err != nil {
			a.logger.Warn("assessment publish failed", "error", err)
		}
	}
	return assessment
}

// ScoreRiskFromData scores an already-gathered bundle. Idempotent for a
// fixed clock reading and never panics: any scoring failure yields a
// degraded assessment.
func (a *Assessor) ScoreRiskFromData(data domain.WeatherData) (assessment domain.RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			a.metrics.AssessmentsFailed.Inc()
			a.logger.Error("assessment degraded: scoring panic", "panic", r)
			assessment = a.degraded("Unable to calculate risk score from data")
		}
	}()

	normalized := domain.Normalize(data)
	return Assess(normalized, a.clock.Now().UTC())
}

// Dashboard projects an assessment for display. Anything at Amber-High
// or above needs attention.
func (a *Assessor) Dashboard(ctx context.Context, stations []string) domain.DashboardAssessment {
	assessment := a.ScoreRisk(ctx, stations)
	return domain.DashboardAssessment{
		RiskScore:       assessment.OverallScore,
		RiskLevel:       assessment.Band.Label,
		RiskColor:       assessment.Band.Color,
		Recommendations: assessment.Recommendations,
		NeedsAttention:  assessment.OverallScore >= 46,
		Timestamp:       assessment.ComputedAt,
	}
}

// Briefing renders a plain-language summary of current conditions. If
// the configured summarizer fails, the built-in template output is
// returned instead.
func (a *Assessor) Briefing(ctx context.Context, stations []string) (string, error) {
	data, err := a.Gather(ctx, stations)
	if err != nil {
		return "", fmt.Errorf("briefing: %w", err)
	}

	text, err := a.summarizer.Summarize(ctx, data)
	if err != nil {
		a.logger.Warn("summarizer failed, falling back to template", "error", err)
		return domain.TemplateSummarizer{}.Summarize(ctx, data)
	}
	return text, nil
}

// CheckReadiness reports whether at least one assessment has completed
// since startup.
func (a *Assessor) CheckReadiness() bool {
	return a.ready.Load()
}

func (a *Assessor) degraded(msg string) domain.RiskAssessment {
	return domain.RiskAssessment{
		OverallScore: 0,
		Band:         BandFor(0),
		Error:        msg,
		ComputedAt:   a.clock.Now().UTC(),
	}
}
