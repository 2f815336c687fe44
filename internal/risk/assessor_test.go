package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skybrief/avwx-risk/internal/domain"
	"github.com/skybrief/avwx-risk/internal/observability"
)

// stubSource returns canned collections, with optional per-kind failures.
type stubSource struct {
	metar  []domain.RawMETAR
	taf    []domain.RawTAF
	pirep  []domain.RawPIREP
	sigmet []domain.RawSIGMET
	afd    []domain.RawAFD

	metarErr  error
	tafErr    error
	pirepErr  error
	sigmetErr error
	afdErr    error
}

func (s *stubSource) FetchMETAR(context.Context, []string, int) ([]domain.RawMETAR, error) {
	return s.metar, s.metarErr
}

func (s *stubSource) FetchTAF(context.Context, []string, int) ([]domain.RawTAF, error) {
	return s.taf, s.tafErr
}

func (s *stubSource) FetchPIREPs(context.Context, int) ([]domain.RawPIREP, error) {
	return s.pirep, s.pirepErr
}

func (s *stubSource) FetchSIGMETs(context.Context, int) ([]domain.RawSIGMET, error) {
	return s.sigmet, s.sigmetErr
}

func (s *stubSource) FetchAFD(context.Context, []string, int) ([]domain.RawAFD, error) {
	return s.afd, s.afdErr
}

type stubPublisher struct {
	published []domain.RiskAssessment
	err       error
}

func (p *stubPublisher) PublishAssessment(_ context.Context, _ []string, a domain.RiskAssessment) error {
	p.published = append(p.published, a)
	return p.err
}

type stubSummarizer struct {
	text string
	err  error
}

func (s stubSummarizer) Summarize(context.Context, domain.WeatherData) (string, error) {
	return s.text, s.err
}

func clearMETAR() domain.RawMETAR {
	return domain.RawMETAR{
		ICAOID: "KJFK",
		Temp:   f64(18.3),
		Dewp:   f64(12.1),
		Wdir:   f64(240),
		Wspd:   f64(12),
		Visib:  "10+",
		Ceil:   f64(5000),
		RawOb:  "KJFK 261510Z 24012KT 10SM FEW025 18/12 A3005",
	}
}

func newTestAssessor(source WeatherSource, publisher Publisher, summarizer domain.Summarizer) *Assessor {
	return NewAssessor(source, publisher, summarizer,
		clockwork.NewFakeClock(),
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAssessor_ScoreRisk_Success(t *testing.T) {
	source := &stubSource{metar: []domain.RawMETAR{clearMETAR()}}
	publisher := &stubPublisher{}
	a := newTestAssessor(source, publisher, nil)

	assert.False(t, a.CheckReadiness())

	assessment := a.ScoreRisk(context.Background(), []string{"KJFK"})

	assert.Empty(t, assessment.Error)
	assert.Equal(t, 0, assessment.OverallScore)
	assert.Equal(t, "low", assessment.Band.Name)
	assert.True(t, a.CheckReadiness())

	require.Len(t, publisher.published, 1)
	assert.Equal(t, assessment, publisher.published[0])
}

func TestAssessor_ScoreRisk_GatherFailureDegrades(t *testing.T) {
	source := &stubSource{metarErr: errors.New("upstream down")}
	publisher := &stubPublisher{}
	a := newTestAssessor(source, publisher, nil)

	assessment := a.ScoreRisk(context.Background(), []string{"KJFK"})

	assert.Equal(t, "Unable to calculate risk score", assessment.Error)
	assert.Equal(t, 0, assessment.OverallScore)
	assert.Equal(t, "low", assessment.Band.Name)
	assert.False(t, assessment.ComputedAt.IsZero())
	assert.False(t, a.CheckReadiness())
	assert.Empty(t, publisher.published, "degraded assessments are not published")
}

func TestAssessor_ScoreRisk_PIREPFailureIsTolerated(t *testing.T) {
	source := &stubSource{
		metar:    []domain.RawMETAR{clearMETAR()},
		pirepErr: errors.New("pirep endpoint flaky"),
	}
	a := newTestAssessor(source, nil, nil)

	assessment := a.ScoreRisk(context.Background(), []string{"KJFK"})

	assert.Empty(t, assessment.Error)
	assert.True(t, a.CheckReadiness())
}

func TestAssessor_ScoreRisk_PublishFailureDoesNotDegrade(t *testing.T) {
	source := &stubSource{metar: []domain.RawMETAR{clearMETAR()}}
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	a := newTestAssessor(source, publisher, nil)

	assessment := a.ScoreRisk(context.Background(), []string{"KJFK"})
	assert.Empty(t, assessment.Error)
}

func TestAssessor_ScoreRiskFromData_Idempotent(t *testing.T) {
	a := newTestAssessor(&stubSource{}, nil, nil)
	data := domain.WeatherData{
		METAR:  []domain.RawMETAR{clearMETAR()},
		SIGMET: []domain.RawSIGMET{{Hazard: "CONVECTIVE"}},
	}

	first := a.ScoreRiskFromData(data)
	second := a.ScoreRiskFromData(data)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, first.OverallScore)
}

func TestAssessor_Dashboard(t *testing.T) {
	t.Run("benign conditions", func(t *testing.T) {
		source := &stubSource{metar: []domain.RawMETAR{clearMETAR()}}
		a := newTestAssessor(source, nil, nil)

		dash := a.Dashboard(context.Background(), []string{"KJFK"})

		assert.Equal(t, 0, dash.RiskScore)
		assert.Equal(t, "Low Risk", dash.RiskLevel)
		assert.Equal(t, "green", dash.RiskColor)
		assert.False(t, dash.NeedsAttention)
	})

	t.Run("amber-high needs attention", func(t *testing.T) {
		m := clearMETAR()
		m.Visib = "1SM"
		m.Ceil = f64(500)
		m.Wspd = f64(38)
		source := &stubSource{
			metar:  []domain.RawMETAR{m},
			sigmet: []domain.RawSIGMET{{Hazard: "TURB"}},
		}
		a := newTestAssessor(source, nil, nil)

		dash := a.Dashboard(context.Background(), []string{"KJFK"})

		assert.GreaterOrEqual(t, dash.RiskScore, 46)
		assert.True(t, dash.NeedsAttention)
	})
}

func TestAssessor_Briefing(t *testing.T) {
	source := &stubSource{metar: []domain.RawMETAR{clearMETAR()}}

	t.Run("uses configured summarizer", func(t *testing.T) {
		a := newTestAssessor(source, nil, stubSummarizer{text: "all clear over the field"})

		text, err := a.Briefing(context.Background(), []string{"KJFK"})
		require.NoError(t, err)
		assert.Equal(t, "all clear over the field", text)
	})

	t.Run("falls back to template on summarizer failure", func(t *testing.T) {
		a := newTestAssessor(source, nil, stubSummarizer{err: errors.New("model timeout")})

		text, err := a.Briefing(context.Background(), []string{"KJFK"})
		require.NoError(t, err)
		assert.Contains(t, text, "• KJFK:")
	})

	t.Run("propagates gather failure", func(t *testing.T) {
		a := newTestAssessor(&stubSource{tafErr: errors.New("down")}, nil, nil)

		_, err := a.Briefing(context.Background(), []string{"KJFK"})
		require.Error(t, err)
	})
}
