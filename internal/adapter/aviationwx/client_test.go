package aviationwx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/skybrief/avwx-risk/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, nil, nil, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchMETAR_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metar", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "KJFK,KLGA", r.URL.Query().Get("ids"))
		assert.Equal(t, "2", r.URL.Query().Get("hours"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"icaoId":"KJFK","rawOb":"KJFK 261510Z 24012KT 10SM FEW025 18/12 A3005"}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	records, err := c.FetchMETAR(context.Background(), []string{"KJFK", "KLGA"}, 0)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "KJFK", records[0].ICAOID)
	assert.Contains(t, records[0].RawOb, "24012KT")
}

func TestClient_Fetch_NoDataIsEmptyNotError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("No data available"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	records, err := c.FetchPIREPs(context.Background(), 6)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
	assert.Equal(t, int32(1), calls.Load(), "a no-data response must not be retried")

	// The empty result is never cached; the next call goes upstream again.
	_, err = c.FetchPIREPs(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Fetch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"icaoId":"KJFK"}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	records, err := c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Fetch_GivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, int32(4), calls.Load(), "three retries on top of the initial attempt")
}

func TestClient_Fetch_BackoffScheduleIsLinear(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fakeClock := clockwork.NewFakeClock()
	c := NewClient(Config{
		BaseURL:        srv.URL,
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: time.Second,
	}, nil, fakeClock, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan error, 1)
	go func() {
		_, err := c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
		done <- err
	}()

	// Each retry waits attempt number times the base delay: 1s, 2s, 3s.
	for attempt := 1; attempt <= 3; attempt++ {
		fakeClock.BlockUntil(1)
		require.Equal(t, int32(attempt), calls.Load())

		delay := time.Duration(attempt) * time.Second
		fakeClock.Advance(delay - time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(attempt), calls.Load(),
			"retry %d fired before its full %v delay", attempt, delay)
		fakeClock.Advance(time.Millisecond)
	}

	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_Fetch_NonTransientStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Fetch_CacheShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"icaoId":"KJFK"}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
	require.NoError(t, err)
	_, err = c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())

	stats := c.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	c.ClearCache()
	_, err = c.FetchMETAR(context.Background(), []string{"KJFK"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchComprehensive_IsolatesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		switch r.URL.Path {
		case "/metar":
			_, _ = w.Write([]byte(`[{"icaoId":"KJFK"}]`))
		case "/taf":
			w.WriteHeader(http.StatusForbidden)
		case "/pirep":
			_, _ = w.Write([]byte(`[{"aircraftRef":"B738","rawOb":"UA /OV JFK"}]`))
		case "/sigmet":
			w.WriteHeader(http.StatusBadRequest)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data := c.FetchComprehensive(context.Background(), []string{"KJFK"}, ComprehensiveOptions{})

	assert.Len(t, data.METAR, 1)
	assert.Empty(t, data.TAF, "a failed kind degrades to empty")
	assert.Len(t, data.PIREP, 1)
	assert.Empty(t, data.SIGMET)
	assert.Equal(t, []string{"KJFK"}, data.Stations)
	assert.False(t, data.Timestamp.IsZero())
}

func TestClient_FetchMultipleStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		switch r.URL.Query().Get("ids") {
		case "KJFK":
			_, _ = w.Write([]byte(`[{"icaoId":"KJFK","site":"New York/JFK"}]`))
		case "KBOS":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data := c.FetchMultipleStations(context.Background(), []string{"KJFK", "KBOS", "XXXX"})

	require.Len(t, data.Stations, 3)
	assert.Equal(t, []string{"KJFK", "KBOS", "XXXX"}, data.Route)

	require.NotNil(t, data.Stations["KJFK"].Info)
	assert.Equal(t, "New York/JFK", data.Stations["KJFK"].Info.Site)

	assert.Nil(t, data.Stations["KBOS"].Info)
	assert.Equal(t, "station not found", data.Stations["KBOS"].Error)

	assert.Nil(t, data.Stations["XXXX"].Info)
	assert.NotEmpty(t, data.Stations["XXXX"].Error)
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		switch r.URL.Path {
		case "/metar":
			_, _ = w.Write([]byte(`[
				{"icaoId":"KJFK","obsTime":1714144200,"rawOb":"KJFK 261510Z 24012KT 10SM TSRA FEW025"},
				{"icaoId":"KLGA","obsTime":1714144300,"rawOb":"KLGA 261510Z 24008KT 10SM CLR"}
			]`))
		case "/pirep":
			_, _ = w.Write([]byte(`[{"aircraftRef":"B738","obsTime":1714144500,"rawOb":"UA /OV JFK /TB MOD TSRA"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data := c.Search(context.Background(), "tsra", SearchOptions{Stations: []string{"KJFK", "KLGA"}})

	require.Len(t, data.Results, 2)
	assert.Equal(t, "METAR - KJFK", data.Results[0].Title)
	assert.Equal(t, "metar", data.Results[0].Kind)
	assert.Equal(t, int64(1714144200), data.Results[0].ObsTime)
	assert.Equal(t, "PIREP - B738", data.Results[1].Title)
	assert.Equal(t, int64(1714144500), data.Results[1].ObsTime)
	assert.Equal(t, "tsra", data.Query)
}

func TestClient_Search_SourceFailureKeepsOtherHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metar":
			w.Header().Set(headerContentType, contentTypeJSON)
			_, _ = w.Write([]byte(`[{"icaoId":"KJFK","rawOb":"KJFK 261510Z 24012KT 10SM TSRA FEW025"}]`))
		case "/pirep":
			w.WriteHeader(http.StatusForbidden)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data := c.Search(context.Background(), "tsra", SearchOptions{Stations: []string{"KJFK"}})

	require.Len(t, data.Results, 1, "a failed source must not discard the other source's hits")
	assert.Equal(t, "METAR - KJFK", data.Results[0].Title)
}

func TestClient_DecodedMETAR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"icaoId":"KJFK","temp":18.3,"dewp":12.1,"wdir":240,"wspd":12,"visib":"10+","rawOb":"KJFK 261510Z 24012KT 10SM FEW025 18/12 A3005"}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data, err := c.DecodedMETAR(context.Background(), "KJFK", 2)
	require.NoError(t, err)

	assert.Equal(t, "KJFK", data.Station)
	assert.Empty(t, data.Error)
	require.Len(t, data.Decoded, 1)
	assert.Equal(t, "KJFK", data.Decoded[0].Station)
	assert.Contains(t, data.Decoded[0].Visibility, "10+ miles")
	assert.Contains(t, data.Decoded[0].Summary, "No significant change expected.")
}

func TestClient_DecodedMETAR_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("No data available"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data, err := c.DecodedMETAR(context.Background(), "KXYZ", 2)
	require.NoError(t, err)

	assert.Equal(t, "No METAR data available", data.Error)
	assert.Empty(t, data.Raw)
	assert.Empty(t, data.Decoded)
}

func TestClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		if r.URL.Path == "/taf" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	status := c.HealthCheck(context.Background())

	assert.False(t, status.Healthy)
	assert.Equal(t, "healthy", status.Endpoints["metar"])
	assert.Contains(t, status.Endpoints["taf"], "unhealthy")
	assert.Equal(t, "healthy", status.Endpoints["stationinfo"])
	require.Len(t, status.Endpoints, 6)
}
