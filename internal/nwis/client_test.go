package nwis

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

const sampleResponse = `{
  "value": {
    "timeSeries": [
      {
        "variable": {
          "variableCode": [{"value": "00060"}],
          "noDataValue": -999999.0
        },
        "values": [
          {
            "value": [
              {"value": "100", "qualifiers": ["A"], "dateTime": "2014-04-02T00:00:00.000"},
              {"value": "-999999", "qualifiers": ["A"], "dateTime": "2014-04-03T00:00:00.000"},
              {"value": "Ice", "qualifiers": ["P"], "dateTime": "2014-04-04T00:00:00.000"},
              {"value": "35.5", "qualifiers": ["A"], "dateTime": "2014-04-05T00:00:00.000"}
            ]
          }
        ]
      }
    ]
  }
}`

func TestFetchDailyDischarge(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	start := time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	values, err := client.FetchDailyDischarge(context.Background(), "01013500", start, end)
	if err != nil {
		t.Fatalf("FetchDailyDischarge: %v", err)
	}

	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
	if !values[0].Date.Equal(time.Date(2014, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("values[0].Date = %v", values[0].Date)
	}
	if math.Abs(values[0].Discharge-2.8316846592) > 1e-9 {
		t.Errorf("values[0].Discharge = %v, want 2.8316846592", values[0].Discharge)
	}

	want := map[string]string{
		"sites":       "01013500",
		"startDT":     "2014-04-01",
		"endDT":       "2021-01-01",
		"parameterCd": "00060",
		"statCd":      "00003",
		"format":      "json",
	}
	for k, v := range want {
		if got := gotQuery.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
}

func TestFetchDailyDischarge_NoDischargeSeries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, "No sites found"},
		{"other parameter only", http.StatusOK, `{"value":{"timeSeries":[{"variable":{"variableCode":[{"value":"00065"}]},"values":[]}]}}`},
		{"empty", http.StatusOK, `{"value":{"timeSeries":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).FetchDailyDischarge(context.Background(), "1", time.Now(), time.Now())
			if !errors.Is(err, ErrNoDischarge) {
				t.Errorf("err = %v, want ErrNoDischarge", err)
			}
		})
	}
}

func TestFetchDailyDischarge_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	values, err := NewClient(server.URL).FetchDailyDischarge(context.Background(), "1", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("FetchDailyDischarge: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("len(values) = %d, want 2", len(values))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchDailyDischarge_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("<html><body><h1>Bad Request</h1><p>invalid site</p></body></html>"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchDailyDischarge(context.Background(), "x", time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchDailyDischarge_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL).FetchDailyDischarge(ctx, "1", time.Now(), time.Now())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
