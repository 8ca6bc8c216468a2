// Package nwis fetches daily mean discharge from the USGS National Water
// Information System daily values service.
package nwis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/qtwsa/internal/htmlutil"
	"github.com/lox/qtwsa/internal/httputil"
	"github.com/lox/qtwsa/internal/metrics"
	"github.com/lox/qtwsa/internal/swot"
)

const (
	DefaultURL = "https://waterservices.usgs.gov/nwis/dv/"

	dischargeParameter = "00060"
	meanStatistic      = "00003"
)

// ErrNoDischarge is returned when the service has no discharge series for
// the site.
var ErrNoDischarge = errors.New("no discharge series")

// DailyValue is one daily mean discharge in cubic metres per second.
type DailyValue struct {
	Date      time.Time
	Discharge float64
}

type Client struct {
	baseURL    string
	client     *http.Client
	maxElapsed time.Duration
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:    baseURL,
		client:     httputil.NewClient(),
		maxElapsed: time.Minute,
	}
}

type dvResponse struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	Variable struct {
		VariableCode []struct {
			Value string `json:"value"`
		} `json:"variableCode"`
		NoDataValue *float64 `json:"noDataValue"`
	} `json:"variable"`
	Values []struct {
		Value []struct {
			Value    string `json:"value"`
			DateTime string `json:"dateTime"`
		} `json:"value"`
	} `json:"values"`
}

func (c *Client) dailyValuesURL(siteID string, start, end time.Time) string {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("sites", siteID)
	q.Set("startDT", start.Format(time.DateOnly))
	q.Set("endDT", end.Format(time.DateOnly))
	q.Set("parameterCd", dischargeParameter)
	q.Set("statCd", meanStatistic)
	q.Set("siteStatus", "all")
	return c.baseURL + "?" + q.Encode()
}

// FetchDailyDischarge returns daily mean discharge for start..end converted
// from cubic feet to cubic metres per second.
func (c *Client) FetchDailyDischarge(ctx context.Context, siteID string, start, end time.Time) ([]DailyValue, error) {
	reqURL := c.dailyValuesURL(siteID, start, end)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		began := time.Now()
		resp, err := c.client.Do(req)
		metrics.NWISAPILatency.Observe(time.Since(began).Seconds())
		if err != nil {
			metrics.NWISAPICallsTotal.WithLabelValues("error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch daily values: %w", err))
		}
		defer resp.Body.Close()
		metrics.NWISAPICallsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("fetch daily values: status %d", resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNoDischarge)
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(fmt.Errorf("fetch daily values: status %d: %s", resp.StatusCode, htmlutil.ErrorSummary(b, 200)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	return parseDailyValues(body)
}

func parseDailyValues(body []byte) ([]DailyValue, error) {
	var data dvResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	for _, ts := range data.Value.TimeSeries {
		if !isDischarge(ts) {
			continue
		}
		var out []DailyValue
		for _, block := range ts.Values {
			for _, v := range block.Value {
				q, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
				if err != nil {
					continue
				}
				if ts.Variable.NoDataValue != nil && q == *ts.Variable.NoDataValue {
					continue
				}
				date, err := parseDateTime(v.DateTime)
				if err != nil {
					return nil, err
				}
				out = append(out, DailyValue{Date: date, Discharge: q * swot.CFSToCMS})
			}
		}
		return out, nil
	}
	return nil, ErrNoDischarge
}

func isDischarge(ts timeSeries) bool {
	for _, code := range ts.Variable.VariableCode {
		if code.Value == dischargeParameter {
			return true
		}
	}
	return false
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05.000-07:00", time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse dateTime %q", s)
}
