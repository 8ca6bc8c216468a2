// Package narrative writes short plain-language summaries of a gauge's
// derived discharge using an LLM, caching them on disk.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/qtwsa/internal/discharge"
	"github.com/lox/qtwsa/internal/metrics"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("narratives disabled: OPENAI_API_KEY not set")

const systemPrompt = `You are a hydrologist writing for a public dashboard. Summarise the discharge
series for one river gauge in at most three sentences. Mention the seasonal
pattern, how well predictions agree with observations when observations exist,
and the feasibility class. Use m³/s. Do not speculate beyond the numbers given.`

// Summarizer turns a prompt into text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

type OpenAISummarizer struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAISummarizer reads OPENAI_API_KEY for authentication.
func NewOpenAISummarizer() (*OpenAISummarizer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrDisabled
	}
	return &OpenAISummarizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Generator serves cached narratives, asking the summarizer on a miss.
type Generator struct {
	summarizer Summarizer
	cache      *Cache
	logger     *slog.Logger
}

// NewGenerator returns a generator; a nil summarizer disables generation but
// still serves cached text.
func NewGenerator(summarizer Summarizer, cache *Cache, logger *slog.Logger) *Generator {
	return &Generator{summarizer: summarizer, cache: cache, logger: logger}
}

func (g *Generator) Narrative(ctx context.Context, req discharge.Request, result *discharge.Result) (string, error) {
	key := CacheKey(result.Strategy, req)
	if text, ok := g.cache.Get(key); ok {
		metrics.NarrativesGenerated.WithLabelValues("hit").Inc()
		return text, nil
	}
	if g.summarizer == nil {
		return "", ErrDisabled
	}

	start := time.Now()
	text, err := g.summarizer.Summarize(ctx, BuildPrompt(req, result))
	if err != nil {
		metrics.NarrativesGenerated.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.NarrativesGenerated.WithLabelValues("generated").Inc()
	g.logger.Info("narrative generated", "site", req.SiteID, "chars", len(text), "elapsed", time.Since(start).Round(time.Millisecond))

	if err := g.cache.Set(key, text); err != nil {
		g.logger.Warn("narrative cache write failed", "key", key, "error", err)
	}
	return text, nil
}

// BuildPrompt summarises the records into the figures the model may cite.
func BuildPrompt(req discharge.Request, result *discharge.Result) string {
	var (
		predSum, obsSum   float64
		predN, obsN, conf int
		peakMonth         = make(map[int]float64)
		peakCount         = make(map[int]int)
	)
	for _, r := range result.Records {
		if r.Predicted.Valid {
			predSum += r.Predicted.Float64
			predN++
			peakMonth[int(r.Month)] += r.Predicted.Float64
			peakCount[int(r.Month)]++
		}
		if r.PredictedConfident.Valid {
			conf++
		}
		if r.Observed.Valid {
			obsSum += r.Observed.Float64
			obsN++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Gauge %s (strategy %s).\n", result.Site.SiteID, result.Strategy)
	fmt.Fprintf(&b, "Models: regionalization %s, spatial %s, temporal %s.\n",
		req.Selection.Regionalization, req.Selection.Spatial, req.Selection.Temporal)
	if n := len(result.Records); n > 0 {
		fmt.Fprintf(&b, "Period: %s to %s, %d records.\n",
			result.Records[0].Date.Format("Jan 2006"), result.Records[n-1].Date.Format("Jan 2006"), n)
	}
	if predN > 0 {
		fmt.Fprintf(&b, "Mean predicted discharge: %.2f m³/s over %d values; %d values in confident months.\n", predSum/float64(predN), predN, conf)
		wettest, driest := 0, 0
		for m := 1; m <= 12; m++ {
			if peakCount[m] == 0 {
				continue
			}
			avg := peakMonth[m] / float64(peakCount[m])
			if wettest == 0 || avg > peakMonth[wettest]/float64(peakCount[wettest]) {
				wettest = m
			}
			if driest == 0 || avg < peakMonth[driest]/float64(peakCount[driest]) {
				driest = m
			}
		}
		fmt.Fprintf(&b, "Highest mean month: %s; lowest: %s.\n", time.Month(wettest), time.Month(driest))
	}
	if obsN > 0 {
		fmt.Fprintf(&b, "Mean observed discharge: %.2f m³/s over %d values.\n", obsSum/float64(obsN), obsN)
	} else {
		b.WriteString("No observed discharge is available.\n")
	}
	if a := result.Annotation; a != nil {
		fmt.Fprintf(&b, "Spatial feasibility: %s.", a.Spatial.Label())
		if a.TemporalCount.Valid {
			fmt.Fprintf(&b, " Months with confident results: %d of 12.", a.TemporalCount.Int64)
		}
		b.WriteString("\n")
	}
	return b.String()
}
