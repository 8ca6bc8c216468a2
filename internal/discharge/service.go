package discharge

import (
	"context"
	"log/slog"
	"time"

	"github.com/lox/qtwsa/internal/metrics"
)

// Response is what the presentation layer renders: either a result or an
// empty placeholder with a reason code.
type Response struct {
	Result *Result
	Reason string
	Err    error
}

func (r Response) Empty() bool {
	return r.Result == nil
}

// Service is the boundary between the presentation layer and the strategies.
// Domain errors are converted into empty responses here.
type Service struct {
	strategy Strategy
	logger   *slog.Logger
}

func NewService(strategy Strategy, logger *slog.Logger) *Service {
	return &Service{strategy: strategy, logger: logger}
}

func (s *Service) Strategy() Strategy {
	return s.strategy
}

func (s *Service) Handle(ctx context.Context, req Request) Response {
	name := s.strategy.Name()
	start := time.Now()

	result, err := s.strategy.Derive(ctx, req)
	elapsed := time.Since(start)
	metrics.DerivationLatency.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		reason := Reason(err)
		metrics.DerivationsTotal.WithLabelValues(name, reason).Inc()
		attrs := []any{"strategy", name, "site", req.SiteID, "reason", reason, "error", err, "elapsed", elapsed}
		if reason == "internal" || reason == "upstream_error" {
			s.logger.Error("derivation failed", attrs...)
		} else {
			s.logger.Info("derivation returned no result", attrs...)
		}
		return Response{Reason: reason, Err: err}
	}

	metrics.DerivationsTotal.WithLabelValues(name, "ok").Inc()
	s.logger.Info("derivation complete",
		"strategy", name,
		"site", result.Site.SiteID,
		"comid", result.Site.CorrelationID,
		"records", len(result.Records),
		"elapsed", elapsed,
	)
	return Response{Result: result}
}
