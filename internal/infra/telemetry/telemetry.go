package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arklim/social-platform-reading/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	requestCounter    prometheus.Counter
	sessionsStarted   prometheus.Counter
	sessionsEnded     *prometheus.CounterVec
	sessionsReclaimed prometheus.Counter
	pointsAwarded     prometheus.Counter
	sweepFailures     prometheus.Counter
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		requestCounter: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reading",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}),
		sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reading",
			Name:      "sessions_started_total",
			Help:      "Total number of sessions started",
		}),
		sessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reading",
			Name:      "sessions_ended_total",
			Help:      "Total number of sessions ended, by termination reason",
		}, []string{"reason"}),
		sessionsReclaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reading",
			Name:      "sessions_reclaimed_total",
			Help:      "Total number of stuck sessions reclaimed",
		}),
		pointsAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reading",
			Name:      "points_awarded_total",
			Help:      "Total reward points granted for completed sessions",
		}),
		sweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reading",
			Name:      "sweep_failures_total",
			Help:      "Total number of sessions the sweep failed to reclaim",
		}),
	}, nil
}

// RequestCounter exposes the HTTP request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.requestCounter
}

// SessionStarted increments the started sessions metric.
func (p *Provider) SessionStarted() {
	if p != nil {
		p.sessionsStarted.Inc()
	}
}

// SessionEnded increments the ended sessions metric for a termination reason.
func (p *Provider) SessionEnded(reason string) {
	if p != nil {
		p.sessionsEnded.WithLabelValues(reason).Inc()
	}
}

// SessionsReclaimed adds reclaimed sessions from a sweep pass.
func (p *Provider) SessionsReclaimed(count int) {
	if p != nil && count > 0 {
		p.sessionsReclaimed.Add(float64(count))
	}
}

// PointsAwarded adds granted reward points.
func (p *Provider) PointsAwarded(points int) {
	if p != nil && points > 0 {
		p.pointsAwarded.Add(float64(points))
	}
}

// SweepFailures adds failed reclaim attempts from a sweep pass.
func (p *Provider) SweepFailures(count int) {
	if p != nil && count > 0 {
		p.sweepFailures.Add(float64(count))
	}
}
