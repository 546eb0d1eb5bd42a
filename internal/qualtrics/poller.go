package qualtrics

import (
	"context"
	"fmt"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 20
	defaultPollJitter   = 100 * time.Millisecond
)

// StatusSource reports the progress of an export job.
type StatusSource interface {
	ExportStatus(ctx context.Context, statusURL string) (*ExportStatus, error)
}

type PollerOption func(p *Poller)

func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithPollAttempts(attempts int) PollerOption {
	return func(p *Poller) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
	}
}

// WithPollJitter sets the standard deviation applied to the poll interval.
func WithPollJitter(stdev time.Duration) PollerOption {
	return func(p *Poller) {
		if stdev >= 0 {
			p.jitter = stdev
		}
	}
}

// Poller waits for export jobs to complete, polling at a fixed interval for a
// bounded number of attempts.
type Poller struct {
	source      StatusSource
	interval    time.Duration
	maxAttempts int
	jitter      time.Duration
}

func NewPoller(source StatusSource, opts ...PollerOption) *Poller {
	p := &Poller{
		source:      source,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultPollAttempts,
		jitter:      defaultPollJitter,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AwaitCompletion polls the job status until it reports 100%.
// Retryable failures use up an attempt and polling goes on; any other failure
// aborts. Running out of attempts yields an *ExportTimeoutError.
func (p *Poller) AwaitCompletion(ctx context.Context, handle *ExportHandle) (*CompletedExport, error) {
	logger := zap.S().Named("poller").With("survey_id", handle.SurveyID, "export_id", handle.ExportID)

	ticker := jitterbug.New(p.interval, &jitterbug.Norm{Stdev: p.jitter})
	defer ticker.Stop()

	var lastPercent float64
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := p.source.ExportStatus(ctx, handle.StatusURL)
		if err != nil {
			if !IsRetryable(err) {
				return nil, fmt.Errorf("polling export of survey %s: %w", handle.SurveyID, err)
			}
			logger.Warnw("export status check failed", "attempt", attempt, "error", err)
			continue
		}

		lastPercent = status.PercentComplete
		logger.Debugw("export progress", "attempt", attempt, "percent", status.PercentComplete)
		if status.Done() {
			if status.FileURL == "" {
				return nil, fmt.Errorf("polling export of survey %s: %w: completed without file url", handle.SurveyID, ErrMalformedResponse)
			}
			return &CompletedExport{SurveyID: handle.SurveyID, FileURL: status.FileURL}, nil
		}
	}

	return nil, &ExportTimeoutError{SurveyID: handle.SurveyID, Attempts: p.maxAttempts, Percent: lastPercent}
}
