package qualtrics

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultRequestAttempts = 3
	defaultRequestDelay    = time.Second
)

// Exporter runs the three step export protocol: request the export, wait for
// it and download the resulting archive. Requesting and downloading are
// retried like the status polls when the failure is retryable.
type Exporter struct {
	client   *Client
	poller   *Poller
	attempts int
	delay    time.Duration
	log      *zap.SugaredLogger
}

type ExporterOption func(e *Exporter)

func WithRequestAttempts(attempts int) ExporterOption {
	return func(e *Exporter) {
		if attempts > 0 {
			e.attempts = attempts
		}
	}
}

// WithRequestDelay sets the constant pause between request attempts.
func WithRequestDelay(delay time.Duration) ExporterOption {
	return func(e *Exporter) {
		if delay > 0 {
			e.delay = delay
		}
	}
}

func NewExporter(client *Client, poller *Poller, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		client:   client,
		poller:   poller,
		attempts: defaultRequestAttempts,
		delay:    defaultRequestDelay,
		log:      zap.S().Named("exporter"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Exporter) RequestExport(ctx context.Context, surveyID string, since *time.Time) (*ExportHandle, error) {
	var handle *ExportHandle
	err := e.retry(ctx, "request export", surveyID, func(ctx context.Context) error {
		var err error
		handle, err = e.client.CreateExport(ctx, surveyID, since)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Infow("export requested", "survey_id", surveyID, "export_id", handle.ExportID)
	return handle, nil
}

func (e *Exporter) AwaitCompletion(ctx context.Context, handle *ExportHandle) (*CompletedExport, error) {
	return e.poller.AwaitCompletion(ctx, handle)
}

func (e *Exporter) Download(ctx context.Context, export *CompletedExport) ([]byte, error) {
	var data []byte
	err := e.retry(ctx, "download export", export.SurveyID, func(ctx context.Context) error {
		var err error
		data, err = e.client.Download(ctx, export.FileURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Infow("export downloaded", "survey_id", export.SurveyID, "bytes", len(data))
	return data, nil
}

func (e *Exporter) retry(ctx context.Context, op, surveyID string, fn func(context.Context) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(e.attempts-1), retry.NewConstant(e.delay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			e.log.Warnw("retrying "+op, "survey_id", surveyID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}
