package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/idrk/project-data-sync/internal/podio"
	"github.com/idrk/project-data-sync/internal/transform"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 20
	defaultDelay    = time.Second
)

// LoadError is a record that could not be created.
type LoadError struct {
	Record   *transform.Record
	Attempts int
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("record %s not loaded after %d attempts: %v", e.Record.SourceID, e.Attempts, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type Result struct {
	Loaded  int
	ItemIDs []int64
	Failed  []*LoadError
}

type Loader struct {
	store     podio.RecordStore
	attempts  int
	delay     time.Duration
	retryable func(error) bool
	log       *zap.SugaredLogger
}

type LoaderOption func(l *Loader)

func WithAttempts(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.attempts = n
		}
	}
}

// WithDelay sets the constant pause between attempts.
func WithDelay(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.delay = d
		}
	}
}

func NewLoader(store podio.RecordStore, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:     store,
		attempts:  defaultAttempts,
		delay:     defaultDelay,
		retryable: podio.IsRetryable,
		log:       zap.S().Named("loader"),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load creates every record in app appID. A record that keeps failing is
// logged with its full payload and loading moves on to the next one. Load
// only stops early when ctx is done.
func (l *Loader) Load(ctx context.Context, appID int64, records []*transform.Record) *Result {
	result := &Result{}
	for _, rec := range records {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, &LoadError{Record: rec, Err: ctx.Err()})
			continue
		}

		id, attempts, err := l.create(ctx, appID, rec)
		if err != nil {
			l.log.Errorw("failed to load record", "app_id", appID, "attempts", attempts, "error", err, "record", rec.String())
			result.Failed = append(result.Failed, &LoadError{Record: rec, Attempts: attempts, Err: err})
			continue
		}

		l.log.Debugw("record loaded", "app_id", appID, "item_id", id, "source_id", rec.SourceID, "attempts", attempts)
		result.Loaded++
		result.ItemIDs = append(result.ItemIDs, id)
	}

	l.log.Infow("load finished", "app_id", appID, "loaded", result.Loaded, "failed", len(result.Failed))
	return result
}

func (l *Loader) create(ctx context.Context, appID int64, rec *transform.Record) (int64, int, error) {
	var (
		id       int64
		attempts int
	)
	backoff := retry.WithMaxRetries(uint64(l.attempts-1), retry.NewConstant(l.delay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		var err error
		id, err = l.store.CreateRecord(ctx, appID, rec)
		if err == nil {
			return nil
		}
		if l.retryable(err) {
			l.log.Warnw("retrying record", "app_id", appID, "source_id", rec.SourceID, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	return id, attempts, err
}
