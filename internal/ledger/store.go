package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/onauc-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/onauc-backend/pkg/errors"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/metrics"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 20 * time.Millisecond
	maxBackoff         = 500 * time.Millisecond
	jitterPercent      = 25
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StoreParams configure the atomic-unit runner.
type StoreParams struct {
	DB          txRunner
	Logger      *logger.Logger
	Metrics     *metrics.AuctionMetrics
	MaxAttempts int
	BaseDelay   time.Duration
}

// Store runs atomic units against a single listing and replays them when the
// database reports a transient conflict.
type Store struct {
	db          txRunner
	logg        *logger.Logger
	metrics     *metrics.AuctionMetrics
	maxAttempts int
	baseDelay   time.Duration
}

func NewStore(params StoreParams) (*Store, error) {
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := params.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	return &Store{
		db:          params.DB,
		logg:        params.Logger,
		metrics:     params.Metrics,
		maxAttempts: attempts,
		baseDelay:   delay,
	}, nil
}

// Atomically executes fn in one transaction. The transaction is always
// committed or rolled back before Atomically returns. Transient conflicts
// replay fn from scratch up to the configured attempt count, after which a
// CONFLICT error is returned. Any other error aborts immediately.
func (s *Store) Atomically(ctx context.Context, operation string, fn func(repo *Repository) error) error {
	backoff := retry.NewExponential(s.baseDelay)
	backoff = retry.WithCappedDuration(maxBackoff, backoff)
	backoff = retry.WithJitterPercent(jitterPercent, backoff)
	backoff = retry.WithMaxRetries(uint64(s.maxAttempts-1), backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.metrics.IncConflictRetry(operation)
		}
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return fn(NewRepository(tx))
		})
		if isRetryable(err) {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"operation": operation,
					"attempt":   attempt,
					"error":     err.Error(),
				})
				s.logg.Warn(logCtx, "atomic unit conflict, retrying")
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("%s did not commit after %d attempts", operation, attempt))
	}
	return err
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrStaleListing) || dbpkg.IsTransientConflict(err)
}
