package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/your-org/discoveryflow/pkg/storage/objectstore"
)

// Severity classifies an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// ObjectCAS is the slice of the object store the logger needs: read the
// current contents with a version token, write back conditioned on it.
type ObjectCAS interface {
	Read(ctx context.Context, bucket, key string) ([]byte, objectstore.ObjectInfo, error)
	Write(ctx context.Context, bucket, key string, data []byte, opts objectstore.WriteOptions) error
}

// Config locates the shared log object and bounds the append retries.
type Config struct {
	Bucket         string
	ObjectKey      string
	MaxAttempts    int
	InitialBackoff time.Duration
	// OnConflict runs once per lost write race, before the backoff sleep.
	OnConflict func()
}

// Logger appends human-readable entries to one shared log object. Many
// invocations write to the same object concurrently; every write is
// conditioned on the version token observed at read time, so a committed
// entry is never lost or reordered relative to entries committed before it.
type Logger struct {
	store  ObjectCAS
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New constructs an audit Logger.
func New(store ObjectCAS, cfg Config, logger *zap.Logger) *Logger {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	return &Logger{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// FormatEntry renders one log line.
func FormatEntry(ts time.Time, severity Severity, message string) string {
	return fmt.Sprintf("[%s UTC] [%s]: %s\n", ts.UTC().Format("2006-01-02 15:04:05"), severity, message)
}

// Append durably appends one entry, best effort. A lost write race is
// retried from a fresh read with increasing backoff, up to MaxAttempts.
// Any other storage failure is terminal for this entry. The returned error
// is diagnostic only: audit logging never aborts the caller's invocation,
// so callers log it and move on.
func (l *Logger) Append(ctx context.Context, severity Severity, message string) error {
	entry := FormatEntry(l.now(), severity, message)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.InitialBackoff

	attempts := 0
	commit := func() (struct{}, error) {
		attempts++
		return struct{}{}, l.appendOnce(ctx, entry)
	}

	notify := func(err error, wait time.Duration) {
		if l.cfg.OnConflict != nil {
			l.cfg.OnConflict()
		}
		l.logger.Warn("audit append lost write race, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
		)
	}

	_, err := backoff.Retry(ctx, commit,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(l.cfg.MaxAttempts)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		l.logger.Error("audit append failed, entry lost",
			zap.String("severity", string(severity)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return err
	}

	l.logger.Debug("audit entry appended", zap.Int("attempts", attempts))
	return nil
}

// appendOnce runs one read/mutate/write-if-unchanged cycle. It returns a
// retryable error only for a version-token conflict; everything else is
// marked permanent.
func (l *Logger) appendOnce(ctx context.Context, entry string) error {
	data, info, err := l.store.Read(ctx, l.cfg.Bucket, l.cfg.ObjectKey)
	token := ""
	switch {
	case err == nil:
		token = info.ETag
	case errors.Is(err, objectstore.ErrNotFound):
		data = nil
	default:
		return backoff.Permanent(fmt.Errorf("read log object: %w", err))
	}

	buf := make([]byte, 0, len(data)+len(entry))
	buf = append(buf, data...)
	buf = append(buf, entry...)

	opts := objectstore.WriteOptions{ContentType: "text/plain"}
	if token == "" {
		opts.IfAbsent = true
	} else {
		opts.MatchToken = token
	}

	if err := l.store.Write(ctx, l.cfg.Bucket, l.cfg.ObjectKey, buf, opts); err != nil {
		if errors.Is(err, objectstore.ErrPreconditionFailed) {
			return err
		}
		return backoff.Permanent(fmt.Errorf("write log object: %w", err))
	}
	return nil
}
