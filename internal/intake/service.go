package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/discoveryflow/internal/audit"
)

// Store is the storage capability the router needs.
type Store interface {
	Remover
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
}

// EventPublisher emits processed-object events.
type EventPublisher interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
}

// Service routes one notification through the pipeline stages. Each event
// is handled by an independent, stateless invocation; the stages run
// sequentially and every stage failure is contained here, so one malformed
// object never fails the invocation ambiguously.
type Service struct {
	store       Store
	policy      *Policy
	validator   *Validator
	transcriber *Transcriber
	audit       AuditLog
	publisher   EventPublisher
	metrics     Metrics
	logger      *zap.Logger
	scratchDir  string
	tracer      trace.Tracer
}

type Params struct {
	Store       Store
	Policy      *Policy
	Validator   *Validator
	Transcriber *Transcriber
	Audit       AuditLog
	Publisher   EventPublisher
	Metrics     Metrics
	Logger      *zap.Logger
	ScratchDir  string
}

// NewService constructs the event router.
func NewService(p Params) *Service {
	if p.Metrics == nil {
		p.Metrics = NoopMetrics{}
	}
	if p.ScratchDir == "" {
		p.ScratchDir = os.TempDir()
	}
	return &Service{
		store:       p.Store,
		policy:      p.Policy,
		validator:   p.Validator,
		transcriber: p.Transcriber,
		audit:       p.Audit,
		publisher:   p.Publisher,
		metrics:     p.Metrics,
		logger:      p.Logger,
		scratchDir:  p.ScratchDir,
		tracer:      otel.Tracer("intake"),
	}
}

// ProcessedEvent is published after an invocation completes.
type ProcessedEvent struct {
	Bucket         string    `json:"bucket"`
	Object         string    `json:"object"`
	Outcome        string    `json:"outcome"`
	Category       string    `json:"category,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// HandleEvent runs one invocation. Only finalized events are processed;
// anything else is a side-effect-free no-op.
func (s *Service) HandleEvent(ctx context.Context, ev Event) {
	if ev.Type != EventTypeFinalized {
		s.logger.Debug("ignoring event", zap.String("type", ev.Type))
		s.metrics.IncEvent("ignored")
		return
	}

	ctx, span := s.tracer.Start(ctx, "intake.handle_event",
		trace.WithAttributes(
			attribute.String("bucket", ev.Bucket),
			attribute.String("object", ev.Name),
		),
	)
	defer span.End()

	out := s.process(ctx, ev)
	s.metrics.IncEvent(out.Outcome)
	s.publish(ctx, ev, out)
}

// process sequences the stages: policy first (cheapest, prevents wasted
// downloads), then validation, then transcription.
func (s *Service) process(ctx context.Context, ev Event) ProcessedEvent {
	out := ProcessedEvent{
		Bucket:      ev.Bucket,
		Object:      ev.Name,
		ProcessedAt: time.Now().UTC(),
	}

	deleted, err := s.policy.Enforce(ctx, ev)
	if err != nil {
		s.logger.Error("policy enforcement failed",
			zap.String("object", ev.Name), zap.Error(err))
		out.Outcome = "error"
		out.Detail = err.Error()
		return out
	}
	if deleted {
		s.metrics.IncDeletion("policy_violation")
		out.Outcome = "deleted"
		out.Detail = "object uploaded at bucket root"
		return out
	}

	verdict, err := s.validate(ctx, ev)
	switch {
	case err != nil:
		// Transient staging failure: the object stays in place and the
		// invocation continues without a certification.
		s.logger.Error("validation stage failed",
			zap.String("object", ev.Name), zap.Error(err))
	default:
		out.Category = string(verdict.Category)
		s.metrics.IncValidation(string(verdict.Category), verdict.Valid)
		if !verdict.Valid {
			s.logger.Warn("validation failed, deleting object",
				zap.String("object", ev.Name),
				zap.String("verdict", verdict.Message),
			)
			s.deleteInvalid(ctx, ev, verdict)
			s.metrics.IncDeletion("validation_failure")
			out.Outcome = "deleted"
			out.Detail = verdict.Message
			return out
		}
		s.logger.Info("object certified", zap.String("object", ev.Name),
			zap.String("category", string(verdict.Category)))
	}

	s.transcriber.MaybeTranscribe(ctx, ev)

	out.Outcome = "processed"
	if IsAudio(ev.Name) {
		out.TranscriptPath = TranscriptPath(ev.Name)
	}
	return out
}

// validate stages the object into a private scratch directory and runs the
// validator over it. Scratch storage is per invocation and removed before
// returning.
func (s *Service) validate(ctx context.Context, ev Event) (Verdict, error) {
	dir, err := os.MkdirTemp(s.scratchDir, "intake-*")
	if err != nil {
		return Verdict{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	localPath := filepath.Join(dir, path.Base(ev.Name))
	if err := s.store.DownloadFile(ctx, ev.Bucket, ev.Name, localPath); err != nil {
		return Verdict{}, fmt.Errorf("download %s: %w", ev.Name, err)
	}
	s.logger.Debug("downloaded object for validation",
		zap.String("object", ev.Name), zap.String("local_path", localPath))

	return s.validator.Validate(ctx, localPath, ev.Name), nil
}

// deleteInvalid removes a certified-corrupt or unsupported object. Every
// deletion is paired with an audit entry stating the reason.
func (s *Service) deleteInvalid(ctx context.Context, ev Event, v Verdict) {
	if err := s.store.Remove(ctx, ev.Bucket, ev.Name); err != nil {
		s.logger.Error("failed to delete invalid object",
			zap.String("object", ev.Name), zap.Error(err))
		return
	}
	msg := fmt.Sprintf("Deleted corrupted or invalid file %s: %s", ev.Name, v.Message)
	if err := s.audit.Append(ctx, audit.SeverityError, msg); err != nil {
		s.logger.Warn("audit append failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, ev Event, out ProcessedEvent) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(out)
	if err != nil {
		s.logger.Error("marshal processed event", zap.Error(err))
		return
	}

	headers := map[string]string{
		"event_id":   uuid.NewString(),
		"event_type": "intake.processed",
	}
	if err := s.publisher.Publish(ctx, []byte(ev.Name), payload, headers); err != nil {
		s.logger.Error("publish processed event failed",
			zap.String("object", ev.Name), zap.Error(err))
	}
}
