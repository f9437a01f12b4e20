package intake

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/discoveryflow/internal/audit"
	"github.com/your-org/discoveryflow/pkg/speech"
	"github.com/your-org/discoveryflow/pkg/storage/objectstore"
)

// audioExtensions are the kinds the recognizer accepts.
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".m4a":  {},
	".ogg":  {},
}

// noTranscript is written when the recognizer returns no segments, so the
// artifact is well formed even when there is nothing to transcribe.
const noTranscript = "[No transcription available]"

// auditGraceTimeout bounds the failure-entry append after the invocation's
// own transcription deadline is already spent.
const auditGraceTimeout = 30 * time.Second

// ArtifactWriter stores derived artifacts from local staging files.
type ArtifactWriter interface {
	UploadFile(ctx context.Context, bucket, key, localPath string, opts objectstore.WriteOptions) error
}

// Transcriber derives plain-text transcripts for audio objects. It logs its
// own outcome to the audit log and never fails the invocation; a failed
// transcription is not evidence of a corrupt source, so the source object
// is never deleted here.
type Transcriber struct {
	recognizer   speech.Recognizer
	store        ArtifactWriter
	audit        AuditLog
	metrics      Metrics
	logger       *zap.Logger
	outputBucket string
	timeout      time.Duration
}

type TranscriberParams struct {
	Recognizer   speech.Recognizer
	Store        ArtifactWriter
	Audit        AuditLog
	Metrics      Metrics
	Logger       *zap.Logger
	OutputBucket string
	Timeout      time.Duration
}

// NewTranscriber constructs a Transcriber.
func NewTranscriber(p TranscriberParams) *Transcriber {
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Minute
	}
	if p.Metrics == nil {
		p.Metrics = NoopMetrics{}
	}
	return &Transcriber{
		recognizer:   p.Recognizer,
		store:        p.Store,
		audit:        p.Audit,
		metrics:      p.Metrics,
		logger:       p.Logger,
		outputBucket: p.OutputBucket,
		timeout:      p.Timeout,
	}
}

// TranscriptPath derives the artifact key for a source object: the source
// key with its extension dropped and ".txt" appended.
func TranscriptPath(name string) string {
	return strings.TrimSuffix(name, objectExt(name)) + ".txt"
}

// IsAudio reports whether the object qualifies for transcription.
func IsAudio(name string) bool {
	_, ok := audioExtensions[strings.ToLower(objectExt(name))]
	return ok
}

// MaybeTranscribe transcribes the object if it is audio. Non-audio objects
// return immediately with only a debug trace, keeping the audit log free of
// noise.
func (t *Transcriber) MaybeTranscribe(ctx context.Context, ev Event) {
	if !IsAudio(ev.Name) {
		t.logger.Debug("skipping transcription for non-audio object",
			zap.String("object", ev.Name),
		)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	uri := ev.URI()
	derived := TranscriptPath(ev.Name)
	t.logger.Info("transcribing audio object",
		zap.String("uri", uri),
		zap.String("artifact", derived),
	)

	if err := t.transcribe(tctx, uri, derived); err != nil {
		t.metrics.IncTranscription("failed")
		t.logger.Error("transcription failed", zap.String("uri", uri), zap.Error(err))

		// The failure may be tctx's own deadline expiring; the ERROR entry
		// must still commit, so it gets a fresh bound detached from the
		// expired one.
		actx, acancel := context.WithTimeout(context.WithoutCancel(ctx), auditGraceTimeout)
		defer acancel()
		msg := fmt.Sprintf("Speech-to-text failed for %s: %v", uri, err)
		if aerr := t.audit.Append(actx, audit.SeverityError, msg); aerr != nil {
			t.logger.Warn("audit append failed", zap.Error(aerr))
		}
		return
	}
	t.metrics.IncTranscription("ok")
}

// transcribe runs the recognize call, stages the transcript locally,
// uploads the artifact, and records the success entry. Upload and success
// entry are a pair: if either fails the caller writes one ERROR entry
// instead.
func (t *Transcriber) transcribe(ctx context.Context, uri, derived string) error {
	segments, err := t.recognizer.Recognize(ctx, uri)
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Transcript)
	}
	transcript := strings.TrimSpace(strings.Join(parts, "\n"))
	if transcript == "" {
		transcript = noTranscript
	}

	staged, err := os.CreateTemp("", "transcript-*.txt")
	if err != nil {
		return fmt.Errorf("stage transcript: %w", err)
	}
	defer os.Remove(staged.Name())
	if _, err := staged.WriteString(transcript); err != nil {
		staged.Close()
		return fmt.Errorf("stage transcript: %w", err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("stage transcript: %w", err)
	}

	opts := objectstore.WriteOptions{ContentType: "text/plain"}
	if err := t.store.UploadFile(ctx, t.outputBucket, derived, staged.Name(), opts); err != nil {
		return fmt.Errorf("upload transcript: %w", err)
	}

	msg := fmt.Sprintf("Transcribed %s -> s3://%s/%s", uri, t.outputBucket, derived)
	if err := t.audit.Append(ctx, audit.SeverityInfo, msg); err != nil {
		return fmt.Errorf("record transcription: %w", err)
	}
	return nil
}
