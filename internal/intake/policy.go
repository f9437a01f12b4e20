package intake

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/discoveryflow/internal/audit"
)

// Remover deletes objects from the store.
type Remover interface {
	Remove(ctx context.Context, bucket, key string) error
}

// AuditLog is the slice of the audit logger the pipeline writes to.
type AuditLog interface {
	Append(ctx context.Context, severity audit.Severity, message string) error
}

// Policy rejects objects that cannot be attributed to a case folder. The
// repository's primary key is a folder (case/matter), so a root-level
// object has no home and is removed outright.
type Policy struct {
	store  Remover
	audit  AuditLog
	logger *zap.Logger
}

// NewPolicy constructs the folder policy enforcer.
func NewPolicy(store Remover, auditLog AuditLog, logger *zap.Logger) *Policy {
	return &Policy{store: store, audit: auditLog, logger: logger}
}

// Enforce checks the object path and deletes root-level objects. It is a
// pure predicate over the path string; content is never opened. The
// returned bool reports whether the object was deleted.
func (p *Policy) Enforce(ctx context.Context, ev Event) (bool, error) {
	if strings.Contains(ev.Name, "/") {
		p.logger.Debug("object is inside a folder, continuing",
			zap.String("object", ev.Name),
		)
		return false, nil
	}

	if err := p.store.Remove(ctx, ev.Bucket, ev.Name); err != nil {
		return false, fmt.Errorf("delete root-level object %s: %w", ev.Name, err)
	}
	p.logger.Info("deleted object uploaded at bucket root",
		zap.String("bucket", ev.Bucket),
		zap.String("object", ev.Name),
	)

	msg := fmt.Sprintf("Deleted disallowed file %s (no files allowed at bucket root)", ev.Name)
	if err := p.audit.Append(ctx, audit.SeverityInfo, msg); err != nil {
		p.logger.Warn("audit append failed", zap.Error(err))
	}
	return true, nil
}
