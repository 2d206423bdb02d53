package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hcsem/communityhub/internal/actorctx"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
)

type entryWriter interface {
	Create(ctx context.Context, e auditlog.Entry) error
}

// Recorder writes security-relevant actions to the audit log. Failures are
// logged and swallowed so an audit outage never blocks the guarded flow.
type Recorder struct {
	repo entryWriter
	log  *slog.Logger
}

func NewRecorder(repo entryWriter, log *slog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

func (r *Recorder) Record(ctx context.Context, actorID *string, action string, details any, ip string) {
	if r == nil || r.repo == nil {
		return
	}

	// fall back to the actor stamped on the context by the auth middleware
	if actorID == nil {
		if id, ok := actorctx.UserIDFrom(ctx); ok {
			actorID = &id
		}
	}

	var raw json.RawMessage

	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			r.log.Warn("audit details marshal failed", "action", action, "err", err)
		} else {
			raw = b
		}
	}

	e := auditlog.New(actorID, action, raw, ip)

	if err := r.repo.Create(ctx, e); err != nil {
		r.log.Warn("audit write failed", "action", action, "err", err)
	}
}
