package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zoomsync/crm-bridge/internal/models"
)

// RegistrantTag is applied to every reconciled contact alongside the
// operator-configured global tag.
const RegistrantTag = "zoom registrant"

// SettingsReader exposes the settings slice the propagator reads. The global
// tag is re-read on every event so configuration changes apply immediately.
type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// Propagator applies classification tags to a resolved contact and, when a
// workflow id is configured, enrolls the contact in that workflow.
type Propagator struct {
	crm        CRMClient
	settings   SettingsReader
	workflowID string
	log        *slog.Logger
	now        func() time.Time
}

// NewPropagator builds a Propagator. workflowID may be empty, disabling
// enrollment.
func NewPropagator(client CRMClient, settings SettingsReader, workflowID string, log *slog.Logger) *Propagator {
	if log == nil {
		log = slog.Default()
	}
	return &Propagator{
		crm:        client,
		settings:   settings,
		workflowID: workflowID,
		log:        log,
		now:        time.Now,
	}
}

// Propagate tags the contact and best-effort enrolls it in the configured
// workflow. Tagging is the primary success criterion: its failure is the
// caller's problem, while enrollment failure is logged and swallowed so it
// can never undo a successful tag application.
func (p *Propagator) Propagate(ctx context.Context, contactID string) error {
	globalTag, found, err := p.settings.GetSetting(ctx, models.GlobalTagKey)
	if err != nil {
		return fmt.Errorf("read global tag: %w", err)
	}
	if !found || globalTag == "" {
		globalTag = models.DefaultGlobalTag
	}

	if err := p.crm.AddTags(ctx, contactID, []string{globalTag, RegistrantTag}); err != nil {
		return fmt.Errorf("add tags: %w", err)
	}

	if p.workflowID == "" {
		return nil
	}
	if err := p.crm.AddToWorkflow(ctx, contactID, p.workflowID, p.now()); err != nil {
		p.log.Warn("workflow enrollment failed",
			"contact_id", contactID, "workflow_id", p.workflowID, "error", err)
	}
	return nil
}
