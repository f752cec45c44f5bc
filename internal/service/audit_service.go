package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unibody-docs-api/internal/models"
	"github.com/noah-isme/unibody-docs-api/pkg/jobs"
)

const auditJobType = "audit.write"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type auditQueue interface {
	Enqueue(job jobs.Job) error
}

// AuditEntry describes one auditable action.
type AuditEntry struct {
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	Before     interface{}
	After      interface{}
	Meta       models.RequestMeta
}

// AuditService records the audit trail off the request path.
type AuditService struct {
	repo    auditRepository
	queue   auditQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service. A nil queue writes synchronously.
func NewAuditService(repo auditRepository, queue auditQueue, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, queue: queue, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue used for asynchronous writes.
func (s *AuditService) AttachQueue(queue auditQueue) {
	s.queue = queue
}

// Record stores entry. Failures are logged and never surface to the caller.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	log, err := entry.toLog()
	if err != nil {
		s.logger.Warn("failed to encode audit entry", zap.String("action", entry.Action), zap.Error(err))
		return
	}
	if s.queue == nil {
		if err := s.repo.Create(ctx, log); err != nil {
			s.metrics.IncAuditDropped()
			s.logger.Warn("failed to write audit entry", zap.String("action", entry.Action), zap.Error(err))
		}
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log}); err != nil {
		s.metrics.IncAuditDropped()
		s.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

// Handle is the queue handler persisting queued entries.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.Create(ctx, log)
}

func (e AuditEntry) toLog() (*models.AuditLog, error) {
	log := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    e.Action,
		Resource:  e.Resource,
		IPAddress: e.Meta.IP,
		UserAgent: e.Meta.UserAgent,
	}
	if e.ActorID != "" {
		actor := e.ActorID
		log.UserID = &actor
	}
	if e.ResourceID != "" {
		id := e.ResourceID
		log.ResourceID = &id
	}
	var err error
	if log.OldValues, err = encodeAuditValue(e.Before); err != nil {
		return nil, err
	}
	if log.NewValues, err = encodeAuditValue(e.After); err != nil {
		return nil, err
	}
	return log, nil
}

func encodeAuditValue(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
