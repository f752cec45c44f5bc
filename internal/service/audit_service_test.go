package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unibody-docs-api/internal/models"
	"github.com/noah-isme/unibody-docs-api/pkg/jobs"
)

func TestAuditRecordThroughQueue(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil, nil)
	queue := jobs.NewQueue("audit", svc.Handle, jobs.QueueConfig{Workers: 2, BufferSize: 8, DrainTimeout: time.Second})
	svc.AttachQueue(queue)
	queue.Start(context.Background())

	svc.Record(context.Background(), AuditEntry{
		ActorID:    "admin-a",
		Action:     models.AuditActionDocApprove,
		Resource:   "documents",
		ResourceID: "doc-1",
		Before:     map[string]string{"approval_status": "pending"},
		After:      map[string]string{"approval_status": "approved"},
		Meta:       models.RequestMeta{IP: "10.1.1.1", UserAgent: "test"},
	})
	queue.Stop()

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, "admin-a", *log.UserID)
	assert.Equal(t, "doc-1", *log.ResourceID)
	assert.Equal(t, "10.1.1.1", log.IPAddress)

	var after map[string]string
	require.NoError(t, json.Unmarshal(log.NewValues, &after))
	assert.Equal(t, "approved", after["approval_status"])
}

func TestAuditDroppedWhenQueueRejects(t *testing.T) {
	metrics := NewMetricsService()
	repo := &auditRepoStub{}
	queue := jobs.NewQueue("audit", func(context.Context, jobs.Job) error { return nil }, jobs.QueueConfig{})
	svc := NewAuditService(repo, queue, metrics, nil)

	// never started
	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionLogin, Resource: "auth"})
	assert.Equal(t, uint64(1), metrics.Snapshot().AuditDropped)
	assert.Empty(t, repo.logs)
}

func TestAuditSynchronousWriteFailureIsSwallowed(t *testing.T) {
	metrics := NewMetricsService()
	repo := &auditRepoStub{err: errors.New("db down")}
	svc := NewAuditService(repo, nil, metrics, nil)

	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionLogout, Resource: "auth"})
	assert.Equal(t, uint64(1), metrics.Snapshot().AuditDropped)

	var nilSvc *AuditService
	nilSvc.Record(context.Background(), AuditEntry{Action: models.AuditActionLogout})
}

func TestAuditHandleRejectsUnknownPayload(t *testing.T) {
	svc := NewAuditService(&auditRepoStub{}, nil, nil, nil)
	assert.Error(t, svc.Handle(context.Background(), jobs.Job{Payload: "nope"}))
}
