package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kbr-hospital-backend/internal/domain/entity"
	implrepo "kbr-hospital-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditLogUsecase(env *testEnv) AuditLogUsecase {
	return NewAuditLogUsecase(env.db, env.log, implrepo.NewAuditLogRepository())
}

func seedAuditLogs(t *testing.T, env *testEnv, n int) {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		log := entity.AuditLog{
			Action:    entity.AuditActionAppointmentUpdate,
			Metadata:  entity.JSON{"seq": fmt.Sprintf("%d", i)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, env.db.Create(&log).Error)
	}
}

func TestGetAllAuditLogsPaginates(t *testing.T) {
	env := newTestEnv(t)
	auditLogs := newAuditLogUsecase(env)
	ctx := context.Background()

	seedAuditLogs(t, env, 25)

	page1, total, err := auditLogs.GetAllAuditLogs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page1.Logs, 10)

	// Newest first: the last-seeded entry leads the first page
	assert.Equal(t, "24", page1.Logs[0].Metadata["seq"])

	page3, total, err := auditLogs.GetAllAuditLogs(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page3.Logs, 5)

	// Out-of-range pages come back empty, not as an error
	page4, _, err := auditLogs.GetAllAuditLogs(ctx, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, page4.Logs)
}

func TestGetAuditLogByID(t *testing.T) {
	env := newTestEnv(t)
	auditLogs := newAuditLogUsecase(env)
	ctx := context.Background()

	seedAuditLogs(t, env, 1)

	var seeded entity.AuditLog
	require.NoError(t, env.db.First(&seeded).Error)

	found, err := auditLogs.GetAuditLog(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, entity.AuditActionAppointmentUpdate, found.Action)

	_, err = auditLogs.GetAuditLog(ctx, seeded.ID+999)
	assert.ErrorIs(t, err, ErrAuditLogNotFound)
}
