package services

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigfleet/app/apperr"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

func newAsyncService(t *testing.T, workers int) (*AsyncService, *repo.AsyncRequestRepository, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	requests := repo.NewAsyncRequestRepository(gdb)
	svc := NewAsyncService(requests, time.Minute, workers, zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return svc, requests, gdb
}

func TestAsyncSubmitRunsToDone(t *testing.T) {
	svc, _, _ := newAsyncService(t, 2)

	id, err := svc.Submit(func() (Envelope, error) {
		return Envelope{Status: 200, Headers: map[string][]string{"Content-Type": {"application/json"}}, Body: []byte(`{"ok":true}`)}, nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		req, _, err := svc.GetStatus(id)
		return err == nil && req.Status == models.AsyncDone
	}, 2*time.Second, 5*time.Millisecond)

	req, env, err := svc.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, models.AsyncDone, req.Status)
	require.NotNil(t, env)
	assert.Equal(t, 200, env.Status)
	assert.Equal(t, []string{"application/json"}, env.Headers["Content-Type"])
	assert.JSONEq(t, `{"ok":true}`, string(env.Body))
}

func TestAsyncJobErrorEndsInErrorState(t *testing.T) {
	svc, _, _ := newAsyncService(t, 1)

	id, err := svc.Submit(func() (Envelope, error) {
		return Envelope{Status: 200}, errors.New("boom")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		req, _, err := svc.GetStatus(id)
		return err == nil && req.Status == models.AsyncError
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAsyncServerErrorEnvelopeEndsInErrorState(t *testing.T) {
	svc, _, _ := newAsyncService(t, 1)

	id, err := svc.Submit(func() (Envelope, error) {
		return Envelope{Status: 502, Body: []byte("bad gateway")}, nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		req, env, err := svc.GetStatus(id)
		return err == nil && req.Status == models.AsyncError && env != nil && env.Status == 502
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAsyncClaimExactlyOnce(t *testing.T) {
	svc, requests, _ := newAsyncService(t, 1)

	req := &models.AsyncRequest{ID: "req-1", Status: models.AsyncPending, Deadline: time.Now().Add(time.Minute)}
	require.NoError(t, requests.Create(req))

	require.NoError(t, svc.Claim("req-1"))
	err := svc.Claim("req-1")
	assert.True(t, apperr.IsConflict(err), "second claimant must lose")
}

func TestAsyncLateClaimLosesBeforeSweep(t *testing.T) {
	svc, requests, _ := newAsyncService(t, 1)

	req := &models.AsyncRequest{ID: "req-late", Status: models.AsyncPending, Deadline: time.Now().Add(-time.Minute)}
	require.NoError(t, requests.Create(req))

	// Quá deadline là thua ngay, không phụ thuộc sweep đã chạy hay chưa.
	err := svc.Claim("req-late")
	assert.True(t, apperr.IsConflict(err))

	got, _, err := svc.GetStatus("req-late")
	require.NoError(t, err)
	assert.Equal(t, models.AsyncPending, got.Status, "a lost claim must not move the request")

	svc.ExpireSweep()
	got, _, err = svc.GetStatus("req-late")
	require.NoError(t, err)
	assert.Equal(t, models.AsyncExpired, got.Status)
}

func TestAsyncExpiredNeverCompletes(t *testing.T) {
	svc, requests, _ := newAsyncService(t, 1)

	req := &models.AsyncRequest{ID: "req-old", Status: models.AsyncPending, Deadline: time.Now().Add(-time.Second)}
	require.NoError(t, requests.Create(req))

	svc.ExpireSweep()

	got, env, err := svc.GetStatus("req-old")
	require.NoError(t, err)
	assert.Equal(t, models.AsyncExpired, got.Status)
	assert.Nil(t, env)

	// Claim sau expiry thua CAS: request không bao giờ rời expired.
	err = svc.Claim("req-old")
	assert.True(t, apperr.IsConflict(err))

	got, _, err = svc.GetStatus("req-old")
	require.NoError(t, err)
	assert.Equal(t, models.AsyncExpired, got.Status)
}

func TestAsyncSweepLeavesProcessingAlone(t *testing.T) {
	svc, requests, _ := newAsyncService(t, 1)

	req := &models.AsyncRequest{ID: "req-busy", Status: models.AsyncProcessing, Deadline: time.Now().Add(-time.Second)}
	require.NoError(t, requests.Create(req))

	svc.ExpireSweep()

	got, _, err := svc.GetStatus("req-busy")
	require.NoError(t, err)
	assert.Equal(t, models.AsyncProcessing, got.Status)
}

func TestAsyncNotFoundDistinctFromExpired(t *testing.T) {
	svc, _, _ := newAsyncService(t, 1)

	_, _, err := svc.GetStatus("never-existed")
	assert.True(t, apperr.IsNotFound(err))
}

func TestAsyncRetentionSweep(t *testing.T) {
	svc, requests, gdb := newAsyncService(t, 1)

	old := &models.AsyncRequest{ID: "req-done", Status: models.AsyncDone, Deadline: time.Now()}
	require.NoError(t, requests.Create(old))
	// Đẩy updated_at về quá khứ để lọt retention window.
	require.NoError(t, gdb.Model(&models.AsyncRequest{}).Where("id = ?", "req-done").
		UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error)

	svc.RetentionSweep(time.Hour)

	_, _, err := svc.GetStatus("req-done")
	assert.True(t, apperr.IsNotFound(err))
}
