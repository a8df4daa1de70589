package services

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"
)

type recordingNotifier struct{ msgs []models.WorkerMessage }

func (n *recordingNotifier) Notify(msg models.WorkerMessage) { n.msgs = append(n.msgs, msg) }

func newDispatcher(t *testing.T) (*DispatcherService, *recordingNotifier, *repo.WorkerRepository, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	commands := repo.NewCommandRepository(gdb)
	oc := NewOverclockService(repo.NewOCProfileRepository(gdb), workers)
	notifier := &recordingNotifier{}
	svc := NewDispatcherService(commands, workers, oc, notifier, zerolog.Nop())
	return svc, notifier, workers, gdb
}

func TestEnqueueUnknownWorker(t *testing.T) {
	svc, _, _, _ := newDispatcher(t)
	_, err := svc.Enqueue("ghost", models.CmdReboot, nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestPullDoesNotClearQueue(t *testing.T) {
	svc, _, _, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")

	id, err := svc.Enqueue("w1", models.CmdReboot, nil)
	require.NoError(t, err)

	first, err := svc.Pull("w1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, id, first[0].ID)
	assert.Equal(t, string(models.CommandPending), first[0].Status)

	// Poll lặp vẫn thấy command, giờ ở trạng thái delivered.
	second, err := svc.Pull("w1")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, id, second[0].ID)
	assert.Equal(t, string(models.CommandDelivered), second[0].Status)
}

func TestReportResolvesAndCreatesMessage(t *testing.T) {
	svc, notifier, workers, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")

	id, err := svc.Enqueue("w1", models.CmdExec, json.RawMessage(`{"cmd":"uptime"}`))
	require.NoError(t, err)

	require.NoError(t, svc.Report("w1", dto.ReportRequest{
		CommandID: id, Level: "success", Title: "exec done", Result: json.RawMessage(`{"stdout":"up"}`),
	}))

	queue, err := svc.Pull("w1")
	require.NoError(t, err)
	assert.Empty(t, queue, "resolved command must leave the pull view")

	msgs, err := workers.ListMessages("w1", false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageSuccess, msgs[0].Level)
	assert.Equal(t, "exec done", msgs[0].Title)
	require.Len(t, notifier.msgs, 1)

	// Report lặp cùng id là no-op: không message thứ hai.
	require.NoError(t, svc.Report("w1", dto.ReportRequest{CommandID: id, Level: "success"}))
	msgs, err = workers.ListMessages("w1", false)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestReportUnknownCommandIsNoOp(t *testing.T) {
	svc, notifier, _, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")

	require.NoError(t, svc.Report("w1", dto.ReportRequest{CommandID: 9999, Level: "success"}))
	assert.Empty(t, notifier.msgs)
}

func TestReportOtherWorkersCommandIsNoOp(t *testing.T) {
	svc, notifier, _, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")
	seedWorker(t, gdb, "w2", "ethash")

	id, err := svc.Enqueue("w1", models.CmdReboot, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Report("w2", dto.ReportRequest{CommandID: id, Level: "success"}))
	assert.Empty(t, notifier.msgs)

	queue, err := svc.Pull("w1")
	require.NoError(t, err)
	assert.Len(t, queue, 1, "command stays queued for its own worker")
}

func TestFanOutNeverAbortsBatch(t *testing.T) {
	svc, _, _, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")
	seedWorker(t, gdb, "w2", "ethash")

	resp := svc.FanOut([]string{"w1", "ghost", "w2"}, models.CmdReboot, nil)
	require.Len(t, resp.Commands, 3)
	assert.Equal(t, 1, resp.Failed)

	assert.NotZero(t, resp.Commands[0].CommandID)
	assert.Empty(t, resp.Commands[0].Error)
	assert.Zero(t, resp.Commands[1].CommandID)
	assert.NotEmpty(t, resp.Commands[1].Error)
	assert.NotZero(t, resp.Commands[2].CommandID)
}

func TestAppliedOCCatchesUpOnSuccessfulReport(t *testing.T) {
	svc, _, workers, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")

	profile := dto.OCProfileResponse{Default: dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(60)}}}
	resp := svc.ApplyOverclock([]string{"w1"}, profile, dto.ApplyReplace)
	require.Zero(t, resp.Failed)
	require.Len(t, resp.Commands, 1)

	w, err := workers.FindByUUID("w1")
	require.NoError(t, err)
	assert.NotEmpty(t, w.ResolvedOC)
	assert.Empty(t, w.AppliedOC, "applied trails resolved until the worker reports")

	require.NoError(t, svc.Report("w1", dto.ReportRequest{CommandID: resp.Commands[0].CommandID, Level: "success"}))

	w, err = workers.FindByUUID("w1")
	require.NoError(t, err)
	assert.JSONEq(t, w.ResolvedOC, w.AppliedOC)
	assert.Equal(t, w.ResolvedOCAlgo, w.AppliedOCAlgo)
}

func TestApplyOverclockSkipsEmptyEffectiveConfig(t *testing.T) {
	svc, _, workers, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")

	resp := svc.ApplyOverclock([]string{"w1"}, dto.OCProfileResponse{}, dto.ApplyReplace)
	require.Zero(t, resp.Failed)
	require.Len(t, resp.Commands, 1)
	assert.Zero(t, resp.Commands[0].CommandID, "empty config must not enqueue oc_apply")

	w, err := workers.FindByUUID("w1")
	require.NoError(t, err)
	assert.Empty(t, w.ResolvedOC)
}

func TestApplyFlightSheetSetsAndEnqueues(t *testing.T) {
	svc, _, workers, gdb := newDispatcher(t)
	seedWorker(t, gdb, "w1", "ethash")

	resp := svc.ApplyFlightSheet([]string{"w1"}, 7)
	require.Zero(t, resp.Failed)

	w, err := workers.FindByUUID("w1")
	require.NoError(t, err)
	require.NotNil(t, w.FlightSheetID)
	assert.Equal(t, uint(7), *w.FlightSheetID)

	queue, err := svc.Pull("w1")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, string(models.CmdFSApply), queue[0].Command)
}
