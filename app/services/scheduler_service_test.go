package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"
)

func newScheduler(t *testing.T, leaseTTL time.Duration) (*SchedulerService, *DispatcherService, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	commands := repo.NewCommandRepository(gdb)
	oc := NewOverclockService(repo.NewOCProfileRepository(gdb), workers)
	dispatcher := NewDispatcherService(commands, workers, oc, nil, zerolog.Nop())
	selections := NewSelectionService(workers, NewMemorySnapshotStore(), time.Minute, false)
	containers := NewContainerService(repo.NewContainerRepository(gdb))
	sched := NewSchedulerService(
		repo.NewScheduleRepository(gdb), selections, containers, dispatcher, oc,
		nil, NewMemoryLeaseStore(), leaseTTL, 50, zerolog.Nop(),
	)
	return sched, dispatcher, gdb
}

func TestNextOccurrenceOneShot(t *testing.T) {
	launch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	next, err := NextOccurrence("", "", launch, launch.Add(-time.Second))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(launch))

	// Một khi đã qua launch, one-shot hết occurrence.
	next, err = NextOccurrence("", "", launch, launch)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestNextOccurrenceDailyCount(t *testing.T) {
	launch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var got []time.Time
	after := launch.Add(-time.Second)
	for {
		next, err := NextOccurrence("FREQ=DAILY;COUNT=3", "", launch, after)
		require.NoError(t, err)
		if next == nil {
			break
		}
		got = append(got, *next)
		after = *next
	}
	require.Len(t, got, 3, "COUNT=3 must yield exactly three occurrences")
	assert.True(t, got[0].Equal(launch))
	assert.True(t, got[1].Equal(launch.AddDate(0, 0, 1)))
	assert.True(t, got[2].Equal(launch.AddDate(0, 0, 2)))
}

func TestNextOccurrenceTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	launch := time.Date(2026, 3, 1, 22, 0, 0, 0, loc) // 15:00 UTC

	next, err := NextOccurrence("FREQ=DAILY", "Asia/Ho_Chi_Minh", launch, launch)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(launch.AddDate(0, 0, 1)), "daily recurrence follows the schedule's timezone")

	_, err = NextOccurrence("FREQ=DAILY", "Mars/Olympus", launch, launch)
	assert.True(t, apperr.IsValidation(err))
}

func TestScheduleCreateValidation(t *testing.T) {
	sched, _, _ := newScheduler(t, time.Minute)
	action := dto.ScheduleAction{Commands: []dto.ActionCommand{{Command: "reboot"}}}

	_, err := sched.Create(dto.ScheduleRequest{Action: action, LaunchAt: time.Now().Unix()})
	assert.True(t, apperr.IsValidation(err), "target required")

	cid := uint(1)
	_, err = sched.Create(dto.ScheduleRequest{TagIDs: []uint{1}, ContainerID: &cid, Action: action, LaunchAt: time.Now().Unix()})
	assert.True(t, apperr.IsValidation(err), "tags and container are mutually exclusive")

	_, err = sched.Create(dto.ScheduleRequest{TagIDs: []uint{1}, LaunchAt: time.Now().Unix()})
	assert.True(t, apperr.IsValidation(err), "empty action rejected")

	_, err = sched.Create(dto.ScheduleRequest{TagIDs: []uint{1}, Action: action, LaunchAt: time.Now().Unix(), RRule: "FREQ=BOGUS"})
	assert.True(t, apperr.IsValidation(err), "bad rrule rejected at create")
}

func TestScheduleFiresAndDeactivatesAfterLastOccurrence(t *testing.T) {
	sched, dispatcher, gdb := newScheduler(t, time.Millisecond)
	seedWorker(t, gdb, "w1", "ethash", 1)

	launch := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	sch, err := sched.Create(dto.ScheduleRequest{
		Name:   "nightly reboot",
		TagIDs: []uint{1},
		Action: dto.ScheduleAction{Commands: []dto.ActionCommand{{Command: "reboot"}}},
		LaunchAt: launch.Unix(),
		RRule:    "FREQ=DAILY;COUNT=1",
	})
	require.NoError(t, err)
	require.True(t, sch.Active)
	require.NotNil(t, sch.NextLaunchAt)

	ctx := context.Background()
	sched.Tick(ctx, time.Now())

	got, err := sched.Get(sch.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "COUNT exhausted -> schedule deactivates")
	assert.Nil(t, got.NextLaunchAt)
	require.NotNil(t, got.PrevLaunchAt)
	assert.True(t, got.PrevLaunchAt.Equal(launch))

	queue, err := dispatcher.Pull("w1")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "reboot", queue[0].Command)

	// Tick lặp không fire lại: schedule đã inactive.
	time.Sleep(2 * time.Millisecond)
	sched.Tick(ctx, time.Now())
	queue, err = dispatcher.Pull("w1")
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}

func TestScheduleAdvancesPastFailedFire(t *testing.T) {
	// Target tag không có worker nào: fire là no-op nhưng cursor vẫn advance.
	sched, _, _ := newScheduler(t, time.Millisecond)

	launch := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	sch, err := sched.Create(dto.ScheduleRequest{
		TagIDs: []uint{42},
		Action: dto.ScheduleAction{Commands: []dto.ActionCommand{{Command: "reboot"}}},
		LaunchAt: launch.Unix(),
		RRule:    "FREQ=DAILY",
	})
	require.NoError(t, err)

	sched.Tick(context.Background(), time.Now())

	got, err := sched.Get(sch.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	require.NotNil(t, got.NextLaunchAt)
	assert.True(t, got.NextLaunchAt.After(time.Now()), "cursor moved past the missed occurrence")
}

func TestScheduleLeasePreventsDoubleFire(t *testing.T) {
	sched, dispatcher, gdb := newScheduler(t, time.Hour)
	seedWorker(t, gdb, "w1", "ethash", 1)

	launch := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	sch, err := sched.Create(dto.ScheduleRequest{
		TagIDs: []uint{1},
		Action: dto.ScheduleAction{Commands: []dto.ActionCommand{{Command: "reboot"}}},
		LaunchAt: launch.Unix(),
		RRule:    "FREQ=DAILY",
	})
	require.NoError(t, err)

	ctx := context.Background()
	sched.Tick(ctx, time.Now())

	// Giả lập advance thất bại giữa chừng: đặt lại next_launch_at về quá khứ.
	require.NoError(t, gdb.Model(&models.Schedule{}).Where("id = ?", sch.ID).
		Updates(map[string]any{"next_launch_at": launch, "active": true}).Error)

	// Lease còn sống -> tick thứ hai bỏ qua schedule này.
	sched.Tick(ctx, time.Now())

	queue, err := dispatcher.Pull("w1")
	require.NoError(t, err)
	assert.Len(t, queue, 1, "held lease must block a second fire")
}

func TestScheduleCursorAdvancesBeforeSubmit(t *testing.T) {
	// Hai process cùng qua được lease (lease hết hạn giữa chừng): mỗi bên cầm
	// một bản snapshot riêng của cùng một schedule đến hạn. CAS trên
	// next_launch_at đảm bảo đúng một bên fire được occurrence.
	sched, dispatcher, gdb := newScheduler(t, time.Millisecond)
	seedWorker(t, gdb, "w1", "ethash", 1)

	launch := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	created, err := sched.Create(dto.ScheduleRequest{
		TagIDs: []uint{1},
		Action: dto.ScheduleAction{Commands: []dto.ActionCommand{{Command: "reboot"}}},
		LaunchAt: launch.Unix(),
		RRule:    "FREQ=DAILY",
	})
	require.NoError(t, err)

	schedules := repo.NewScheduleRepository(gdb)
	first, err := schedules.Find(created.ID)
	require.NoError(t, err)
	second, err := schedules.Find(created.ID)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now()
	sched.fire(ctx, first, now)
	sched.fire(ctx, second, now)

	queue, err := dispatcher.Pull("w1")
	require.NoError(t, err)
	assert.Len(t, queue, 1, "losing the cursor CAS must not enqueue a second command")

	got, err := sched.Get(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PrevLaunchAt)
	assert.True(t, got.PrevLaunchAt.Equal(launch))
}

func TestScheduleTargetsContainer(t *testing.T) {
	sched, dispatcher, gdb := newScheduler(t, time.Millisecond)
	seedWorker(t, gdb, "w1", "ethash")
	seedWorker(t, gdb, "w2", "ethash")

	containers := NewContainerService(repo.NewContainerRepository(gdb))
	c, err := containers.Create(dto.ContainerRequest{Name: "rack", Rows: 1, Cols: 2, Cells: []dto.ContainerCellRequest{
		{X: 0, Y: 0, WorkerUUID: "w1"},
		{X: 1, Y: 0, WorkerUUID: "w2"},
	}})
	require.NoError(t, err)

	launch := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	_, err = sched.Create(dto.ScheduleRequest{
		ContainerID: &c.ID,
		Action:      dto.ScheduleAction{Commands: []dto.ActionCommand{{Command: "reboot"}}},
		LaunchAt:    launch.Unix(),
	})
	require.NoError(t, err)

	sched.Tick(context.Background(), time.Now())

	for _, uuid := range []string{"w1", "w2"} {
		queue, err := dispatcher.Pull(uuid)
		require.NoError(t, err)
		assert.Len(t, queue, 1, uuid)
	}
}
