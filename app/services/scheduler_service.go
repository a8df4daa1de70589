package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

// SchedulerService tính occurrence từ RRULE và fire action lên target resolve
// động tại thời điểm fire. Cursor (prev/next) nằm trong DB; không có timer
// in-memory nào sống qua restart.
type SchedulerService struct {
	schedules  *repo.ScheduleRepository
	selections *SelectionService
	containers *ContainerService
	dispatcher *DispatcherService
	overclock  *OverclockService
	async      *AsyncService
	leases     LeaseStore

	leaseTTL       time.Duration
	asyncThreshold int
	log            zerolog.Logger
}

func NewSchedulerService(
	schedules *repo.ScheduleRepository,
	selections *SelectionService,
	containers *ContainerService,
	dispatcher *DispatcherService,
	overclock *OverclockService,
	async *AsyncService,
	leases LeaseStore,
	leaseTTL time.Duration,
	asyncThreshold int,
	log zerolog.Logger,
) *SchedulerService {
	if leaseTTL <= 0 {
		leaseTTL = time.Minute
	}
	if asyncThreshold <= 0 {
		asyncThreshold = 50
	}
	return &SchedulerService{
		schedules:      schedules,
		selections:     selections,
		containers:     containers,
		dispatcher:     dispatcher,
		overclock:      overclock,
		async:          async,
		leases:         leases,
		leaseTTL:       leaseTTL,
		asyncThreshold: asyncThreshold,
		log:            log,
	}
}

// NextOccurrence là hàm thuần: occurrence đầu tiên sau `after` theo rule+tz.
// Rule rỗng nghĩa là one-shot: launchAt nếu chưa qua, hết nếu đã qua. Trả nil
// khi rule không còn occurrence nào.
func NextOccurrence(ruleStr, tz string, launchAt, after time.Time) (*time.Time, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, apperr.Validation("timezone", fmt.Sprintf("unknown timezone %q", tz))
		}
	}
	if ruleStr == "" {
		if launchAt.After(after) {
			t := launchAt
			return &t, nil
		}
		return nil, nil
	}
	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, apperr.Validation("rrule", err.Error())
	}
	opt.Dtstart = launchAt.In(loc)
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, apperr.Validation("rrule", err.Error())
	}
	next := r.After(after.In(loc), false)
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}

func (s *SchedulerService) Create(req dto.ScheduleRequest) (*models.Schedule, error) {
	if (len(req.TagIDs) > 0) == (req.ContainerID != nil) {
		return nil, apperr.Validation("target", "exactly one of tag_ids and container_id required")
	}
	if req.Action.FlightSheetID == nil && req.Action.OCProfileID == nil &&
		req.Action.OCConfig == nil && len(req.Action.Commands) == 0 {
		return nil, apperr.Validation("action", "at least one action required")
	}
	launchAt := time.Unix(req.LaunchAt, 0).UTC()
	// Validate rule + tính next ngay từ lúc tạo. Occurrence đầu tiên là chính
	// launch_at nếu còn ở tương lai.
	next, err := NextOccurrence(req.RRule, req.Timezone, launchAt, launchAt.Add(-time.Second))
	if err != nil {
		return nil, err
	}
	tagJSON, _ := json.Marshal(req.TagIDs)
	actionJSON, err := json.Marshal(req.Action)
	if err != nil {
		return nil, err
	}
	sch := &models.Schedule{
		FarmID:       req.FarmID,
		Name:         req.Name,
		TagIDs:       string(tagJSON),
		ContainerID:  req.ContainerID,
		Action:       string(actionJSON),
		LaunchAt:     launchAt,
		RRule:        req.RRule,
		Timezone:     req.Timezone,
		Active:       next != nil,
		NextLaunchAt: next,
	}
	if err := s.schedules.Create(sch); err != nil {
		return nil, err
	}
	return sch, nil
}

func (s *SchedulerService) Get(id uint) (*models.Schedule, error) {
	sch, err := s.schedules.Find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("schedule", fmt.Sprint(id))
		}
		return nil, err
	}
	return sch, nil
}

func (s *SchedulerService) List() ([]models.Schedule, error) { return s.schedules.ListAll() }

func (s *SchedulerService) Delete(id uint) error { return s.schedules.Delete(id) }

// SetActive bật/tắt schedule giữa các tick; fire đang chạy không bị cắt.
func (s *SchedulerService) SetActive(id uint, active bool) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.schedules.SetActive(id, active)
}

// Run chạy tick loop tới khi ctx huỷ.
func (s *SchedulerService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 30 * time.Second
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(ctx, time.Now())
		}
	}
}

// Tick fire mọi schedule đã tới hạn. Mỗi schedule được claim qua lease trước
// khi fire để nhiều process tick song song không double-fire.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) {
	due, err := s.schedules.Due(now)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler: due query failed")
		return
	}
	for i := range due {
		sch := due[i]
		ok, err := s.leases.Acquire(ctx, fmt.Sprint(sch.ID), s.leaseTTL)
		if err != nil {
			s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: lease failed")
			continue
		}
		if !ok {
			continue // process khác đang xử lý
		}
		s.fire(ctx, &sch, now)
	}
}

// fire advance cursor trước, rồi mới resolve target và submit: crash giữa hai
// bước thì occurrence bị bỏ lỡ thay vì bắn lặp sau restart. Lỗi resolve/submit
// chỉ được log — cursor đã advance nên không loop mãi trên schedule hỏng.
func (s *SchedulerService) fire(ctx context.Context, sch *models.Schedule, now time.Time) {
	firedAt := *sch.NextLaunchAt

	next, err := NextOccurrence(sch.RRule, sch.Timezone, sch.LaunchAt, firedAt)
	if err != nil {
		// Rule từng parse được lúc tạo; hỏng tới đây thì deactivate luôn.
		s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: rule became invalid")
		next = nil
	}
	active := next != nil
	won, err := s.schedules.Advance(sch.ID, firedAt, next, active)
	if err != nil {
		s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: advance failed")
		return
	}
	if !won {
		// Process khác đã advance cursor qua occurrence này.
		s.log.Debug().Uint("schedule", sch.ID).Time("fired_at", firedAt).Msg("scheduler: occurrence already taken")
		return
	}

	targets, err := s.resolveTargets(ctx, sch)
	if err != nil {
		s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: target resolution failed")
	} else if len(targets) > 0 {
		s.submit(sch, targets)
	} else {
		s.log.Info().Uint("schedule", sch.ID).Msg("scheduler: empty target set")
	}
	s.log.Info().
		Uint("schedule", sch.ID).
		Time("fired_at", firedAt).
		Bool("active", active).
		Int("targets", len(targets)).
		Msg("schedule fired")
}

func (s *SchedulerService) resolveTargets(ctx context.Context, sch *models.Schedule) ([]string, error) {
	if sch.ContainerID != nil {
		return s.containers.ResolveMembers(*sch.ContainerID)
	}
	var tagIDs []uint
	if sch.TagIDs != "" {
		if err := json.Unmarshal([]byte(sch.TagIDs), &tagIDs); err != nil {
			return nil, err
		}
	}
	if len(tagIDs) == 0 {
		return nil, apperr.Validation("target", "schedule has no target")
	}
	// System user 0: schedule không thuộc session operator nào.
	return s.selections.Resolve(ctx, 0, dto.SelectionSpec{TagIDs: tagIDs})
}

// submit đẩy toàn bộ action set qua dispatcher; target lớn thì bọc async
// request để không giữ tick lâu.
func (s *SchedulerService) submit(sch *models.Schedule, targets []string) {
	var action dto.ScheduleAction
	if err := json.Unmarshal([]byte(sch.Action), &action); err != nil {
		s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: bad action payload")
		return
	}
	run := func() (Envelope, error) {
		total := dto.FanOutResponse{}
		merge := func(r dto.FanOutResponse) {
			total.Commands = append(total.Commands, r.Commands...)
			total.Failed += r.Failed
		}
		if action.FlightSheetID != nil {
			merge(s.dispatcher.ApplyFlightSheet(targets, *action.FlightSheetID))
		}
		mode := action.OCApplyMode
		if mode == "" {
			mode = dto.ApplyReplace
		}
		switch {
		case action.OCProfileID != nil:
			_, profile, err := s.overclock.GetProfile(*action.OCProfileID)
			if err != nil {
				s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: oc profile load failed")
			} else {
				merge(s.dispatcher.ApplyOverclock(targets, *profile, mode))
			}
		case action.OCConfig != nil:
			merge(s.dispatcher.ApplyOverclockConfig(targets, *action.OCConfig, mode))
		}
		for _, ac := range action.Commands {
			merge(s.dispatcher.FanOut(targets, models.CommandType(ac.Command), ac.Payload))
		}
		body, _ := json.Marshal(total)
		return Envelope{
			Status:  200,
			Headers: map[string][]string{"Content-Type": {"application/json"}},
			Body:    body,
		}, nil
	}
	if s.async != nil && len(targets) > s.asyncThreshold {
		if id, err := s.async.Submit(run); err != nil {
			s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: async submit failed")
		} else {
			s.log.Info().Uint("schedule", sch.ID).Str("request", id).Msg("schedule firing wrapped in async request")
		}
		return
	}
	if _, err := run(); err != nil {
		s.log.Error().Err(err).Uint("schedule", sch.ID).Msg("scheduler: submit failed")
	}
}
