package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

// Notifier nhận message mới sinh ra từ report; việc giao tới push/Telegram/...
// thuộc collaborator bên ngoài.
type Notifier interface {
	Notify(msg models.WorkerMessage)
}

// LogNotifier là implementation mặc định: chỉ ghi log.
type LogNotifier struct{ Log zerolog.Logger }

func (n LogNotifier) Notify(msg models.WorkerMessage) {
	n.Log.Info().
		Str("worker", msg.WorkerUUID).
		Str("level", string(msg.Level)).
		Str("title", msg.Title).
		Msg("worker message")
}

// DispatcherService sở hữu queue command bền của từng worker. Enqueue là
// fire-and-forget: worker poll để lấy, report để xác nhận — không có RPC nào
// chờ worker.
type DispatcherService struct {
	commands  *repo.CommandRepository
	workers   *repo.WorkerRepository
	overclock *OverclockService
	notifier  Notifier
	log       zerolog.Logger

	// Mutation queue của một worker phải tuần tự theo worker, nhưng song song
	// giữa các worker — không có lock toàn cục.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDispatcherService(commands *repo.CommandRepository, workers *repo.WorkerRepository, overclock *OverclockService, notifier Notifier, log zerolog.Logger) *DispatcherService {
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	return &DispatcherService{
		commands:  commands,
		workers:   workers,
		overclock: overclock,
		notifier:  notifier,
		log:       log,
		locks:     map[string]*sync.Mutex{},
	}
}

func (s *DispatcherService) workerLock(uuid string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[uuid]
	if !ok {
		l = &sync.Mutex{}
		s.locks[uuid] = l
	}
	return l
}

// Enqueue nối command vào queue của worker và trả id mới. Không dedup: gọi
// lặp tạo entry lặp; idempotency là việc của caller (xem HasPendingOfType).
func (s *DispatcherService) Enqueue(workerUUID string, cmdType models.CommandType, payload json.RawMessage) (uint, error) {
	if workerUUID == "" {
		return 0, apperr.Validation("worker_uuid", "required")
	}
	if cmdType == "" {
		return 0, apperr.Validation("command", "required")
	}
	lock := s.workerLock(workerUUID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.workers.FindByUUID(workerUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("worker", workerUUID)
		}
		return 0, err
	}
	cmd := &models.Command{
		WorkerUUID: workerUUID,
		Type:       cmdType,
		Payload:    string(payload),
		Status:     models.CommandPending,
	}
	if err := s.commands.Create(cmd); err != nil {
		return 0, err
	}
	s.log.Debug().Str("worker", workerUUID).Str("command", string(cmdType)).Uint("id", cmd.ID).Msg("command enqueued")
	return cmd.ID, nil
}

// FanOut enqueue cho từng worker độc lập; lỗi của một worker được ghi vào
// entry tương ứng, không bao giờ huỷ cả batch.
func (s *DispatcherService) FanOut(workerUUIDs []string, cmdType models.CommandType, payload json.RawMessage) dto.FanOutResponse {
	resp := dto.FanOutResponse{Commands: make([]dto.FanOutEntry, 0, len(workerUUIDs))}
	for _, uuid := range workerUUIDs {
		entry := dto.FanOutEntry{WorkerUUID: uuid}
		id, err := s.Enqueue(uuid, cmdType, payload)
		if err != nil {
			entry.Error = err.Error()
			resp.Failed++
		} else {
			entry.CommandID = id
		}
		resp.Commands = append(resp.Commands, entry)
	}
	return resp
}

// Pull trả snapshot queue cho worker. KHÔNG clear: entry chỉ biến mất khi
// report đúng id, nên poll lặp trước khi reboot không làm mất command.
// Pending được đánh dấu delivered để operator thấy worker đã nhìn thấy gì.
func (s *DispatcherService) Pull(workerUUID string) ([]dto.QueuedCommand, error) {
	lock := s.workerLock(workerUUID)
	lock.Lock()
	defer lock.Unlock()

	cmds, err := s.commands.ListQueue(workerUUID, false)
	if err != nil {
		return nil, err
	}
	var freshIDs []uint
	out := make([]dto.QueuedCommand, 0, len(cmds))
	for _, c := range cmds {
		if c.Status == models.CommandPending {
			freshIDs = append(freshIDs, c.ID)
		}
		out = append(out, dto.QueuedCommand{
			ID:        c.ID,
			Command:   string(c.Type),
			Payload:   json.RawMessage(c.Payload),
			Status:    string(c.Status),
			CreatedAt: c.CreatedAt.Unix(),
		})
	}
	if err := s.commands.MarkDelivered(freshIDs, time.Now()); err != nil {
		return nil, err
	}
	return out, nil
}

// Report xác nhận command đã chạy xong phía worker, lưu result và sinh
// worker message. commandId không khớp là no-op có log warning: worker có thể
// report sau khi command/worker đã bị xoá khỏi fleet.
func (s *DispatcherService) Report(workerUUID string, req dto.ReportRequest) error {
	lock := s.workerLock(workerUUID)
	lock.Lock()
	defer lock.Unlock()

	cmd, err := s.commands.Find(req.CommandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().Uint("command", req.CommandID).Str("worker", workerUUID).Msg("report for unknown command ignored")
			return nil
		}
		return err
	}
	if cmd.WorkerUUID != workerUUID {
		s.log.Warn().Uint("command", req.CommandID).Str("worker", workerUUID).Msg("report for another worker's command ignored")
		return nil
	}
	n, err := s.commands.Resolve(req.CommandID, string(req.Result), time.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		s.log.Warn().Uint("command", req.CommandID).Msg("report for already resolved command ignored")
		return nil
	}

	level := models.MessageLevel(req.Level)
	switch level {
	case models.MessageSuccess, models.MessageInfo, models.MessageWarning, models.MessageDanger, models.MessageFile:
	default:
		level = models.MessageInfo
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s finished", cmd.Type)
	}
	msg := models.WorkerMessage{
		WorkerUUID: workerUUID,
		CommandID:  &cmd.ID,
		Level:      level,
		Title:      title,
		Payload:    string(req.Result),
	}
	if err := s.workers.CreateMessage(&msg); err != nil {
		return err
	}
	s.notifier.Notify(msg)

	// oc_apply thành công -> actual đuổi kịp resolved.
	if cmd.Type == models.CmdOCApply && level == models.MessageSuccess {
		if w, err := s.workers.FindByUUID(workerUUID); err == nil {
			_ = s.workers.SetAppliedOC(workerUUID, w.ResolvedOC, w.ResolvedOCAlgo)
		}
	}
	return nil
}

// Queue là view cho operator, kể cả command đã resolve nếu yêu cầu.
func (s *DispatcherService) Queue(workerUUID string, includeResolved bool) ([]models.Command, error) {
	return s.commands.ListQueue(workerUUID, includeResolved)
}

// ApplyFlightSheet đặt flight sheet cho từng worker và enqueue fs_apply.
func (s *DispatcherService) ApplyFlightSheet(workerUUIDs []string, fsID uint) dto.FanOutResponse {
	payload, _ := json.Marshal(map[string]uint{"flight_sheet_id": fsID})
	resp := dto.FanOutResponse{Commands: make([]dto.FanOutEntry, 0, len(workerUUIDs))}
	for _, uuid := range workerUUIDs {
		entry := dto.FanOutEntry{WorkerUUID: uuid}
		if err := s.workers.SetFlightSheet(uuid, &fsID); err != nil {
			entry.Error = err.Error()
			resp.Failed++
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		id, err := s.Enqueue(uuid, models.CmdFSApply, payload)
		if err != nil {
			entry.Error = err.Error()
			resp.Failed++
		} else {
			entry.CommandID = id
		}
		resp.Commands = append(resp.Commands, entry)
	}
	return resp
}

// ApplyOverclockConfig áp một config literal (không qua profile), dùng cho
// schedule action có oc_config inline.
func (s *DispatcherService) ApplyOverclockConfig(workerUUIDs []string, cfg dto.OCConfig, mode dto.ApplyMode) dto.FanOutResponse {
	resp := dto.FanOutResponse{Commands: make([]dto.FanOutEntry, 0, len(workerUUIDs))}
	for _, uuid := range workerUUIDs {
		entry := dto.FanOutEntry{WorkerUUID: uuid}
		w, err := s.workers.FindByUUID(uuid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = apperr.NotFound("worker", uuid)
			}
			entry.Error = err.Error()
			resp.Failed++
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		if cfg.IsEmpty() {
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		if err := s.overclock.ApplyToWorker(w, cfg, mode, w.Algo); err != nil {
			entry.Error = err.Error()
			resp.Failed++
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		payload, _ := json.Marshal(map[string]any{"oc": cfg, "mode": mode})
		id, err := s.Enqueue(uuid, models.CmdOCApply, payload)
		if err != nil {
			entry.Error = err.Error()
			resp.Failed++
		} else {
			entry.CommandID = id
		}
		resp.Commands = append(resp.Commands, entry)
	}
	return resp
}

// ApplyOverclock resolve effective config theo algorithm hiện tại của từng
// worker rồi enqueue oc_apply. Config rỗng -> bỏ qua worker đó (không đổi OC).
func (s *DispatcherService) ApplyOverclock(workerUUIDs []string, profile dto.OCProfileResponse, mode dto.ApplyMode) dto.FanOutResponse {
	resp := dto.FanOutResponse{Commands: make([]dto.FanOutEntry, 0, len(workerUUIDs))}
	for _, uuid := range workerUUIDs {
		entry := dto.FanOutEntry{WorkerUUID: uuid}
		w, err := s.workers.FindByUUID(uuid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = apperr.NotFound("worker", uuid)
			}
			entry.Error = err.Error()
			resp.Failed++
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		algo := w.Algo
		eff := s.overclock.Resolve(profile, algo)
		if eff.IsEmpty() {
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		if err := s.overclock.ApplyToWorker(w, eff, mode, algo); err != nil {
			entry.Error = err.Error()
			resp.Failed++
			resp.Commands = append(resp.Commands, entry)
			continue
		}
		payload, _ := json.Marshal(map[string]any{"oc": eff, "mode": mode})
		id, err := s.Enqueue(uuid, models.CmdOCApply, payload)
		if err != nil {
			entry.Error = err.Error()
			resp.Failed++
		} else {
			entry.CommandID = id
		}
		resp.Commands = append(resp.Commands, entry)
	}
	return resp
}
