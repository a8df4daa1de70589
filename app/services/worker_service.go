package services

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

// WorkerService là registry: danh tính, tag, heartbeat và config đã resolve
// của từng worker. Stats/telemetry do collaborator ngoài thu.
type WorkerService struct {
	workers *repo.WorkerRepository
}

func NewWorkerService(workers *repo.WorkerRepository) *WorkerService {
	return &WorkerService{workers: workers}
}

func (s *WorkerService) Register(req dto.RegisterRequest) (*models.Worker, error) {
	platform := models.Platform(req.Platform)
	switch platform {
	case models.PlatformRig, models.PlatformASIC, models.PlatformDevice:
	case "":
		platform = models.PlatformRig
	default:
		return nil, apperr.Validation("platform", "must be rig, asic or device")
	}
	w := &models.Worker{
		UUID:     req.UUID,
		FarmID:   req.FarmID,
		Name:     req.Name,
		Platform: platform,
		Active:   true,
	}
	if w.UUID == "" {
		w.UUID = uuid.NewString()
	}
	if err := s.workers.Upsert(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkerService) FindByUUID(uuid string) (*models.Worker, error) {
	w, err := s.workers.FindByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("worker", uuid)
		}
		return nil, err
	}
	return w, nil
}

func (s *WorkerService) ListAll() ([]models.Worker, error) { return s.workers.ListAll() }

func (s *WorkerService) Heartbeat(uuid string) error {
	return s.workers.TouchLastSeen(uuid, time.Now())
}

func (s *WorkerService) TagIDs(uuid string) ([]uint, error) { return s.workers.TagIDs(uuid) }

func (s *WorkerService) AssignTags(uuid string, tagIDs []uint) error {
	if _, err := s.FindByUUID(uuid); err != nil {
		return err
	}
	return s.workers.ReplaceTags(uuid, tagIDs)
}

func (s *WorkerService) Messages(uuid string, unresolvedOnly bool) ([]models.WorkerMessage, error) {
	if _, err := s.FindByUUID(uuid); err != nil {
		return nil, err
	}
	return s.workers.ListMessages(uuid, unresolvedOnly)
}
