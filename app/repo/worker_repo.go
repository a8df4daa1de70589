package repo

import (
	"time"

	"rigfleet/app/models"

	"gorm.io/gorm"
)

type WorkerRepository struct{ db *gorm.DB }

func NewWorkerRepository(db *gorm.DB) *WorkerRepository { return &WorkerRepository{db: db} }

func (r *WorkerRepository) FindByUUID(uuid string) (*models.Worker, error) {
	var w models.Worker
	if err := r.db.Where("uuid = ?", uuid).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkerRepository) Upsert(w *models.Worker) error {
	var existing models.Worker
	if err := r.db.Where("uuid = ?", w.UUID).First(&existing).Error; err == nil {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
		return r.db.Save(w).Error
	}
	return r.db.Create(w).Error
}

func (r *WorkerRepository) Save(w *models.Worker) error { return r.db.Save(w).Error }

func (r *WorkerRepository) ListAll() ([]models.Worker, error) {
	var out []models.Worker
	if err := r.db.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *WorkerRepository) TouchLastSeen(uuid string, at time.Time) error {
	return r.db.Model(&models.Worker{}).Where("uuid = ?", uuid).
		Update("last_seen_at", at).Error
}

// SetResolvedOC ghi config "lẽ ra phải áp dụng"; applied chỉ đổi khi worker
// report oc_apply thành công.
func (r *WorkerRepository) SetResolvedOC(uuid, ocJSON, algo string) error {
	return r.db.Model(&models.Worker{}).Where("uuid = ?", uuid).
		Updates(map[string]any{"resolved_oc": ocJSON, "resolved_oc_algo": algo}).Error
}

func (r *WorkerRepository) SetAppliedOC(uuid, ocJSON, algo string) error {
	return r.db.Model(&models.Worker{}).Where("uuid = ?", uuid).
		Updates(map[string]any{"applied_oc": ocJSON, "applied_oc_algo": algo}).Error
}

func (r *WorkerRepository) SetFlightSheet(uuid string, fsID *uint) error {
	return r.db.Model(&models.Worker{}).Where("uuid = ?", uuid).
		Update("flight_sheet_id", fsID).Error
}

// Tags

func (r *WorkerRepository) TagIDs(uuid string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.WorkerTag{}).Where("worker_uuid = ?", uuid).
		Order("tag_id ASC").Pluck("tag_id", &ids).Error
	return ids, err
}

func (r *WorkerRepository) ReplaceTags(uuid string, tagIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("worker_uuid = ?", uuid).Delete(&models.WorkerTag{}).Error; err != nil {
			return err
		}
		for _, id := range tagIDs {
			if err := tx.Create(&models.WorkerTag{WorkerUUID: uuid, TagID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UUIDsWithAnyTag: worker có ÍT NHẤT một tag trong danh sách.
func (r *WorkerRepository) UUIDsWithAnyTag(tagIDs []uint) ([]string, error) {
	var uuids []string
	err := r.db.Model(&models.WorkerTag{}).Where("tag_id IN ?", tagIDs).
		Distinct().Order("worker_uuid ASC").Pluck("worker_uuid", &uuids).Error
	return uuids, err
}

// UUIDsWithAllTags: worker có ĐỦ mọi tag trong danh sách.
func (r *WorkerRepository) UUIDsWithAllTags(tagIDs []uint) ([]string, error) {
	var uuids []string
	err := r.db.Model(&models.WorkerTag{}).Where("tag_id IN ?", tagIDs).
		Group("worker_uuid").Having("COUNT(DISTINCT tag_id) = ?", len(tagIDs)).
		Order("worker_uuid ASC").Pluck("worker_uuid", &uuids).Error
	return uuids, err
}

// Messages

func (r *WorkerRepository) CreateMessage(m *models.WorkerMessage) error {
	return r.db.Create(m).Error
}

func (r *WorkerRepository) ListMessages(uuid string, unresolvedOnly bool) ([]models.WorkerMessage, error) {
	q := r.db.Where("worker_uuid = ?", uuid)
	if unresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	var out []models.WorkerMessage
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
