package repo

import (
	"time"

	"rigfleet/app/models"

	"gorm.io/gorm"
)

type CommandRepository struct{ db *gorm.DB }

func NewCommandRepository(db *gorm.DB) *CommandRepository { return &CommandRepository{db: db} }

func (r *CommandRepository) Create(cmd *models.Command) error {
	return r.db.Create(cmd).Error
}

func (r *CommandRepository) Find(id uint) (*models.Command, error) {
	var c models.Command
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListQueue trả về queue của một worker theo thứ tự enqueue. Mặc định chỉ lấy
// command chưa resolve (queue mà worker nhìn thấy khi poll).
func (r *CommandRepository) ListQueue(workerUUID string, includeResolved bool) ([]models.Command, error) {
	q := r.db.Where("worker_uuid = ?", workerUUID)
	if !includeResolved {
		q = q.Where("status IN ?", []models.CommandStatus{models.CommandPending, models.CommandDelivered})
	}
	var cmds []models.Command
	if err := q.Order("id ASC").Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

func (r *CommandRepository) CountPending(workerUUID string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Command{}).
		Where("worker_uuid = ? AND status IN ?", workerUUID,
			[]models.CommandStatus{models.CommandPending, models.CommandDelivered}).
		Count(&n).Error
	return n, err
}

// HasPendingOfType hỗ trợ idempotency phía caller ("chưa có config-apply nào
// pending thì mới enqueue").
func (r *CommandRepository) HasPendingOfType(workerUUID string, t models.CommandType) (bool, error) {
	var n int64
	err := r.db.Model(&models.Command{}).
		Where("worker_uuid = ? AND type = ? AND status IN ?", workerUUID, t,
			[]models.CommandStatus{models.CommandPending, models.CommandDelivered}).
		Count(&n).Error
	return n > 0, err
}

func (r *CommandRepository) MarkDelivered(ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Command{}).
		Where("id IN ? AND status = ?", ids, models.CommandPending).
		Updates(map[string]any{"status": models.CommandDelivered, "delivered_at": at}).Error
}

// Resolve đánh dấu command đã xong và lưu result. Trả về số row bị ảnh hưởng
// để caller phân biệt report lạc (command đã bị xoá).
func (r *CommandRepository) Resolve(id uint, result string, at time.Time) (int64, error) {
	res := r.db.Model(&models.Command{}).
		Where("id = ? AND status <> ?", id, models.CommandResolved).
		Updates(map[string]any{"status": models.CommandResolved, "result": result, "resolved_at": at})
	return res.RowsAffected, res.Error
}
