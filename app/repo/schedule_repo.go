package repo

import (
	"time"

	"rigfleet/app/models"

	"gorm.io/gorm"
)

type ScheduleRepository struct{ db *gorm.DB }

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) Create(s *models.Schedule) error { return r.db.Create(s).Error }

func (r *ScheduleRepository) Save(s *models.Schedule) error { return r.db.Save(s).Error }

func (r *ScheduleRepository) Find(id uint) (*models.Schedule, error) {
	var s models.Schedule
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepository) ListAll() ([]models.Schedule, error) {
	var out []models.Schedule
	if err := r.db.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ScheduleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Schedule{}, id).Error
}

// Due: schedule active có next_launch_at <= now.
func (r *ScheduleRepository) Due(now time.Time) ([]models.Schedule, error) {
	var out []models.Schedule
	err := r.db.Where("active = ? AND next_launch_at IS NOT NULL AND next_launch_at <= ?", true, now).
		Order("next_launch_at ASC").Find(&out).Error
	return out, err
}

// Advance commit cursor của một lần fire trong một UPDATE duy nhất, CAS trên
// next_launch_at: chỉ thắng nếu cursor vẫn đang trỏ occurrence vừa fire. Hai
// process cùng qua được lease thì đúng một bên advance được.
func (r *ScheduleRepository) Advance(id uint, prev time.Time, next *time.Time, active bool) (bool, error) {
	res := r.db.Model(&models.Schedule{}).
		Where("id = ? AND next_launch_at = ?", id, prev).
		Updates(map[string]any{
			"prev_launch_at": prev,
			"next_launch_at": next,
			"active":         active,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *ScheduleRepository) SetActive(id uint, active bool) error {
	return r.db.Model(&models.Schedule{}).Where("id = ?", id).
		Update("active", active).Error
}
