package repo

import (
	"rigfleet/app/models"

	"gorm.io/gorm"
)

type OCProfileRepository struct{ db *gorm.DB }

func NewOCProfileRepository(db *gorm.DB) *OCProfileRepository { return &OCProfileRepository{db: db} }

func (r *OCProfileRepository) Create(p *models.OCProfile) error { return r.db.Create(p).Error }

func (r *OCProfileRepository) Save(p *models.OCProfile) error { return r.db.Save(p).Error }

func (r *OCProfileRepository) Find(id uint) (*models.OCProfile, error) {
	var p models.OCProfile
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *OCProfileRepository) ListByFarm(farmID uint) ([]models.OCProfile, error) {
	var out []models.OCProfile
	if err := r.db.Where("farm_id = ?", farmID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OCProfileRepository) Delete(id uint) error {
	return r.db.Delete(&models.OCProfile{}, id).Error
}
