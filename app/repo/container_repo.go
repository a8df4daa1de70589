package repo

import (
	"rigfleet/app/models"

	"gorm.io/gorm"
)

type ContainerRepository struct{ db *gorm.DB }

func NewContainerRepository(db *gorm.DB) *ContainerRepository { return &ContainerRepository{db: db} }

func (r *ContainerRepository) Create(c *models.Container, cells []models.ContainerCell) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		for i := range cells {
			cells[i].ContainerID = c.ID
			if err := tx.Create(&cells[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ContainerRepository) Find(id uint) (*models.Container, error) {
	var c models.Container
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContainerRepository) Cells(containerID uint) ([]models.ContainerCell, error) {
	var cells []models.ContainerCell
	if err := r.db.Where("container_id = ?", containerID).
		Order("y ASC, x ASC").Find(&cells).Error; err != nil {
		return nil, err
	}
	return cells, nil
}

func (r *ContainerRepository) UpsertCell(cell *models.ContainerCell) error {
	var existing models.ContainerCell
	err := r.db.Where("container_id = ? AND x = ? AND y = ?", cell.ContainerID, cell.X, cell.Y).
		First(&existing).Error
	if err == nil {
		cell.ID = existing.ID
		return r.db.Save(cell).Error
	}
	return r.db.Create(cell).Error
}

func (r *ContainerRepository) DeleteCell(containerID uint, x, y int) error {
	return r.db.Where("container_id = ? AND x = ? AND y = ?", containerID, x, y).
		Delete(&models.ContainerCell{}).Error
}

func (r *ContainerRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("container_id = ?", id).Delete(&models.ContainerCell{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Container{}, id).Error
	})
}
