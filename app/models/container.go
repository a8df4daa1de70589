package models

import "time"

// Container là lưới rows x cols; mỗi cell trỏ tới một worker hoặc một container
// con. Cây phải acyclic — kiểm tra khi attach, phòng thủ thêm khi duyệt.
type Container struct {
	ID        uint   `gorm:"primaryKey"`
	FarmID    uint   `gorm:"index"`
	Name      string `gorm:"size:255"`
	Rows      int
	Cols      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainerCell: đúng một trong WorkerUUID / ChildID được set.
type ContainerCell struct {
	ID          uint   `gorm:"primaryKey"`
	ContainerID uint   `gorm:"index:idx_cell_pos,unique"`
	X           int    `gorm:"index:idx_cell_pos,unique"`
	Y           int    `gorm:"index:idx_cell_pos,unique"`
	WorkerUUID  string `gorm:"size:191"`
	ChildID     *uint  `gorm:"index"`
}
