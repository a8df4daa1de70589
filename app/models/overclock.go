package models

import "time"

// OCProfile: block default + danh sách override theo algorithm, cả hai serialize
// JSON (dto.OCConfig / []dto.AlgoOverride). Thứ tự trong ByAlgo có ý nghĩa:
// entry sau thắng khi trùng algorithm.
type OCProfile struct {
	ID        uint   `gorm:"primaryKey"`
	FarmID    uint   `gorm:"index"`
	Name      string `gorm:"size:255"`
	Default   string `gorm:"type:longtext"`
	ByAlgo    string `gorm:"type:longtext"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
