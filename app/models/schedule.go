package models

import "time"

// Schedule: target là tag list HOẶC container (mutually exclusive). Action
// serialize JSON (dto.ScheduleAction). PrevLaunchAt/NextLaunchAt là cursor bền
// của scheduler; không giữ timer in-memory nào qua restart.
type Schedule struct {
	ID          uint   `gorm:"primaryKey"`
	FarmID      uint   `gorm:"index"`
	Name        string `gorm:"size:255"`
	TagIDs      string `gorm:"size:1024"` // JSON array; rỗng nếu target là container
	ContainerID *uint  `gorm:"index"`
	Action      string `gorm:"type:longtext"`

	LaunchAt time.Time
	RRule    string `gorm:"size:255"` // iCalendar RRULE; rỗng = one-shot
	Timezone string `gorm:"size:64"`

	Active       bool `gorm:"index"`
	PrevLaunchAt *time.Time
	NextLaunchAt *time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
