package models

import "time"

type Platform string

const (
	PlatformRig    Platform = "rig"
	PlatformASIC   Platform = "asic"
	PlatformDevice Platform = "device"
)

// Worker là một thành viên của fleet (rig GPU, ASIC hoặc thiết bị generic).
// Worker không giữ kết nối; nó poll định kỳ để lấy config + command.
type Worker struct {
	ID            uint     `gorm:"primaryKey"`
	UUID          string   `gorm:"uniqueIndex;size:191;not null"`
	FarmID        uint     `gorm:"index"`
	Name          string   `gorm:"size:255"`
	Platform      Platform `gorm:"size:16;index"`
	Active        bool     `gorm:"index"`
	FlightSheetID *uint    `gorm:"index"`
	Algo          string   `gorm:"size:64"` // algorithm đang đào theo flight sheet hiện tại

	// Resolved = config lẽ ra phải áp dụng theo flight sheet/tuning hiện tại.
	// Applied = config worker đã xác nhận áp dụng. Hai bên có thể lệch nhau
	// cho tới khi worker poll và report thành công.
	ResolvedOC     string `gorm:"type:longtext"`
	ResolvedOCAlgo string `gorm:"size:64"`
	AppliedOC      string `gorm:"type:longtext"`
	AppliedOCAlgo  string `gorm:"size:64"`

	MinerConfig string `gorm:"type:longtext"`

	LastSeenAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WorkerTag: bảng nối worker -> tag; tag CRUD thuộc hệ thống ngoài.
type WorkerTag struct {
	ID         uint   `gorm:"primaryKey"`
	WorkerUUID string `gorm:"size:191;index:idx_worker_tag,unique"`
	TagID      uint   `gorm:"index:idx_worker_tag,unique"`
}

type MessageLevel string

const (
	MessageSuccess MessageLevel = "success"
	MessageInfo    MessageLevel = "info"
	MessageWarning MessageLevel = "warning"
	MessageDanger  MessageLevel = "danger"
	MessageFile    MessageLevel = "file"
)

// WorkerMessage là bản ghi kết quả/sự kiện hiển thị cho operator, tạo ra khi
// worker report command. Việc fan-out tới kênh notification là của hệ thống ngoài.
type WorkerMessage struct {
	ID         uint         `gorm:"primaryKey"`
	WorkerUUID string       `gorm:"size:191;index"`
	CommandID  *uint        `gorm:"index"`
	Level      MessageLevel `gorm:"size:16"`
	Title      string       `gorm:"size:255"`
	Payload    string       `gorm:"type:longtext"`
	Resolved   bool
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
