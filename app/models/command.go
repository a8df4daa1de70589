package models

import "time"

type CommandType string

const (
	CmdReboot      CommandType = "reboot"
	CmdShutdown    CommandType = "shutdown"
	CmdUpgrade     CommandType = "upgrade"
	CmdMinerAction CommandType = "miner_action"
	CmdExec        CommandType = "exec"
	CmdROMFlash    CommandType = "rom_flash"
	CmdOCApply     CommandType = "oc_apply"
	CmdFSApply     CommandType = "fs_apply"
	CmdConfigApply CommandType = "config_apply"
)

type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandDelivered CommandStatus = "delivered"
	CommandResolved  CommandStatus = "resolved"
)

// Command lưu queue bền cho từng worker. Poll không xoá entry; command chỉ
// rời trạng thái pending/delivered khi worker report đúng id (at-least-once).
type Command struct {
	ID          uint          `gorm:"primaryKey"`
	WorkerUUID  string        `gorm:"size:191;index"`
	Type        CommandType   `gorm:"size:32"`
	Payload     string        `gorm:"type:longtext"` // JSON argument, variant theo Type
	Status      CommandStatus `gorm:"size:16;index"`
	Result      string        `gorm:"type:longtext"`
	CreatedAt   time.Time     `gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime"`
	DeliveredAt *time.Time
	ResolvedAt  *time.Time
}
