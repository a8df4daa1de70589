package models

import "time"

type AsyncStatus string

const (
	AsyncPending    AsyncStatus = "pending"
	AsyncProcessing AsyncStatus = "processing"
	AsyncDone       AsyncStatus = "done"
	AsyncError      AsyncStatus = "error"
	AsyncExpired    AsyncStatus = "expired"
)

// AsyncRequest bọc một thao tác chậm/nhiều worker sau một request id. Envelope
// kết quả giữ nguyên status/headers/body gốc để caller replay y hệt.
type AsyncRequest struct {
	ID            string      `gorm:"primaryKey;size:36"`
	Status        AsyncStatus `gorm:"size:16;index"`
	Deadline      time.Time   // quá hạn mà chưa claim -> expired
	ResultStatus  int
	ResultHeaders string `gorm:"type:longtext"` // JSON map[string][]string
	ResultBody    string `gorm:"type:longtext"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
