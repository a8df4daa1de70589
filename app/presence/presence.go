package presence

import (
	"sort"
	"sync"
	"time"
)

// Tracker suy ra trạng thái online từ thời điểm poll gần nhất. Worker không
// giữ kết nối nào, nên "online" chỉ có nghĩa "đã poll trong cửa sổ gần đây".
type Tracker struct {
	mu       sync.RWMutex
	lastPoll map[string]time.Time
	window   time.Duration
}

func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = 2 * time.Minute
	}
	return &Tracker{lastPoll: make(map[string]time.Time), window: window}
}

func (t *Tracker) Touch(workerUUID string) {
	t.mu.Lock()
	t.lastPoll[workerUUID] = time.Now()
	t.mu.Unlock()
}

func (t *Tracker) IsOnline(workerUUID string) bool {
	t.mu.RLock()
	last, ok := t.lastPoll[workerUUID]
	t.mu.RUnlock()
	return ok && time.Since(last) <= t.window
}

// OnlineWorkers trả về danh sách worker đang trong cửa sổ poll, sort để output
// ổn định.
func (t *Tracker) OnlineWorkers() []string {
	now := time.Now()
	t.mu.Lock()
	out := make([]string, 0, len(t.lastPoll))
	for id, last := range t.lastPoll {
		if now.Sub(last) <= t.window {
			out = append(out, id)
		} else {
			delete(t.lastPoll, id)
		}
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}
