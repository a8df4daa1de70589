package dto

// BrandConfig dùng pointer field để phân biệt "không set" với zero value; chỉ
// field non-nil mới tham gia overlay/merge.
type BrandConfig struct {
	CoreClock   *int `json:"core_clock,omitempty"`
	CoreVoltage *int `json:"core_voltage,omitempty"`
	MemClock    *int `json:"mem_clock,omitempty"`
	MemVoltage  *int `json:"mem_voltage,omitempty"`
	FanSpeed    *int `json:"fan,omitempty"`
	PowerLimit  *int `json:"power_limit,omitempty"`
}

// TweakerRule: một entry của tool tweaker, tuỳ chọn giới hạn theo index GPU
// trong worker. Indexes rỗng = áp dụng mọi unit.
type TweakerRule struct {
	Indexes []int             `json:"indexes,omitempty"`
	Options map[string]string `json:"options"`
}

type OCConfig struct {
	Amd      *BrandConfig             `json:"amd,omitempty"`
	Nvidia   *BrandConfig             `json:"nvidia,omitempty"`
	Tweakers map[string][]TweakerRule `json:"tweakers,omitempty"`
}

// IsEmpty: config rỗng nghĩa là "đừng đổi overclock", không phải lỗi.
func (c OCConfig) IsEmpty() bool {
	return c.Amd == nil && c.Nvidia == nil && len(c.Tweakers) == 0
}

// AlgoOverride: entry trong OCProfile.ByAlgo, overlay lên default khi worker
// đang chạy đúng algorithm.
type AlgoOverride struct {
	Algo   string   `json:"algo"`
	Config OCConfig `json:"config"`
}

type ApplyMode string

const (
	ApplyReplace ApplyMode = "replace"
	ApplyMerge   ApplyMode = "merge"
)

type OCProfileRequest struct {
	FarmID  uint           `json:"farm_id"`
	Name    string         `json:"name"`
	Default OCConfig       `json:"default"`
	ByAlgo  []AlgoOverride `json:"by_algo,omitempty"`
}

type OCProfileResponse struct {
	ID      uint           `json:"id"`
	FarmID  uint           `json:"farm_id"`
	Name    string         `json:"name"`
	Default OCConfig       `json:"default"`
	ByAlgo  []AlgoOverride `json:"by_algo,omitempty"`
}
