package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

type OverclockService struct {
	profiles *repo.OCProfileRepository
	workers  *repo.WorkerRepository
}

func NewOverclockService(profiles *repo.OCProfileRepository, workers *repo.WorkerRepository) *OverclockService {
	return &OverclockService{profiles: profiles, workers: workers}
}

func (s *OverclockService) CreateProfile(req dto.OCProfileRequest) (*models.OCProfile, error) {
	if req.Name == "" {
		return nil, apperr.Validation("name", "required")
	}
	defJSON, err := json.Marshal(req.Default)
	if err != nil {
		return nil, err
	}
	byAlgoJSON, err := json.Marshal(req.ByAlgo)
	if err != nil {
		return nil, err
	}
	p := &models.OCProfile{FarmID: req.FarmID, Name: req.Name, Default: string(defJSON), ByAlgo: string(byAlgoJSON)}
	if err := s.profiles.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *OverclockService) UpdateProfile(id uint, req dto.OCProfileRequest) (*models.OCProfile, error) {
	p, err := s.profiles.Find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("oc_profile", fmt.Sprint(id))
		}
		return nil, err
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	defJSON, err := json.Marshal(req.Default)
	if err != nil {
		return nil, err
	}
	byAlgoJSON, err := json.Marshal(req.ByAlgo)
	if err != nil {
		return nil, err
	}
	p.Default = string(defJSON)
	p.ByAlgo = string(byAlgoJSON)
	if err := s.profiles.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *OverclockService) DeleteProfile(id uint) error { return s.profiles.Delete(id) }

func (s *OverclockService) ListProfiles(farmID uint) ([]dto.OCProfileResponse, error) {
	ps, err := s.profiles.ListByFarm(farmID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OCProfileResponse, 0, len(ps))
	for i := range ps {
		resp, err := decodeProfile(&ps[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *OverclockService) GetProfile(id uint) (*models.OCProfile, *dto.OCProfileResponse, error) {
	p, err := s.profiles.Find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("oc_profile", fmt.Sprint(id))
		}
		return nil, nil, err
	}
	resp, err := decodeProfile(p)
	if err != nil {
		return nil, nil, err
	}
	return p, resp, nil
}

func decodeProfile(p *models.OCProfile) (*dto.OCProfileResponse, error) {
	resp := &dto.OCProfileResponse{ID: p.ID, FarmID: p.FarmID, Name: p.Name}
	if p.Default != "" {
		if err := json.Unmarshal([]byte(p.Default), &resp.Default); err != nil {
			return nil, fmt.Errorf("decode oc profile %d default: %w", p.ID, err)
		}
	}
	if p.ByAlgo != "" {
		if err := json.Unmarshal([]byte(p.ByAlgo), &resp.ByAlgo); err != nil {
			return nil, fmt.Errorf("decode oc profile %d by_algo: %w", p.ID, err)
		}
	}
	return resp, nil
}

// Resolve là hàm thuần: default + overlay của entry khớp algorithm. Không có
// entry khớp và default rỗng -> config rỗng, nghĩa là "đừng đổi overclock".
// Nhiều entry trùng algorithm: entry sau thắng (overlay lần lượt).
func (s *OverclockService) Resolve(profile dto.OCProfileResponse, activeAlgo string) dto.OCConfig {
	eff := cloneConfig(profile.Default)
	for _, ov := range profile.ByAlgo {
		if ov.Algo == activeAlgo {
			eff = overlayConfig(eff, ov.Config)
		}
	}
	return eff
}

// ResolveByID tiện cho dispatcher/scheduler: load profile rồi Resolve.
func (s *OverclockService) ResolveByID(profileID uint, activeAlgo string) (dto.OCConfig, error) {
	_, resp, err := s.GetProfile(profileID)
	if err != nil {
		return dto.OCConfig{}, err
	}
	return s.Resolve(*resp, activeAlgo), nil
}

// ApplyToWorker ghi effective config vào trạng thái resolved của worker.
// replace: bỏ toàn bộ config cũ; merge: chỉ đè field có mặt trong cfg.
func (s *OverclockService) ApplyToWorker(w *models.Worker, cfg dto.OCConfig, mode dto.ApplyMode, algo string) error {
	if cfg.IsEmpty() {
		return nil // "do not change overclock"
	}
	next := cfg
	if mode == dto.ApplyMerge && w.ResolvedOC != "" {
		var current dto.OCConfig
		if err := json.Unmarshal([]byte(w.ResolvedOC), &current); err == nil {
			next = mergeConfig(current, cfg)
		}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	w.ResolvedOC = string(data)
	w.ResolvedOCAlgo = algo
	return s.workers.SetResolvedOC(w.UUID, w.ResolvedOC, algo)
}

// mergeConfig là merge mức device (apply mode "merge"): chỉ field có mặt
// trong over được đè; tweaker thay nguyên cụm theo tool, không nối, để apply
// hai lần cùng một config cho cùng kết quả như một lần.
func mergeConfig(current, over dto.OCConfig) dto.OCConfig {
	out := cloneConfig(current)
	out.Amd = overlayBrand(out.Amd, over.Amd)
	out.Nvidia = overlayBrand(out.Nvidia, over.Nvidia)
	if len(over.Tweakers) > 0 {
		if out.Tweakers == nil {
			out.Tweakers = map[string][]dto.TweakerRule{}
		}
		for tool, rules := range over.Tweakers {
			out.Tweakers[tool] = cloneRules(rules)
		}
	}
	return out
}

// overlayConfig deep-merge: field brand non-nil của over đè lên base, field
// vắng mặt giữ nguyên base; tweaker nối theo tool (base trước, over sau, nên
// rule của over thắng khi trùng dải index — last wins).
func overlayConfig(base, over dto.OCConfig) dto.OCConfig {
	out := cloneConfig(base)
	out.Amd = overlayBrand(out.Amd, over.Amd)
	out.Nvidia = overlayBrand(out.Nvidia, over.Nvidia)
	if len(over.Tweakers) > 0 {
		if out.Tweakers == nil {
			out.Tweakers = map[string][]dto.TweakerRule{}
		}
		for tool, rules := range over.Tweakers {
			out.Tweakers[tool] = append(out.Tweakers[tool], cloneRules(rules)...)
		}
	}
	return out
}

func overlayBrand(base, over *dto.BrandConfig) *dto.BrandConfig {
	if over == nil {
		return base
	}
	out := &dto.BrandConfig{}
	if base != nil {
		*out = *base
	}
	if over.CoreClock != nil {
		out.CoreClock = over.CoreClock
	}
	if over.CoreVoltage != nil {
		out.CoreVoltage = over.CoreVoltage
	}
	if over.MemClock != nil {
		out.MemClock = over.MemClock
	}
	if over.MemVoltage != nil {
		out.MemVoltage = over.MemVoltage
	}
	if over.FanSpeed != nil {
		out.FanSpeed = over.FanSpeed
	}
	if over.PowerLimit != nil {
		out.PowerLimit = over.PowerLimit
	}
	return out
}

func cloneConfig(c dto.OCConfig) dto.OCConfig {
	out := dto.OCConfig{}
	if c.Amd != nil {
		amd := *c.Amd
		out.Amd = &amd
	}
	if c.Nvidia != nil {
		nv := *c.Nvidia
		out.Nvidia = &nv
	}
	if len(c.Tweakers) > 0 {
		out.Tweakers = make(map[string][]dto.TweakerRule, len(c.Tweakers))
		for tool, rules := range c.Tweakers {
			out.Tweakers[tool] = cloneRules(rules)
		}
	}
	return out
}

func cloneRules(rules []dto.TweakerRule) []dto.TweakerRule {
	out := make([]dto.TweakerRule, len(rules))
	for i, r := range rules {
		cloned := dto.TweakerRule{}
		if len(r.Indexes) > 0 {
			cloned.Indexes = append([]int(nil), r.Indexes...)
		}
		if r.Options != nil {
			cloned.Options = make(map[string]string, len(r.Options))
			for k, v := range r.Options {
				cloned.Options[k] = v
			}
		}
		out[i] = cloned
	}
	return out
}
