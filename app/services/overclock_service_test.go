package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigfleet/app/dto"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

func newOverclockService(t *testing.T) (*OverclockService, *repo.WorkerRepository, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	return NewOverclockService(repo.NewOCProfileRepository(gdb), workers), workers, gdb
}

func TestResolvePerAlgoOverlay(t *testing.T) {
	svc, _, _ := newOverclockService(t)
	profile := dto.OCProfileResponse{
		Default: dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(50)}},
		ByAlgo: []dto.AlgoOverride{
			{Algo: "ethash", Config: dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(70)}}},
		},
	}

	eff := svc.Resolve(profile, "ethash")
	require.NotNil(t, eff.Amd)
	assert.Equal(t, 70, *eff.Amd.FanSpeed)

	eff = svc.Resolve(profile, "kawpow")
	require.NotNil(t, eff.Amd)
	assert.Equal(t, 50, *eff.Amd.FanSpeed)
}

func TestResolveFieldLevelMergeAndTweakerConcat(t *testing.T) {
	svc, _, _ := newOverclockService(t)
	profile := dto.OCProfileResponse{
		Default: dto.OCConfig{
			Amd:    &dto.BrandConfig{CoreClock: intp(1100), FanSpeed: intp(50)},
			Nvidia: &dto.BrandConfig{PowerLimit: intp(120)},
			Tweakers: map[string][]dto.TweakerRule{
				"amdmemtweak": {{Options: map[string]string{"ref": "20"}}},
			},
		},
		ByAlgo: []dto.AlgoOverride{
			{Algo: "ethash", Config: dto.OCConfig{
				Amd: &dto.BrandConfig{FanSpeed: intp(70)}, // core_clock không set -> giữ default
				Tweakers: map[string][]dto.TweakerRule{
					"amdmemtweak": {{Indexes: []int{0, 1}, Options: map[string]string{"ref": "30"}}},
				},
			}},
		},
	}

	eff := svc.Resolve(profile, "ethash")
	require.NotNil(t, eff.Amd)
	assert.Equal(t, 1100, *eff.Amd.CoreClock)
	assert.Equal(t, 70, *eff.Amd.FanSpeed)
	require.NotNil(t, eff.Nvidia)
	assert.Equal(t, 120, *eff.Nvidia.PowerLimit)

	// Tweaker nối default trước, per-algo sau: rule sau thắng khi trùng index.
	rules := eff.Tweakers["amdmemtweak"]
	require.Len(t, rules, 2)
	assert.Equal(t, "20", rules[0].Options["ref"])
	assert.Equal(t, "30", rules[1].Options["ref"])
}

func TestResolveDeterministic(t *testing.T) {
	svc, _, _ := newOverclockService(t)
	profile := dto.OCProfileResponse{
		Default: dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(50)}},
		ByAlgo: []dto.AlgoOverride{
			{Algo: "ethash", Config: dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(70)}}},
		},
	}
	a := svc.Resolve(profile, "ethash")
	b := svc.Resolve(profile, "ethash")
	assert.Equal(t, a, b)
}

func TestResolveDoesNotAliasProfileTweakers(t *testing.T) {
	svc, _, _ := newOverclockService(t)
	profile := dto.OCProfileResponse{
		Default: dto.OCConfig{
			Tweakers: map[string][]dto.TweakerRule{
				"amdmemtweak": {{Indexes: []int{0}, Options: map[string]string{"ref": "20"}}},
			},
		},
	}

	eff := svc.Resolve(profile, "ethash")
	require.Len(t, eff.Tweakers["amdmemtweak"], 1)

	// Sửa config đã resolve không được lan ngược về profile gốc.
	eff.Tweakers["amdmemtweak"][0].Options["ref"] = "99"
	eff.Tweakers["amdmemtweak"][0].Indexes[0] = 7

	again := svc.Resolve(profile, "ethash")
	require.Len(t, again.Tweakers["amdmemtweak"], 1)
	assert.Equal(t, "20", again.Tweakers["amdmemtweak"][0].Options["ref"])
	assert.Equal(t, []int{0}, again.Tweakers["amdmemtweak"][0].Indexes)
}

func TestResolveEmptyProfile(t *testing.T) {
	svc, _, _ := newOverclockService(t)
	eff := svc.Resolve(dto.OCProfileResponse{}, "ethash")
	assert.True(t, eff.IsEmpty())
}

func TestApplyReplaceDiscardsPrevious(t *testing.T) {
	svc, workers, gdb := newOverclockService(t)
	seedWorker(t, gdb, "w1", "ethash")
	w, err := workers.FindByUUID("w1")
	require.NoError(t, err)

	first := dto.OCConfig{Amd: &dto.BrandConfig{CoreClock: intp(1100), FanSpeed: intp(50)}}
	require.NoError(t, svc.ApplyToWorker(w, first, dto.ApplyReplace, "ethash"))

	second := dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(70)}}
	require.NoError(t, svc.ApplyToWorker(w, second, dto.ApplyReplace, "ethash"))

	var got dto.OCConfig
	require.NoError(t, json.Unmarshal([]byte(w.ResolvedOC), &got))
	assert.Nil(t, got.Amd.CoreClock, "replace must discard fields of the previous config")
	assert.Equal(t, 70, *got.Amd.FanSpeed)
}

func TestApplyMergeIdempotent(t *testing.T) {
	svc, workers, gdb := newOverclockService(t)
	seedWorker(t, gdb, "w1", "ethash")
	w, err := workers.FindByUUID("w1")
	require.NoError(t, err)

	base := dto.OCConfig{Amd: &dto.BrandConfig{CoreClock: intp(1100), FanSpeed: intp(50)},
		Tweakers: map[string][]dto.TweakerRule{"amdmemtweak": {{Options: map[string]string{"ref": "20"}}}}}
	require.NoError(t, svc.ApplyToWorker(w, base, dto.ApplyReplace, "ethash"))

	patch := dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(70)},
		Tweakers: map[string][]dto.TweakerRule{"amdmemtweak": {{Options: map[string]string{"ref": "30"}}}}}
	require.NoError(t, svc.ApplyToWorker(w, patch, dto.ApplyMerge, "ethash"))
	once := w.ResolvedOC

	require.NoError(t, svc.ApplyToWorker(w, patch, dto.ApplyMerge, "ethash"))
	assert.JSONEq(t, once, w.ResolvedOC, "merge with the same config must be idempotent")

	var got dto.OCConfig
	require.NoError(t, json.Unmarshal([]byte(w.ResolvedOC), &got))
	assert.Equal(t, 1100, *got.Amd.CoreClock, "merge must keep fields absent from the patch")
	assert.Equal(t, 70, *got.Amd.FanSpeed)
	require.Len(t, got.Tweakers["amdmemtweak"], 1)
	assert.Equal(t, "30", got.Tweakers["amdmemtweak"][0].Options["ref"])
}

func TestApplyEmptyConfigIsNoChange(t *testing.T) {
	svc, workers, gdb := newOverclockService(t)
	seedWorker(t, gdb, "w1", "ethash")
	w, err := workers.FindByUUID("w1")
	require.NoError(t, err)

	require.NoError(t, svc.ApplyToWorker(w, dto.OCConfig{Amd: &dto.BrandConfig{FanSpeed: intp(50)}}, dto.ApplyReplace, "ethash"))
	before := w.ResolvedOC

	require.NoError(t, svc.ApplyToWorker(w, dto.OCConfig{}, dto.ApplyReplace, "ethash"))
	assert.Equal(t, before, w.ResolvedOC)
}
