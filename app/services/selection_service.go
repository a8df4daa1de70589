package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/repo"
)

// SelectionService biến một SelectionSpec thành tập worker uuid ổn định.
// Snapshot tách "preview" khỏi "act": list endpoint trả search_id, bulk
// endpoint resolve lại đúng tập đó dù tag đã đổi giữa chừng.
type SelectionService struct {
	workers   *repo.WorkerRepository
	snapshots SnapshotStore
	ttl       time.Duration
	matchAll  bool
}

func NewSelectionService(workers *repo.WorkerRepository, snapshots SnapshotStore, ttl time.Duration, matchAll bool) *SelectionService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SelectionService{workers: workers, snapshots: snapshots, ttl: ttl, matchAll: matchAll}
}

// Resolve: đúng một trong WorkerUUIDs / TagIDs / SearchID phải được set.
// Snapshot scope theo user phát hành (userID vào cache key).
func (s *SelectionService) Resolve(ctx context.Context, userID uint, spec dto.SelectionSpec) ([]string, error) {
	set := 0
	if len(spec.WorkerUUIDs) > 0 {
		set++
	}
	if len(spec.TagIDs) > 0 {
		set++
	}
	if spec.SearchID != "" {
		set++
	}
	if set != 1 {
		return nil, apperr.Validation("selection", "exactly one of worker_uuids, tag_ids, search_id required")
	}

	switch {
	case len(spec.WorkerUUIDs) > 0:
		return spec.WorkerUUIDs, nil
	case len(spec.TagIDs) > 0:
		if s.matchAll {
			return s.workers.UUIDsWithAllTags(spec.TagIDs)
		}
		return s.workers.UUIDsWithAnyTag(spec.TagIDs)
	default:
		workers, found, err := s.snapshots.Get(ctx, snapshotKey(userID, spec.SearchID))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &apperr.SnapshotExpiredError{SearchID: spec.SearchID}
		}
		return workers, nil
	}
}

// Snapshot cache tập worker hiện tại của spec và trả về search_id dùng lại
// được trong TTL.
func (s *SelectionService) Snapshot(ctx context.Context, userID uint, spec dto.SelectionSpec) (string, []string, error) {
	workers, err := s.Resolve(ctx, userID, spec)
	if err != nil {
		return "", nil, err
	}
	searchID := uuid.NewString()
	if err := s.snapshots.Put(ctx, snapshotKey(userID, searchID), workers, s.ttl); err != nil {
		return "", nil, err
	}
	return searchID, workers, nil
}

func snapshotKey(userID uint, searchID string) string {
	return fmt.Sprintf("%d:%s", userID, searchID)
}
