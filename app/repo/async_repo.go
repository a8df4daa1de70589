package repo

import (
	"time"

	"rigfleet/app/models"

	"gorm.io/gorm"
)

type AsyncRequestRepository struct{ db *gorm.DB }

func NewAsyncRequestRepository(db *gorm.DB) *AsyncRequestRepository {
	return &AsyncRequestRepository{db: db}
}

func (r *AsyncRequestRepository) Create(req *models.AsyncRequest) error {
	return r.db.Create(req).Error
}

func (r *AsyncRequestRepository) Find(id string) (*models.AsyncRequest, error) {
	var req models.AsyncRequest
	if err := r.db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Claim là CAS: UPDATE có điều kiện status=pending, chỉ claimant đầu tiên thấy
// RowsAffected=1. Request đã expired không claim được nữa.
// Claim CAS pending -> processing. Quá deadline thì thua luôn, không chờ
// sweep: claim muộn không bao giờ đưa request tới done.
func (r *AsyncRequestRepository) Claim(id string, now time.Time) (bool, error) {
	res := r.db.Model(&models.AsyncRequest{}).
		Where("id = ? AND status = ? AND deadline >= ?", id, models.AsyncPending, now).
		Update("status", models.AsyncProcessing)
	return res.RowsAffected == 1, res.Error
}

func (r *AsyncRequestRepository) Complete(id string, status models.AsyncStatus, httpStatus int, headersJSON, body string) error {
	return r.db.Model(&models.AsyncRequest{}).
		Where("id = ? AND status = ?", id, models.AsyncProcessing).
		Updates(map[string]any{
			"status":         status,
			"result_status":  httpStatus,
			"result_headers": headersJSON,
			"result_body":    body,
		}).Error
}

// ExpirePending chỉ đụng tới request còn pending quá deadline; processing/done
// không bao giờ bị expire.
func (r *AsyncRequestRepository) ExpirePending(now time.Time) (int64, error) {
	res := r.db.Model(&models.AsyncRequest{}).
		Where("status = ? AND deadline < ?", models.AsyncPending, now).
		Update("status", models.AsyncExpired)
	return res.RowsAffected, res.Error
}

// DeleteFinishedBefore dọn request terminal quá retention window.
func (r *AsyncRequestRepository) DeleteFinishedBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("status IN ? AND updated_at < ?",
		[]models.AsyncStatus{models.AsyncDone, models.AsyncError, models.AsyncExpired}, cutoff).
		Delete(&models.AsyncRequest{})
	return res.RowsAffected, res.Error
}
