package services

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rigfleet/app/apperr"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

// Envelope giữ nguyên response HTTP gốc (status/headers/body) để caller
// replay y hệt, kể cả status code.
type Envelope struct {
	Status  int
	Headers map[string][]string
	Body    []byte
}

// Job sinh ra envelope kết quả; trả error -> request kết thúc ở trạng thái
// error nhưng envelope (nếu có) vẫn được lưu.
type Job func() (Envelope, error)

// AsyncService bọc thao tác chậm/nhiều worker sau một request id với state
// machine pending -> processing -> done|error, pending -> expired khi quá
// deadline mà chưa worker nào claim.
type AsyncService struct {
	requests *repo.AsyncRequestRepository
	ttl      time.Duration
	log      zerolog.Logger

	jobs chan queuedJob
	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

type queuedJob struct {
	id  string
	job Job
}

func NewAsyncService(requests *repo.AsyncRequestRepository, ttl time.Duration, workers int, log zerolog.Logger) *AsyncService {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	if workers <= 0 {
		workers = 4
	}
	s := &AsyncService{
		requests: requests,
		ttl:      ttl,
		log:      log,
		jobs:     make(chan queuedJob, 256),
		stop:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Submit tạo request pending và đưa job vào pool. Trả request id ngay; caller
// poll GetStatus để lấy kết quả.
func (s *AsyncService) Submit(job Job) (string, error) {
	req := &models.AsyncRequest{
		ID:       uuid.NewString(),
		Status:   models.AsyncPending,
		Deadline: time.Now().Add(s.ttl),
	}
	if err := s.requests.Create(req); err != nil {
		return "", err
	}
	select {
	case s.jobs <- queuedJob{id: req.ID, job: job}:
	case <-s.stop:
		return "", apperr.Conflict("async tracker shutting down")
	}
	return req.ID, nil
}

func (s *AsyncService) worker() {
	defer s.wg.Done()
	for {
		select {
		case qj := <-s.jobs:
			s.run(qj)
		case <-s.stop:
			return
		}
	}
}

func (s *AsyncService) run(qj queuedJob) {
	// Claim atomic: chỉ một worker thắng; thua (hoặc request đã expired)
	// thì bỏ qua.
	ok, err := s.requests.Claim(qj.id, time.Now())
	if err != nil {
		s.log.Error().Err(err).Str("request", qj.id).Msg("async claim failed")
		return
	}
	if !ok {
		s.log.Debug().Str("request", qj.id).Msg("async request already claimed or expired")
		return
	}
	env, jobErr := qj.job()
	status := models.AsyncDone
	if jobErr != nil || env.Status >= 500 {
		status = models.AsyncError
	}
	headersJSON, _ := json.Marshal(env.Headers)
	if err := s.requests.Complete(qj.id, status, env.Status, string(headersJSON), string(env.Body)); err != nil {
		s.log.Error().Err(err).Str("request", qj.id).Msg("async complete failed")
		return
	}
	s.log.Info().Str("request", qj.id).Str("status", string(status)).Msg("async request finished")
}

// Claim dành cho worker ngoài pool nội bộ (scaling theo process); CAS đúng
// một claimant thắng, kẻ thua nhận ConflictError.
func (s *AsyncService) Claim(id string) error {
	ok, err := s.requests.Claim(id, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("async request not claimable")
	}
	return nil
}

// GetStatus: envelope chỉ có mặt khi done/error. Not-found khác expired —
// expired ngụ ý id từng tồn tại.
func (s *AsyncService) GetStatus(id string) (*models.AsyncRequest, *Envelope, error) {
	req, err := s.requests.Find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("async_request", id)
		}
		return nil, nil, err
	}
	if req.Status != models.AsyncDone && req.Status != models.AsyncError {
		return req, nil, nil
	}
	env := &Envelope{Status: req.ResultStatus, Body: []byte(req.ResultBody)}
	if req.ResultHeaders != "" {
		_ = json.Unmarshal([]byte(req.ResultHeaders), &env.Headers)
	}
	return req, env, nil
}

// ExpireSweep chuyển pending quá deadline sang expired. processing/done không
// bị đụng tới.
func (s *AsyncService) ExpireSweep() {
	n, err := s.requests.ExpirePending(time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("async expire sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("async requests expired")
	}
}

// RetentionSweep xoá request terminal quá retention window.
func (s *AsyncService) RetentionSweep(retention time.Duration) {
	if retention <= 0 {
		return
	}
	n, err := s.requests.DeleteFinishedBefore(time.Now().Add(-retention))
	if err != nil {
		s.log.Error().Err(err).Msg("async retention sweep failed")
		return
	}
	if n > 0 {
		s.log.Debug().Int64("deleted", n).Msg("async requests garbage collected")
	}
}

func (s *AsyncService) Shutdown() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
