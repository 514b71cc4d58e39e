package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"letterdesk/internal/metrics"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

const (
	activityBuffer        = 100
	activityBatchSize     = 10
	activityFlushInterval = 1 * time.Second
)

// activityRecorder writes letter activity entries in batches from a
// background goroutine. When the buffer is full the entry is written inline.
type activityRecorder struct {
	repo    repository.ActivityRepository
	entries chan model.LetterActivity
	done    chan struct{}
	once    sync.Once
}

func newActivityRecorder(repo repository.ActivityRepository) *activityRecorder {
	r := &activityRecorder{
		repo:    repo,
		entries: make(chan model.LetterActivity, activityBuffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *activityRecorder) run() {
	defer close(r.done)

	batch := make([]model.LetterActivity, 0, activityBatchSize)
	ticker := time.NewTicker(activityFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-r.entries:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= activityBatchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *activityRecorder) flush(batch []model.LetterActivity) {
	if len(batch) == 0 {
		return
	}
	if err := r.repo.CreateBatch(context.Background(), batch); err != nil {
		metrics.RecordActivityWriteFailure(len(batch))
		log.Error().Err(err).Int("entries", len(batch)).Msg("write letter activity batch")
	}
}

// Record queues entry. It must not be called after Close.
func (r *activityRecorder) Record(ctx context.Context, entry model.LetterActivity) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case r.entries <- entry:
	default:
		if err := r.repo.Create(ctx, &entry); err != nil {
			metrics.RecordActivityWriteFailure(1)
			log.Error().Err(err).Str("letter_id", entry.LetterID.String()).Msg("write letter activity")
		}
	}
}

// Close stops the worker after flushing queued entries.
func (r *activityRecorder) Close() {
	r.once.Do(func() {
		close(r.entries)
		<-r.done
	})
}
