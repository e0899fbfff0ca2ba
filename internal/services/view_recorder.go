package services

import (
	"context"
	"sync"
	"time"

	"comet/internal/loader"
	"comet/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	viewBatchSize     = 50
	viewFlushInterval = 500 * time.Millisecond
)

// ViewRecorder 异步批量写入帖子浏览记录 (PostView)
// 同一 (user, post) 在队列中只保留最新的评论数
type ViewRecorder struct {
	db    *gorm.DB
	log   *zap.Logger
	queue chan loader.PostViewKey

	mu      sync.Mutex
	pending map[loader.PostViewKey]int // 待写入的 lastCommentCount

	done chan struct{}
	wg   sync.WaitGroup
}

func NewViewRecorder(db *gorm.DB, log *zap.Logger) *ViewRecorder {
	return &ViewRecorder{
		db:      db,
		log:     log,
		queue:   make(chan loader.PostViewKey, 1000), // 缓冲队列，防止阻塞
		pending: make(map[loader.PostViewKey]int),
		done:    make(chan struct{}),
	}
}

// Start 启动后台 worker
func (r *ViewRecorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop flushes what is queued and waits for the worker to exit.
func (r *ViewRecorder) Stop() {
	close(r.done)
	r.wg.Wait()
}

// Record queues a view. A newer count for a pair already queued replaces
// the old one without queueing twice.
func (r *ViewRecorder) Record(userID, postID string, commentCount int) {
	key := loader.PostViewKey{UserID: userID, PostID: postID}

	r.mu.Lock()
	_, queued := r.pending[key]
	r.pending[key] = commentCount
	r.mu.Unlock()
	if queued {
		return
	}

	select {
	case r.queue <- key:
	default:
		// 队列满了，移除 pending 标记
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
		r.log.Warn("view queue full, dropping view", zap.String("post_id", postID))
	}
}

func (r *ViewRecorder) worker() {
	defer r.wg.Done()

	batch := make([]loader.PostViewKey, 0, viewBatchSize)
	ticker := time.NewTicker(viewFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case key := <-r.queue:
			batch = append(batch, key)
			if len(batch) >= viewBatchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.done:
			for {
				select {
				case key := <-r.queue:
					batch = append(batch, key)
				default:
					if len(batch) > 0 {
						r.flush(batch)
					}
					return
				}
			}
		}
	}
}

// flush upserts one batch of views.
func (r *ViewRecorder) flush(keys []loader.PostViewKey) {
	now := time.Now()
	rows := make([]models.PostView, 0, len(keys))

	r.mu.Lock()
	for _, k := range keys {
		count, ok := r.pending[k]
		if !ok {
			continue
		}
		delete(r.pending, k)
		rows = append(rows, models.PostView{UserID: k.UserID, PostID: k.PostID, LastCommentCount: count, CreatedAt: now})
	}
	r.mu.Unlock()
	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_comment_count", "created_at"}),
	}).Create(&rows).Error
	if err != nil {
		r.log.Error("flush post views failed", zap.Int("rows", len(rows)), zap.Error(err))
	}
}

// pendingCount is the number of distinct views not yet written.
func (r *ViewRecorder) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
