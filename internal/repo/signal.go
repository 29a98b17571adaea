package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
	"gorm.io/gorm"
)

// MaxRetainedSignals caps the in-memory ring; the oldest record is evicted
// once the cap is exceeded.
const MaxRetainedSignals = 100

type SignalRepo interface {
	Create(ctx context.Context, signal entity.Signal) (entity.Signal, error)
	Get(ctx context.Context, id int64) (entity.Signal, bool)
	List(ctx context.Context) []entity.Signal
	ListActive(ctx context.Context) []entity.Signal
	// Update applies fn to the stored record under the repo lock. fn is
	// responsible for bumping LastUpdateAt: silent price observations must
	// not reset the heartbeat timer.
	Update(ctx context.Context, id int64, fn func(signal *entity.Signal)) error
}

// signalRepo keeps signals in a bounded in-memory ring as the source of
// truth and mirrors every write into the database so recent history
// survives a restart. A nil db disables the mirror.
type signalRepo struct {
	mu      sync.Mutex
	signals []entity.Signal
	nextID  int64

	db  *gorm.DB
	now func() time.Time
}

type SignalOption func(r *signalRepo)

func WithSignalClock(now func() time.Time) SignalOption {
	return func(r *signalRepo) {
		r.now = now
	}
}

func NewSignalRepo(db *gorm.DB, opts ...SignalOption) SignalRepo {
	r := &signalRepo{
		db:     db,
		nextID: time.Now().UnixMilli(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.restore()
	return r
}

// restore seeds the ring from the newest archived rows so monitoring
// resumes after a restart.
func (r *signalRepo) restore() {
	if r.db == nil {
		return
	}
	var rows []entity.Signal
	err := r.db.Order("id desc").Limit(MaxRetainedSignals).Find(&rows).Error
	if err != nil {
		slog.Error("failed to restore signals from archive", "error", err)
		return
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	r.signals = rows
	if n := len(rows); n > 0 {
		if last := rows[n-1].ID; last >= r.nextID {
			r.nextID = last + 1
		}
		slog.Info("restored signals from archive, monitoring will resume", "count", n)
	}
}

func (r *signalRepo) Create(ctx context.Context, signal entity.Signal) (entity.Signal, error) {
	r.mu.Lock()
	signal.ID = r.nextID
	r.nextID++
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = r.now()
	}
	if signal.LastUpdateAt.IsZero() {
		signal.LastUpdateAt = signal.CreatedAt
	}
	if signal.SideChannel == nil {
		signal.SideChannel = entity.SideChannel{}
	}
	r.signals = append(r.signals, signal)
	if len(r.signals) > MaxRetainedSignals {
		r.signals = r.signals[len(r.signals)-MaxRetainedSignals:]
	}
	r.mu.Unlock()

	r.archive(ctx, signal)
	return signal, nil
}

func (r *signalRepo) Get(ctx context.Context, id int64) (entity.Signal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.signals {
		if s.ID == id {
			return s, true
		}
	}
	return entity.Signal{}, false
}

func (r *signalRepo) List(ctx context.Context) []entity.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

func (r *signalRepo) ListActive(ctx context.Context) []entity.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Signal
	for _, s := range r.signals {
		if s.Status == entity.StatusActive {
			out = append(out, s)
		}
	}
	return out
}

func (r *signalRepo) Update(ctx context.Context, id int64, fn func(signal *entity.Signal)) error {
	r.mu.Lock()
	var updated *entity.Signal
	for i := range r.signals {
		if r.signals[i].ID == id {
			fn(&r.signals[i])
			cp := r.signals[i]
			updated = &cp
			break
		}
	}
	r.mu.Unlock()

	if updated == nil {
		return fmt.Errorf("signal %d not found", id)
	}
	r.archive(ctx, *updated)
	return nil
}

func (r *signalRepo) archive(ctx context.Context, signal entity.Signal) {
	if r.db == nil {
		return
	}
	if err := r.db.WithContext(ctx).Save(&signal).Error; err != nil {
		slog.Error("failed to archive signal", "id", signal.ID, "symbol", signal.Symbol, "error", err)
	}
}
