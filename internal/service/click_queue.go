package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrQueueFull    = errors.New("очередь кликов переполнена, пакет потерян")
	ErrQueueStopped = errors.New("очередь кликов остановлена")
)

// Константы очереди кликов
const (
	defaultBatchSize  = 10              // Сброс сразу при таком размере пакета
	defaultFlushDelay = 5 * time.Second // Сброс по таймеру для неполного пакета
	defaultBacklog    = 100             // Пакетов в ожидании записи
)

// ClickQueueConfig настройки очереди; нулевые значения заменяются значениями по умолчанию
type ClickQueueConfig struct {
	BatchSize  int
	FlushDelay time.Duration
	Backlog    int
}

// ClickQueue копит клики в памяти и пишет их в хранилище пакетами.
// Доставка at-most-once: пакет, который не удалось записать, логируется и теряется.
type ClickQueue interface {
	Start()
	Stop()
	// Enqueue не ждёт записи на диск. ErrQueueFull означает, что клики потеряны.
	Enqueue(code string, click models.Click) error
	// Flush отправляет накопленные клики и ждёт, пока они и все ранее
	// отправленные пакеты будут записаны.
	Flush(ctx context.Context) error
	Pending() int
}

type clickBatch struct {
	events []models.ClickEvent
	done   chan error
}

// clickQueue реализация с одним воркером: пакеты пишутся строго в порядке отправки
type clickQueue struct {
	store  repository.DocumentStore
	logger *zap.Logger
	cfg    ClickQueueConfig

	mu       sync.Mutex
	pending  []models.ClickEvent
	timer    *time.Timer
	timerGen uint64 // отличает актуальный таймер от уже отменённого
	stopped  bool

	batches chan *clickBatch
	wg      sync.WaitGroup
}

// NewClickQueue создаёт очередь; воркер запускается через Start
func NewClickQueue(store repository.DocumentStore, cfg ClickQueueConfig, logger *zap.Logger) ClickQueue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = defaultFlushDelay
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = defaultBacklog
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &clickQueue{
		store:   store,
		logger:  logger,
		cfg:     cfg,
		batches: make(chan *clickBatch, cfg.Backlog),
	}
}

// Start запускает воркер записи
func (q *clickQueue) Start() {
	q.logger.Info("Запуск очереди кликов",
		zap.Int("batch_size", q.cfg.BatchSize),
		zap.Duration("flush_delay", q.cfg.FlushDelay),
	)

	q.wg.Add(1)
	go q.worker()
}

// Stop отправляет остаток очереди и ждёт, пока воркер всё запишет
func (q *clickQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.logger.Info("Остановка очереди кликов...")
	q.stopped = true

	if b := q.takeLocked(); b != nil {
		// воркер не берёт q.mu, поэтому блокирующая отправка здесь безопасна
		q.batches <- b
	}
	close(q.batches)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("Очередь кликов остановлена")
}

func (q *clickQueue) Enqueue(code string, click models.Click) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrQueueStopped
	}

	q.pending = append(q.pending, models.ClickEvent{ShortCode: code, Click: click})

	if len(q.pending) >= q.cfg.BatchSize {
		return q.submitLocked(q.takeLocked())
	}

	if q.timer == nil {
		gen := q.timerGen
		q.timer = time.AfterFunc(q.cfg.FlushDelay, func() { q.onTimer(gen) })
	}
	return nil
}

func (q *clickQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}

	b := q.takeLocked()
	if b == nil {
		// пустой пакет работает как барьер для уже отправленных
		b = &clickBatch{}
	}
	b.done = make(chan error, 1)

	if err := q.submitLocked(b); err != nil {
		q.mu.Unlock()
		return err
	}
	q.mu.Unlock()

	select {
	case err := <-b.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *clickQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *clickQueue) onTimer(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || gen != q.timerGen {
		return
	}
	if b := q.takeLocked(); b != nil {
		_ = q.submitLocked(b)
	}
}

// takeLocked забирает накопленные клики и отменяет таймер. nil, если забирать нечего.
func (q *clickQueue) takeLocked() *clickBatch {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.timerGen++

	if len(q.pending) == 0 {
		return nil
	}
	b := &clickBatch{events: q.pending}
	q.pending = nil
	return b
}

// submitLocked передаёт пакет воркеру не блокируясь
func (q *clickQueue) submitLocked(b *clickBatch) error {
	select {
	case q.batches <- b:
		return nil
	default:
		// Воркер не успевает, теряем статистику, но не блокируем редирект
		q.logger.Warn("Буфер очереди кликов заполнен, пакет потерян",
			zap.Int("clicks", len(b.events)),
		)
		return ErrQueueFull
	}
}

// worker пишет пакеты по одному, в порядке поступления
func (q *clickQueue) worker() {
	defer q.wg.Done()

	for b := range q.batches {
		err := q.write(b.events)
		if b.done != nil {
			b.done <- err
		}
	}
}

func (q *clickQueue) write(events []models.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Без таймаута: медленная запись задерживает только этот пакет
	err := q.store.Update(context.Background(), func(doc *models.Document) error {
		for _, e := range events {
			doc.Stats[e.ShortCode] = append(doc.Stats[e.ShortCode], e.Click)
		}
		return nil
	})
	if err != nil {
		q.logger.Error("Не удалось записать пакет кликов, пакет потерян",
			zap.Int("clicks", len(events)),
			zap.Error(err),
		)
		return err
	}

	q.logger.Debug("Пакет кликов записан", zap.Int("clicks", len(events)))
	return nil
}
