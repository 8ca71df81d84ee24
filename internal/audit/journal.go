package audit

/*
Журнал действий операторов консоли.

- Non-blocking: Log никогда не блокирует обработчик HTTP, при переполнении
  буфера событие уходит в zap и отбрасывается (Load Shedding).
- Batching: события копятся и пишутся пачкой (100 штук или раз в 500мс).
- Drain: Stop закрывает вход, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sink определяет, куда физически пишутся события
type Sink interface {
	WriteBatch(ctx context.Context, events []Event) error
}

// Reader - чтение журнала для экрана аудита
type Reader interface {
	FetchLogs(ctx context.Context, f Filter) ([]Event, error)
}

type Auditor interface {
	Log(event Event)
}

// Nop - аудитор для тестов и утилит
type Nop struct{}

func (Nop) Log(Event) {}

type JournalOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration

	// OnDepth сообщает заполненность буфера после каждой пачки (метрика)
	OnDepth func(n int)
}

type Journal struct {
	ch     chan Event
	sink   Sink
	opts   JournalOptions
	logger *zap.Logger
	wg     sync.WaitGroup
	closed atomic.Bool
	once   sync.Once
}

func NewJournal(sink Sink, opts JournalOptions, logger *zap.Logger) *Journal {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	return &Journal{
		ch:     make(chan Event, opts.BufferSize),
		sink:   sink,
		opts:   opts,
		logger: logger.With(zap.String("mod", "audit")),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход и ждет, пока воркер всё допишет. Повторный вызов безопасен.
func (j *Journal) Stop() {
	j.once.Do(func() {
		j.closed.Store(true)
		// Даем текущим Log проскочить до закрытия канала
		time.Sleep(10 * time.Millisecond)

		j.logger.Info("stopping audit journal: flushing buffer...")
		close(j.ch)
		j.wg.Wait()
		j.logger.Info("audit journal stopped")
	})
}

func (j *Journal) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if j.closed.Load() {
		j.logger.Warn("audit event dropped: journal is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case j.ch <- event:
	default:
		j.logger.Error("audit_buffer_overflow",
			zap.String("entity", event.Entity),
			zap.String("entity_id", event.EntityID),
			zap.String("action", event.Action),
			zap.String("actor", event.Actor),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]Event, 0, j.opts.BatchSize)
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту уже закрыт
		if err := j.sink.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = make([]Event, 0, j.opts.BatchSize)
		if j.opts.OnDepth != nil {
			j.opts.OnDepth(len(j.ch))
		}
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
