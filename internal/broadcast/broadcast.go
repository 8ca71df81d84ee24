// Package broadcast синхронизирует несколько инстансов консоли:
// после изменения коллекции инстанс публикует сигнал в Redis,
// остальные перечитывают снапшот этой коллекции из KV.
package broadcast

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier - то, что нужно сервисам коллекций
type Notifier interface {
	Notify(ctx context.Context, kind string)
}

// Nop - для одиночного инстанса (storage.driver=memory)
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// FormatSignal / ParseSignal - формат сообщения "<instance>:<kind>"
func FormatSignal(instanceID, kind string) string {
	return instanceID + ":" + kind
}

func ParseSignal(payload string) (instanceID, kind string, ok bool) {
	instanceID, kind, ok = strings.Cut(payload, ":")
	if !ok || instanceID == "" || kind == "" {
		return "", "", false
	}
	return instanceID, kind, true
}

type Publisher struct {
	rdb        *redis.Client
	channel    string
	instanceID string
	logger     *zap.Logger
}

func NewPublisher(rdb *redis.Client, channel, instanceID string, logger *zap.Logger) *Publisher {
	return &Publisher{
		rdb:        rdb,
		channel:    channel,
		instanceID: instanceID,
		logger:     logger.Named("broadcast"),
	}
}

// Notify не возвращает ошибку: изменение уже сохранено в KV,
// другие инстансы догонят состояние при переподключении.
func (p *Publisher) Notify(ctx context.Context, kind string) {
	if err := p.rdb.Publish(ctx, p.channel, FormatSignal(p.instanceID, kind)).Err(); err != nil {
		p.logger.Warn("change signal delivery failed",
			zap.String("channel", p.channel),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// Reloader - коллекция, умеющая перечитать себя из KV
type Reloader interface {
	Reload(ctx context.Context) error
}

type Listener struct {
	rdb        *redis.Client
	channel    string
	instanceID string
	reloaders  map[string]Reloader
	logger     *zap.Logger

	// OnReload вызывается после каждой перезагрузки (метрики)
	OnReload func(kind string, err error)

	retryDelay time.Duration
}

func NewListener(rdb *redis.Client, channel, instanceID string, logger *zap.Logger) *Listener {
	return &Listener{
		rdb:        rdb,
		channel:    channel,
		instanceID: instanceID,
		reloaders:  make(map[string]Reloader),
		logger:     logger.Named("broadcast-listener"),
		retryDelay: 5 * time.Second,
	}
}

// Register вызывается до Run
func (l *Listener) Register(kind string, r Reloader) {
	l.reloaders[kind] = r
}

// Handle обрабатывает один сигнал. Свои сигналы пропускаются.
func (l *Listener) Handle(ctx context.Context, payload string) {
	instanceID, kind, ok := ParseSignal(payload)
	if !ok {
		l.logger.Error("invalid signal format", zap.String("payload", payload))
		return
	}
	if instanceID == l.instanceID {
		return
	}
	r, ok := l.reloaders[kind]
	if !ok {
		l.logger.Debug("signal for unknown collection", zap.String("kind", kind))
		return
	}
	l.reload(ctx, kind, r)
}

// ReloadAll - синхронизация при (пере)подключении: сигналы за время обрыва потеряны
func (l *Listener) ReloadAll(ctx context.Context) {
	for kind, r := range l.reloaders {
		l.reload(ctx, kind, r)
	}
}

func (l *Listener) reload(ctx context.Context, kind string, r Reloader) {
	err := r.Reload(ctx)
	if err != nil {
		l.logger.Error("collection reload failed", zap.String("kind", kind), zap.Error(err))
	} else {
		l.logger.Debug("collection reloaded", zap.String("kind", kind))
	}
	if l.OnReload != nil {
		l.OnReload(kind, err)
	}
}

// Run - "живучая" подписка: переподключается при обрывах, пока не отменен ctx.
// go-redis сам переподписывается после обрыва соединения и присылает *redis.Subscription,
// на каждую такую подписку перечитываем все коллекции.
func (l *Listener) Run(ctx context.Context) {
	for {
		pubsub := l.rdb.Subscribe(ctx, l.channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("failed to subscribe", zap.String("chan", l.channel), zap.Error(err))
			if !sleep(ctx, l.retryDelay) {
				return
			}
			continue
		}

		l.logger.Info("subscribed to change signals", zap.String("chan", l.channel))
		l.ReloadAll(ctx)
		ch := pubsub.ChannelWithSubscriptions()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				switch m := msg.(type) {
				case *redis.Subscription:
					if m.Kind == "subscribe" {
						l.logger.Info("resubscribed to change signals", zap.String("chan", l.channel))
						l.ReloadAll(ctx)
					}
				case *redis.Message:
					l.Handle(ctx, m.Payload)
				}
			}
		}

		pubsub.Close()
		if !sleep(ctx, l.retryDelay) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
