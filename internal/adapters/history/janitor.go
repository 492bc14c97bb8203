package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type cleaner interface {
	Cleanup(ctx context.Context) error
}

// janitor periodically removes expired records from a store
type janitor struct {
	stopCh chan struct{}
	once sync.Once
	done   chan struct{}
}

func startJanitor(store cleaner, freq time.Duration, logger *zap.Logger) *janitor {
	j := &janitor{stopCh: make(chan struct{}), done: make(chan struct{})}
	if freq <= 0 {
		close(j.done)
		return j
	}

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(freq)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := store.Cleanup(context.Background()); err != nil {
					logger.Error("Failed to clean up run history", zap.Error(err))
				}
			case <-j.stopCh:
				return
			}
		}
	}()
	return j
}

// stop ends the cleanup loop and waits for it to exit; safe to call twice
func (j *janitor) stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.done
}
