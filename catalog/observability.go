package catalog

import (
	"sync"
	"time"
)

// ScanObservation captures one catalog build outcome.
type ScanObservation struct {
	ScanID     string
	Directory  string
	Discovered int
	Ready      int
	Invalid    int
	Unresolved int
	Warnings   int
	DurationMS int64
	StartedAt  time.Time
	FinishedAt time.Time
	// ErrorCode is empty on success.
	ErrorCode string
}

// Observer receives catalog observability events.
type Observer interface {
	ObserveScan(observation ScanObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveScan(ScanObservation) {}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide catalog observer. Passing nil restores
// the no-op observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func currentObserver() Observer {
	observerMu.RLock()
	defer observerMu.RUnlock()
	return activeObserver
}
