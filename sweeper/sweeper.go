// sweeper/sweeper.go
package sweeper

import (
	"time"

	"github.com/Efromomr/quiz-board/broadcast"
	"github.com/Efromomr/quiz-board/monitor"
	"github.com/Efromomr/quiz-board/store"
)

const DefaultInterval = time.Second

// Sweeper walks every live session on a fixed interval and fires the
// session's timeout transition. It never blocks on client traffic: each
// session takes its own lock, so a sweep tick and a command on different
// sessions run in parallel.
type Sweeper struct {
	store       *store.Store
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
	interval    time.Duration
	stopChan    chan struct{}
}

func NewSweeper(st *store.Store, b broadcast.Broadcaster, mon *monitor.Monitor, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		store:       st,
		broadcaster: b,
		monitor:     mon,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the sweep loop on its own goroutine.
func (s *Sweeper) Start() {
	go s.loop()
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(time.Now())
		case <-s.stopChan:
			return
		}
	}
}

// SweepOnce runs one pass over all sessions, dispatching whatever the
// expired deadlines produced.
func (s *Sweeper) SweepOnce(now time.Time) {
	for _, sess := range s.store.Sessions() {
		events := sess.Sweep(now)
		if len(events) == 0 {
			continue
		}
		if s.monitor != nil {
			s.monitor.IncForcedTimeouts()
		}
		s.broadcaster.Dispatch(sess.ID, events)
	}
}
