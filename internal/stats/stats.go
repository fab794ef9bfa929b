// Package stats keeps the process-wide connection and command counters.
//
// The counters are independent atomics. A Snapshot or Render may observe an
// interleaving of concurrent updates; no cross-counter consistency is implied.
package stats

import (
	"strconv"
	"sync/atomic"
)

type Stats struct {
	connectionsNow   atomic.Int64
	connectionsTotal atomic.Int64
	commandsTotal    atomic.Int64
	errorsTotal      atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ConnectionsNow   int64
	ConnectionsTotal int64
	CommandsTotal    int64
	ErrorsTotal      int64
}

func New() *Stats {
	return &Stats{}
}

func (s *Stats) ConnectionOpened() {
	s.connectionsNow.Add(1)
	s.connectionsTotal.Add(1)
}

func (s *Stats) ConnectionClosed() {
	s.connectionsNow.Add(-1)
}

func (s *Stats) IncCommand() {
	s.commandsTotal.Add(1)
}

func (s *Stats) IncError() {
	s.errorsTotal.Add(1)
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ConnectionsNow:   s.connectionsNow.Load(),
		ConnectionsTotal: s.connectionsTotal.Load(),
		CommandsTotal:    s.commandsTotal.Load(),
		ErrorsTotal:      s.errorsTotal.Load(),
	}
}

// Render formats the counters as the STATS reply body, without the trailing newline.
func (s *Stats) Render() string {
	snap := s.Snapshot()
	buf := make([]byte, 0, 96)
	buf = append(buf, "STATS connections_now="...)
	buf = strconv.AppendInt(buf, snap.ConnectionsNow, 10)
	buf = append(buf, " connections_total="...)
	buf = strconv.AppendInt(buf, snap.ConnectionsTotal, 10)
	buf = append(buf, " commands_total="...)
	buf = strconv.AppendInt(buf, snap.CommandsTotal, 10)
	buf = append(buf, " errors_total="...)
	buf = strconv.AppendInt(buf, snap.ErrorsTotal, 10)
	return string(buf)
}
