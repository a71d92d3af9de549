package viewer

import "github.com/cctop/cctop/internal/pidfile"

// CollectorStatus is the collector-liveness indicator rendered in the
// header (spec.md §4.8: RUNNING/STOPPED/CHECKING/UNKNOWN).
type CollectorStatus int

const (
	StatusChecking CollectorStatus = iota
	StatusRunning
	StatusStopped
	StatusUnknown
)

func (s CollectorStatus) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusStopped:
		return "STOPPED"
	case StatusChecking:
		return "CHECKING"
	default:
		return "UNKNOWN"
	}
}

// PollCollectorStatus inspects the collector's process marker to derive a
// liveness status and pid, per spec.md §4.8/§6.
func PollCollectorStatus(pidFile string) (CollectorStatus, int) {
	result, err := pidfile.Status(pidFile)
	if err != nil {
		return StatusUnknown, 0
	}
	if result.Running {
		return StatusRunning, result.PID
	}
	return StatusStopped, 0
}
