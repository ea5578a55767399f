package scheduler

import "github.com/jirenz/dist-scheduler/pkg/types"

// Snapshot is a point-in-time copy of table sizes, cheap enough to
// rebuild every loop iteration and safe to read from another
// goroutine via Scheduler.Snapshot.
type Snapshot struct {
	JobsByState  map[types.JobState]int
	TasksByState map[types.TaskState]int
	Workers      int
	SlotsTotal   int
	SlotsFree    int
	SlotsClaimed int
}

func (s *Scheduler) refreshSnapshot() {
	snap := Snapshot{
		JobsByState:  make(map[types.JobState]int),
		TasksByState: make(map[types.TaskState]int),
	}
	for _, job := range s.jobs {
		snap.JobsByState[job.State]++
		for _, t := range job.Tasks {
			snap.TasksByState[t.State]++
		}
	}
	snap.Workers = len(s.workers)
	snap.SlotsFree = s.slots.Len()
	snap.SlotsClaimed = len(s.slotRunnerMap)
	snap.SlotsTotal = s.slots.Total(snap.SlotsClaimed)

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// Snapshot returns the most recently refreshed table-size snapshot.
// This is the only method on Scheduler safe to call from a goroutine
// other than Run's.
func (s *Scheduler) Snapshot() Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.snap
}
