// Package stagemanager rotates named snapshots through a multi-tier
// retention schedule (e.g. hourly -> daily -> weekly), seeds new snapshots
// from the most recent existing one via hard-link sync so storage cost is
// proportional to diff size, and recovers from a run interrupted mid
// snapshot creation.
//
// Grounded in the teacher's retention.go (RemoveOldLogs' age-based pruning
// is the same "is this old enough to act on" arithmetic as next_after,
// generalized from a single flat tier to a multi-stage ladder) and
// backup.go's date-folder naming (buildBackupPath's "02Jan06" folder
// generalizes here to "<stage>.<index>" snapshot names).
package stagemanager

import "fmt"

// Stage is one retention tier: Name identifies it ("hourly", "daily", ...)
// and Keep is how many numbered slots it holds. A stage's own interval is
// derived, not stored: BaseInterval * the product of every earlier
// stage's Keep.
type Stage struct {
	Name string
	Keep int
}

// intervals returns, for each stage index, the number of seconds a
// snapshot must age before it is a candidate to move into that stage.
func intervals(stages []Stage, baseInterval int64) []int64 {
	out := make([]int64, len(stages))
	acc := baseInterval
	for i, s := range stages {
		out[i] = acc
		acc *= int64(s.Keep)
	}
	return out
}

// SnapshotNames returns the full snapshot-name universe in declared stage
// order: stage_i.name + "." + j for i over stages, j in 0..keep_i-1. The
// first name is the initial snapshot every Create call targets.
func SnapshotNames(stages []Stage) []string {
	var out []string
	for _, s := range stages {
		for j := 0; j < s.Keep; j++ {
			out = append(out, fmt.Sprintf("%s.%d", s.Name, j))
		}
	}
	return out
}

func snapshotName(stages []Stage, stageIdx, num int) string {
	return fmt.Sprintf("%s.%d", stages[stageIdx].Name, num)
}
