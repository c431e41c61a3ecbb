package eventlog

import (
	"sort"

	"online-quiz/internal/domain"
)

// Sort orders records by timestamp, then sequence number. Records that tie on
// both keep their relative order, so callers merging shards should pass them
// in a fixed shard order.
//
// Timestamps have one-second resolution. Records written by different
// processes within the same second are ordered by their per-process sequence
// numbers, which do not agree across processes.
func Sort(recs []domain.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Time.Equal(recs[j].Time) {
			return recs[i].Time.Before(recs[j].Time)
		}
		return recs[i].Seq < recs[j].Seq
	})
}

// MaxSeq returns the largest sequence number in recs, or 0.
func MaxSeq(recs []domain.Record) int64 {
	var seq int64
	for _, r := range recs {
		seq = max(seq, r.Seq)
	}
	return seq
}
