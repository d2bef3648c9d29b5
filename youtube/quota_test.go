package youtube

import "testing"

func TestQuotaAuditorRecord(t *testing.T) {
	quota := NewQuotaAuditor(0)

	quota.Record("videos", "insert_resumable", QuotaCostInsertResumable)
	quota.Record("playlists", "list", QuotaCostList)
	quota.Record("videos", "update", QuotaCostUpdate)

	want := dailyQuota - QuotaCostInsertResumable - QuotaCostList - QuotaCostUpdate
	if got := quota.EstimatedRemaining(); got != want {
		t.Errorf("EstimatedRemaining() = %d, want %d", got, want)
	}
	if quota.Exhausted() {
		t.Error("Exhausted() = true with budget left")
	}
}

func TestQuotaAuditorReserve(t *testing.T) {
	quota := NewQuotaAuditor(9000)

	quota.Record("videos", "insert_resumable", QuotaCostInsertResumable)
	if !quota.Exhausted() {
		t.Error("Exhausted() = false after dropping below the reserve")
	}
}

func TestQuotaAuditorNilIsSafe(t *testing.T) {
	var quota *QuotaAuditor

	quota.Record("videos", "list", QuotaCostList)
	if got := quota.EstimatedRemaining(); got != 0 {
		t.Errorf("EstimatedRemaining() = %d", got)
	}
	if quota.Exhausted() {
		t.Error("Exhausted() = true on nil auditor")
	}
}
