package youtube

import (
	"log"
	"sync"
	"time"
)

// Quota unit costs per Data API call. Every call site records the cost of
// the call it just made, so the audit trail mirrors actual traffic.
const (
	QuotaCostList            = 1
	QuotaCostInsertResumable = 1600
	QuotaCostUpdate          = 50
	QuotaCostDelete          = 50
)

// dailyQuota is the default daily unit budget for a Data API project.
const dailyQuota = 10000

// QuotaAuditor records per-call quota costs and tracks an estimated
// remaining daily budget. The estimate is advisory; the provider keeps the
// authoritative count.
type QuotaAuditor struct {
	mu             sync.Mutex
	estimatedQuota int
	reserve        int
	lastReset      time.Time
	exhausted      bool
}

// NewQuotaAuditor creates an auditor with the default daily budget.
// reserve is the minimum number of units to keep unspent before reporting
// the budget as exhausted.
func NewQuotaAuditor(reserve int) *QuotaAuditor {
	return &QuotaAuditor{
		estimatedQuota: dailyQuota,
		reserve:        reserve,
		lastReset:      time.Now(),
	}
}

// Record logs one API call's quota cost and updates the running estimate.
func (q *QuotaAuditor) Record(resource, method string, units int) {
	if q == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Reset quota if a day has passed
	if time.Since(q.lastReset) > 24*time.Hour {
		q.estimatedQuota = dailyQuota
		q.lastReset = time.Now()
		q.exhausted = false
		log.Printf("youtube: quota reset (new day)")
	}

	q.estimatedQuota -= units

	log.Printf("youtube: quota audit resource=%s method=%s units=%d remaining=%d",
		resource, method, units, q.estimatedQuota)

	if q.estimatedQuota < q.reserve && !q.exhausted {
		log.Printf("youtube: quota exhausted (remaining: %d, reserve: %d)", q.estimatedQuota, q.reserve)
		q.exhausted = true
	}
}

// EstimatedRemaining returns the estimated remaining quota units.
func (q *QuotaAuditor) EstimatedRemaining() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.estimatedQuota
}

// Exhausted returns whether the estimated budget has dropped below the reserve.
func (q *QuotaAuditor) Exhausted() bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exhausted
}
