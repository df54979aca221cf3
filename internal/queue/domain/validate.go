package domain

// IsValidStatusChange reports whether a job may move between two statuses.
// A reviewed job never returns to waiting or active, an active job is not
// released back to waiting, and a job cannot be completed before pickup.
func IsValidStatusChange(from, to Status) bool {
	switch {
	case from == StatusActive && to == StatusWaiting:
		return false
	case from == StatusCompleted && to == StatusActive:
		return false
	case from == StatusRejected && to == StatusActive:
		return false
	case from == StatusCompleted && to == StatusWaiting:
		return false
	case from == StatusRejected && to == StatusWaiting:
		return false
	case from == StatusWaiting && to == StatusCompleted:
		return false
	}
	return true
}

// ScreenerPolicy decides whether the screener assignment of a job may change
type ScreenerPolicy func(oldJob, newJob Job) bool

// IsValidScreenerChange is the default screener policy and permits every change.
// The engine performs the active-job ownership check itself.
func IsValidScreenerChange(oldJob, newJob Job) bool {
	return true
}

// StrictScreenerChange only allows a different screener while both snapshots are waiting
func StrictScreenerChange(oldJob, newJob Job) bool {
	if oldJob.Screener == nil {
		return true
	}
	if newJob.Screener == nil {
		return false
	}
	if oldJob.Screener.Email == newJob.Screener.Email {
		return true
	}
	return oldJob.Status == StatusWaiting && newJob.Status == StatusWaiting
}
