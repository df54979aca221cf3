package queue

import "github.com/cuongbtq/screening-queue/internal/queue/domain"

// WithPositions numbers the waiting jobs 1..W in the given order.
// Jobs that are not waiting keep position zero.
func WithPositions(jobs []domain.Job) []domain.JobInfo {
	infos := make([]domain.JobInfo, len(jobs))
	position := 0
	for i, j := range jobs {
		infos[i] = domain.JobInfo{Job: j}
		if j.Status == domain.StatusWaiting {
			position++
			infos[i].Position = position
		}
	}
	return infos
}
