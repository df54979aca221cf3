package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStatusChange(t *testing.T) {
	disallowed := map[[2]Status]bool{
		{StatusActive, StatusWaiting}:    true,
		{StatusCompleted, StatusActive}:  true,
		{StatusRejected, StatusActive}:   true,
		{StatusCompleted, StatusWaiting}: true,
		{StatusRejected, StatusWaiting}:  true,
		{StatusWaiting, StatusCompleted}: true,
	}

	all := []Status{StatusWaiting, StatusActive, StatusCompleted, StatusRejected}
	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				want := !disallowed[[2]Status{from, to}]
				assert.Equal(t, want, IsValidStatusChange(from, to))
			})
		}
	}
}

func TestIsValidScreenerChange(t *testing.T) {
	a := &ScreenerInfo{Email: "a@screener.de"}
	b := &ScreenerInfo{Email: "b@screener.de"}

	assert.True(t, IsValidScreenerChange(Job{}, Job{}))
	assert.True(t, IsValidScreenerChange(
		Job{Status: StatusActive, Screener: a},
		Job{Status: StatusActive, Screener: b},
	))
}

func TestStrictScreenerChange(t *testing.T) {
	a := &ScreenerInfo{Email: "a@screener.de"}
	b := &ScreenerInfo{Email: "b@screener.de"}

	tests := []struct {
		name   string
		oldJob Job
		newJob Job
		want   bool
	}{
		{
			name:   "no screener yet",
			oldJob: Job{Status: StatusWaiting},
			newJob: Job{Status: StatusActive, Screener: a},
			want:   true,
		},
		{
			name:   "screener removed",
			oldJob: Job{Status: StatusActive, Screener: a},
			newJob: Job{Status: StatusActive},
			want:   false,
		},
		{
			name:   "same screener",
			oldJob: Job{Status: StatusActive, Screener: a},
			newJob: Job{Status: StatusCompleted, Screener: a},
			want:   true,
		},
		{
			name:   "other screener on active job",
			oldJob: Job{Status: StatusActive, Screener: a},
			newJob: Job{Status: StatusActive, Screener: b},
			want:   false,
		},
		{
			name:   "other screener while both waiting",
			oldJob: Job{Status: StatusWaiting, Screener: a},
			newJob: Job{Status: StatusWaiting, Screener: b},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StrictScreenerChange(tt.oldJob, tt.newJob))
		})
	}
}

func TestSubjectValid(t *testing.T) {
	tests := []struct {
		name    string
		subject Subject
		want    bool
	}{
		{name: "full range", subject: Subject{Name: "Mathe", Min: 1, Max: 13}, want: true},
		{name: "single grade", subject: Subject{Name: "Deutsch", Min: 5, Max: 5}, want: true},
		{name: "inverted", subject: Subject{Name: "Englisch", Min: 9, Max: 4}, want: false},
		{name: "below scale", subject: Subject{Name: "Physik", Min: 0, Max: 4}, want: false},
		{name: "above scale", subject: Subject{Name: "Chemie", Min: 7, Max: 14}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.subject.Valid())
		})
	}
}
