package connectivity

import (
	"testing"
	"time"
)

func TestState_OfflineFor(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		want  time.Duration
	}{
		{
			name:  "online",
			state: State{Online: true, LastChange: now.Add(-time.Hour)},
			want:  0,
		},
		{
			name:  "offline for ten minutes",
			state: State{Online: false, LastChange: now.Add(-10 * time.Minute)},
			want:  10 * time.Minute,
		},
		{
			name:  "offline without change time",
			state: State{Online: false},
			want:  0,
		},
		{
			name:  "change in the future",
			state: State{Online: false, LastChange: now.Add(time.Minute)},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.OfflineFor(now); got != tt.want {
				t.Errorf("OfflineFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
