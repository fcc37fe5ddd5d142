package ui

import (
	"testing"

	"github.com/clipdex/clipdex-agent/internal/catalog"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name          string
		jobs          []*catalog.ClipJob
		wantStatus    string
		wantCompleted int
	}{
		{
			name:          "no jobs",
			jobs:          nil,
			wantStatus:    "Idle",
			wantCompleted: 0,
		},
		{
			name: "running job wins over pending",
			jobs: []*catalog.ClipJob{
				{Status: catalog.JobStatusPending},
				{Status: catalog.JobStatusRunning},
			},
			wantStatus:    "Clipping",
			wantCompleted: 0,
		},
		{
			name: "completed jobs counted, failures ignored",
			jobs: []*catalog.ClipJob{
				{Status: catalog.JobStatusCompleted},
				{Status: catalog.JobStatusCompleted},
				{Status: catalog.JobStatusFailed},
			},
			wantStatus:    "Idle",
			wantCompleted: 2,
		},
		{
			name: "running alongside completed",
			jobs: []*catalog.ClipJob{
				{Status: catalog.JobStatusCompleted},
				{Status: catalog.JobStatusRunning},
			},
			wantStatus:    "Clipping",
			wantCompleted: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, completed := summarize(tt.jobs)
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if completed != tt.wantCompleted {
				t.Errorf("completed = %d, want %d", completed, tt.wantCompleted)
			}
		})
	}
}
