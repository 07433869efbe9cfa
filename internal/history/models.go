package history

import "time"

// Run is one recorded sync session.
type Run struct {
	ID               string    `json:"id"`
	Started          time.Time `json:"started"`
	Finished         time.Time `json:"finished"`
	Status           string    `json:"status"`
	Succeeded        int       `json:"succeeded"`
	Failed           int       `json:"failed"`
	Skipped          int       `json:"skipped"`
	FilesTransferred int       `json:"files_transferred"`
}

// FolderRecord is the per-folder outcome within a run.
type FolderRecord struct {
	RunID            string        `json:"run_id"`
	LocalPath        string        `json:"local_path"`
	Target           string        `json:"target"`
	Status           string        `json:"status"`
	Error            string        `json:"error,omitempty"`
	FilesTransferred int           `json:"files_transferred"`
	TotalSize        string        `json:"total_size,omitempty"`
	Duration         time.Duration `json:"duration"`
}
