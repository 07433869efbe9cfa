package sync

import (
	"context"
	"sync"
	"time"

	"nfsync/internal/config"
)

// Status describes the aggregate outcome of a sync session.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// FolderStatus describes the outcome of a single folder transfer.
type FolderStatus string

const (
	FolderOK      FolderStatus = "ok"
	FolderFailed  FolderStatus = "failed"
	FolderSkipped FolderStatus = "skipped"
)

// FolderResult records the outcome of one folder within a session.
type FolderResult struct {
	Folder           config.SyncFolder `json:"folder"`
	Status           FolderStatus      `json:"status"`
	Error            string            `json:"error,omitempty"`
	FilesTransferred int               `json:"files_transferred"`
	TransferredSize  string            `json:"transferred_size,omitempty"`
	TotalSize        string            `json:"total_size,omitempty"`
	Duration         time.Duration     `json:"duration"`
}

// Summary is the final report for a completed session.
type Summary struct {
	SessionID        string         `json:"session_id"`
	Status           Status         `json:"status"`
	Started          time.Time      `json:"started"`
	Finished         time.Time      `json:"finished"`
	Succeeded        int            `json:"succeeded"`
	Failed           int            `json:"failed"`
	Skipped          int            `json:"skipped"`
	FilesTransferred int            `json:"files_transferred"`
	Results          []FolderResult `json:"results"`
}

// Observer receives transfer output line by line as it is produced.
type Observer func(line string)

// Session tracks one in-flight sync run. A session is created by
// Engine.Start and owned by it; callers interact through Cancel and Wait.
type Session struct {
	ID      string
	Started time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	summary   Summary
}

// Cancel requests cooperative cancellation. The folder currently
// transferring is terminated; folders not yet started are skipped.
func (s *Session) Cancel() {
	s.markCancelled()
	s.cancel()
}

// markCancelled records cancellation without touching the context. The
// engine calls it when the parent context is cancelled externally, for
// example by an interrupt, so the summary reports cancelled either way.
func (s *Session) markCancelled() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Cancelled reports whether cancellation has been requested.
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Wait blocks until the session finishes and returns its summary.
func (s *Session) Wait() Summary {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Done returns a channel closed when the session finishes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) finish(summary Summary) {
	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	close(s.done)
}
