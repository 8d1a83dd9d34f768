// Package meta holds records that outlive a single game: the progress
// ledger and user preferences.
package meta

import (
	"slices"
	"sync"
)

// Progress is the cross-session ledger. It is safe for concurrent use.
type Progress struct {
	mu sync.Mutex

	CompletedOrigins   []string `json:"completedOrigins"`
	MaxChapterReached  int      `json:"maxChapterReached"`
	KeyEventsWitnessed []string `json:"keyEventsWitnessed"`
}

func NewProgress() *Progress {
	return &Progress{
		CompletedOrigins:   make([]string, 0),
		KeyEventsWitnessed: make([]string, 0),
	}
}

// MarkOriginComplete records origin once. It reports whether it was new.
func (p *Progress) MarkOriginComplete(origin string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if origin == "" || slices.Contains(p.CompletedOrigins, origin) {
		return false
	}
	p.CompletedOrigins = append(p.CompletedOrigins, origin)
	return true
}

// UpdateMaxChapter raises MaxChapterReached to chapter if it is higher.
func (p *Progress) UpdateMaxChapter(chapter int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.MaxChapterReached = max(p.MaxChapterReached, chapter)
}

// AddKeyEvent records a witnessed scripted event once.
func (p *Progress) AddKeyEvent(eventID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if eventID == "" || slices.Contains(p.KeyEventsWitnessed, eventID) {
		return false
	}
	p.KeyEventsWitnessed = append(p.KeyEventsWitnessed, eventID)
	return true
}

// IsOriginComplete reports whether origin has finished its prologue.
func (p *Progress) IsOriginComplete(origin string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.CompletedOrigins, origin)
}

// Copy returns a detached copy suitable for serialisation.
func (p *Progress) Copy() *Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &Progress{
		CompletedOrigins:   slices.Clone(p.CompletedOrigins),
		MaxChapterReached:  p.MaxChapterReached,
		KeyEventsWitnessed: slices.Clone(p.KeyEventsWitnessed),
	}
}
