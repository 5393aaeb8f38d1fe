package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/quizbowl/qbbot/internal/grader"
	"github.com/quizbowl/qbbot/internal/qbsource"
	"github.com/quizbowl/qbbot/pkg/types"
)

// ErrAlreadyReading is returned by StartQuestion when the channel already
// has a question in progress.
var ErrAlreadyReading = errors.New("channel: a question is already in progress")

// Judge grades a buzzed-in answer. internal/grader.Grader satisfies this;
// tests substitute a fake so the FSM can be exercised without a real judge
// backend.
type Judge interface {
	CheckAnswer(ctx context.Context, questionSoFar, userAnswer string, key grader.AnswerKey, prompted bool) (grader.Verdict, error)
}

// Manager owns every channel's in-progress question. A single mutex guards
// the map and every state reachable from it; no state is ever locked on
// its own, matching the "one exclusive lock, never held across a
// suspension point" rule the reader and handler both follow.
type Manager struct {
	mu       sync.Mutex
	channels map[types.ChannelID]*state

	platform types.ChatPlatform
	judge    Judge
	pacing   Durations
}

// NewManager builds a Manager backed by platform for output and judge for
// grading buzzed-in answers.
func NewManager(platform types.ChatPlatform, judge Judge, pacing Durations) *Manager {
	return &Manager{
		channels: make(map[types.ChannelID]*state),
		platform: platform,
		judge:    judge,
		pacing:   pacing,
	}
}

// IsActive reports whether channelID currently has a question in progress.
func (m *Manager) IsActive(channelID types.ChannelID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.channels[channelID]
	return ok
}

// StartQuestion registers tossup as channelID's in-progress question and
// starts the reveal loop in its own goroutine. It returns before the
// question finishes; callers poll IsActive (or use RunSeries for a whole
// run) to learn when it's done.
func (m *Manager) StartQuestion(ctx context.Context, channelID types.ChannelID, tossup qbsource.Tossup) error {
	m.mu.Lock()
	if _, ok := m.channels[channelID]; ok {
		m.mu.Unlock()
		return ErrAlreadyReading
	}
	st := newState(tossup)
	m.channels[channelID] = st
	m.mu.Unlock()

	go m.read(ctx, channelID)
	return nil
}
