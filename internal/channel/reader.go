package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quizbowl/qbbot/internal/render"
	"github.com/quizbowl/qbbot/pkg/types"
)

// read drives channelID's question from Reading through to a terminal
// outcome (answered correctly, time runs out, or the context is canceled),
// then removes the channel's entry so the run coordinator can move on.
func (m *Manager) read(ctx context.Context, channelID types.ChannelID) {
	for {
		m.mu.Lock()
		st, ok := m.channels[channelID]
		if !ok {
			m.mu.Unlock()
			return
		}

		switch st.phase.kind {
		case phaseReading:
			if !m.revealNext(ctx, channelID, st) {
				return
			}
		case phaseBuzzed:
			m.waitBuzzed(ctx, channelID, st)
		case phaseJudging:
			wake := st.wake
			m.mu.Unlock()
			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		case phasePrompt:
			m.waitPrompt(ctx, channelID, st)
		case phaseIncorrect, phaseInvalid:
			m.resetToReading(ctx, channelID, st)
		case phaseCorrect:
			m.finishCorrect(ctx, channelID, st)
			return
		}
	}
}

// revealNext reveals the next chunk of the question (3 words on the first
// reveal, 5 on every subsequent one), posts or edits the display message,
// and waits for either a buzz or the reveal interval. It returns false once
// the reader goroutine should exit.
func (m *Manager) revealNext(ctx context.Context, channelID types.ChannelID, st *state) bool {
	chunkSize := 5
	if st.revealed == "" {
		chunkSize = 3
	}
	chunk := render.NthChunk(&st.words, chunkSize)
	if st.revealed == "" {
		st.revealed = strings.Join(chunk, " ")
	} else {
		st.revealed = st.revealed + " " + strings.Join(chunk, " ")
	}
	if strings.Contains(st.revealed, "(*)") {
		st.powered = false
	}
	finished := len(st.words) == 0
	text := render.FormatQuestion(st.revealed)
	msgID := st.msgID
	wake := st.wake
	m.mu.Unlock()

	if msgID == "" {
		id, err := m.platform.Say(ctx, channelID, text)
		if err != nil {
			return false
		}
		m.mu.Lock()
		if st, ok := m.channels[channelID]; ok {
			st.msgID = id
		}
		m.mu.Unlock()
	} else {
		_ = m.platform.Edit(ctx, channelID, msgID, text)
	}

	wait := m.pacing.Reveal
	if finished {
		wait = m.pacing.EndGrace
	}
	select {
	case <-wake:
		return true
	case <-time.After(wait):
		if !finished {
			return true
		}
		return m.endUnanswered(ctx, channelID)
	case <-ctx.Done():
		return false
	}
}

// endUnanswered announces the answer and removes channelID's entry once the
// end-of-question grace period elapses with nobody buzzing.
func (m *Manager) endUnanswered(ctx context.Context, channelID types.ChannelID) bool {
	m.mu.Lock()
	st, ok := m.channels[channelID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	answer := st.tossup.Answer
	delete(m.channels, channelID)
	m.mu.Unlock()

	_, _ = m.platform.Say(ctx, channelID, "Time's up! The answer was: "+render.RenderHTML(answer))
	return false
}

// waitBuzzed announces the buzz and gives the buzzer up to the buzz timeout
// to answer. If nobody answers in time, the buzz is treated as Invalid.
func (m *Manager) waitBuzzed(ctx context.Context, channelID types.ChannelID, st *state) {
	user := st.phase.user
	wake := st.wake
	m.mu.Unlock()

	_, _ = m.platform.Say(ctx, channelID, fmt.Sprintf("Buzz from %s! 10 seconds to answer.", m.platform.Mention(user)))

	select {
	case <-wake:
	case <-time.After(m.pacing.Buzz):
		m.mu.Lock()
		if st, ok := m.channels[channelID]; ok && st.phase.kind == phaseBuzzed && st.phase.user == user {
			st.phase = phase{kind: phaseInvalid, user: user}
		}
		m.mu.Unlock()
	case <-ctx.Done():
	}
}

// waitPrompt announces the judge's follow-up question and gives the buzzer
// up to the reader-side prompt timeout to answer more specifically. A late
// answer races the handler and is discarded if this timer wins first.
func (m *Manager) waitPrompt(ctx context.Context, channelID types.ChannelID, st *state) {
	user := st.phase.user
	followup := st.phase.followup
	at := st.phase.at
	wake := st.wake
	m.mu.Unlock()

	_, _ = m.platform.Say(ctx, channelID, fmt.Sprintf("%s (%s)", followup, m.platform.Mention(user)))

	select {
	case <-wake:
	case <-time.After(m.pacing.PromptReader):
		m.mu.Lock()
		if st, ok := m.channels[channelID]; ok && st.phase.kind == phasePrompt && st.phase.user == user && st.phase.at.Equal(at) {
			st.phase = phase{kind: phaseInvalid, user: user}
		}
		m.mu.Unlock()
	case <-ctx.Done():
	}
}

// resetToReading applies the post-wrong-answer reset: the answering user
// (if any) goes on this question's blocklist so they can't buzz again, the
// question returns to Reading so remaining players can keep buzzing,
// powered is restored, and the displayed bell marker flips to a no-bell
// marker. Announces "No answer!" for a buzz/prompt timeout (Invalid) or
// "incorrect!" for a wrong answer (Incorrect). Called with the lock held;
// always returns with the lock released.
func (m *Manager) resetToReading(ctx context.Context, channelID types.ChannelID, st *state) {
	terminal := st.phase.kind
	if st.phase.user != "" {
		st.blocklist[st.phase.user] = struct{}{}
	}
	st.phase = phase{kind: phaseReading}
	st.powered = poweredOnFreshQuestion(st.tossup) && !strings.Contains(st.revealed, "(*)")
	st.bellMarker = render.NoBellMarker
	msgID := st.msgID
	displayText := render.FormatQuestion(st.revealed) + st.bellMarker
	m.mu.Unlock()

	var announce string
	switch terminal {
	case phaseInvalid:
		announce = "No answer!"
	case phaseIncorrect:
		announce = "incorrect!"
	}
	if announce != "" {
		_, _ = m.platform.Say(ctx, channelID, announce)
	}
	if msgID != "" {
		_ = m.platform.Edit(ctx, channelID, msgID, displayText)
	}
}

// finishCorrect announces the win, reveals the rest of the question and the
// answer, and removes channelID's entry.
func (m *Manager) finishCorrect(ctx context.Context, channelID types.ChannelID, st *state) {
	user := st.phase.user
	powered := st.powered
	answer := st.tossup.Answer
	remaining := strings.Join(st.words, " ")
	m.mu.Unlock()

	label := "Correct"
	if powered {
		label = "Correct - power!"
	}
	_, _ = m.platform.Say(ctx, channelID, fmt.Sprintf("%s (%s)", label, m.platform.Mention(user)))
	if remaining != "" {
		_, _ = m.platform.Say(ctx, channelID, render.FormatQuestion(remaining))
	}
	_, _ = m.platform.Say(ctx, channelID, "The answer was: "+render.RenderHTML(answer))

	m.mu.Lock()
	delete(m.channels, channelID)
	m.mu.Unlock()
}
