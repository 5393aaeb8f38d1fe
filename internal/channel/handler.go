package channel

import (
	"context"
	"strings"
	"time"

	"github.com/quizbowl/qbbot/internal/grader"
	"github.com/quizbowl/qbbot/internal/render"
	"github.com/quizbowl/qbbot/pkg/types"
)

const blockedReactionEmoji = "❌"

// HandleMessage processes one inbound message against channelID's current
// state, if any. It's a no-op for channels with no question in progress,
// for messages from a user not currently eligible to act, and for text
// that isn't a recognized buzz word or answer attempt.
func (m *Manager) HandleMessage(ctx context.Context, msg types.InboundMessage) error {
	if msg.IsBot {
		return nil
	}

	text := strings.TrimSpace(msg.Text)

	m.mu.Lock()
	st, ok := m.channels[msg.Channel]
	if !ok {
		m.mu.Unlock()
		return nil
	}

	switch st.phase.kind {
	case phaseReading:
		if !strings.EqualFold(text, "buzz") {
			m.mu.Unlock()
			return nil
		}
		if st.blocked(msg.User) {
			msgID := st.msgID
			m.mu.Unlock()
			return m.platform.React(ctx, msg.Channel, msgID, blockedReactionEmoji)
		}
		st.phase = phase{kind: phaseBuzzed, user: msg.User}
		st.bellMarker = render.BellMarker
		msgID := st.msgID
		displayText := render.FormatQuestion(st.revealed) + st.bellMarker
		st.signal()
		m.mu.Unlock()
		if msgID != "" {
			_ = m.platform.Edit(ctx, msg.Channel, msgID, displayText)
		}
		return nil

	case phaseBuzzed:
		if msg.User != st.phase.user {
			m.mu.Unlock()
			return nil
		}
		return m.judgeAnswer(ctx, msg.Channel, st, msg.User, text, false)

	case phasePrompt:
		if msg.User != st.phase.user {
			m.mu.Unlock()
			return nil
		}
		return m.judgeAnswer(ctx, msg.Channel, st, msg.User, text, true)

	default:
		m.mu.Unlock()
		return nil
	}
}

// judgeAnswer moves st into Judging, releases the lock for the (possibly
// slow) judge call, then re-acquires it and applies the verdict, but only
// if the channel still exists and is still Judging this same user's
// answer. That re-check is what keeps a buzz-timeout or a second message
// from racing this transition. Called with the lock held; always returns
// with the lock released.
func (m *Manager) judgeAnswer(ctx context.Context, channelID types.ChannelID, st *state, user types.UserID, answer string, prompted bool) error {
	questionSoFar := st.revealed
	key := grader.AnswerKey{Answer: st.tossup.Answer, AnswerSanitized: st.tossup.AnswerSanitized}
	st.phase = phase{kind: phaseJudging, user: user}
	m.mu.Unlock()

	_, _ = m.platform.Say(ctx, channelID, "Judging…")
	verdict, err := m.judge.CheckAnswer(ctx, questionSoFar, answer, key, prompted)

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.channels[channelID]
	if !ok || st.phase.kind != phaseJudging || st.phase.user != user {
		return err
	}
	if err != nil {
		st.phase = phase{kind: phaseInvalid, user: user}
		st.signal()
		return err
	}

	switch verdict.Kind {
	case grader.Correct:
		st.phase = phase{kind: phaseCorrect, user: user}
	case grader.Prompt:
		st.phase = phase{kind: phasePrompt, user: user, followup: verdict.Detail, at: time.Now()}
	default:
		st.phase = phase{kind: phaseIncorrect, user: user}
	}
	st.signal()
	return nil
}
