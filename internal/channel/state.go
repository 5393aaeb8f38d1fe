// Package channel implements the per-channel question FSM: revealing a
// tossup a few words at a time, handling buzzes, routing answers through a
// judge, and serializing a run of several questions in one channel.
// Grounded on the original's read_question loop and QuestionState enum.
package channel

import (
	"strings"
	"time"

	"github.com/quizbowl/qbbot/internal/qbsource"
	"github.com/quizbowl/qbbot/pkg/config"
	"github.com/quizbowl/qbbot/pkg/types"
)

type phaseKind int

const (
	phaseReading phaseKind = iota
	phaseBuzzed
	phaseJudging
	phasePrompt
	phaseIncorrect
	phaseInvalid
	phaseCorrect
)

// phase carries the data associated with the current FSM state: which user
// is involved and when the state was entered, plus a judge follow-up
// question when prompting for a more specific answer.
type phase struct {
	kind     phaseKind
	user     types.UserID
	at       time.Time
	followup string
}

// state is one channel's in-progress question. Every field is read and
// written only while the owning Manager's mutex is held; goroutines clone
// what they need and release the lock before doing anything that blocks
// (a chat call, a judge call, a timer wait).
type state struct {
	phase      phase
	powered    bool
	blocklist  map[types.UserID]struct{}
	wake       chan struct{}
	tossup     qbsource.Tossup
	words      []string
	revealed   string
	msgID      types.MessageID
	bellMarker string // suffix currently appended to the displayed question
}

// poweredOnFreshQuestion is the powered formula shared by newState and a
// post-wrong-answer reset: true only when the question actually carries a
// power mark to beat. The original's formula negates this (powered starts
// true for questions with NO mark at all, and is never flipped back true),
// which would misreport "Correct - power!" on every non-power tossup; see
// DESIGN.md for the grounding note on this deliberate correction.
func poweredOnFreshQuestion(tossup qbsource.Tossup) bool {
	return strings.Contains(tossup.QuestionSanitized, "(*)")
}

func newState(tossup qbsource.Tossup) *state {
	return &state{
		phase:     phase{kind: phaseReading},
		powered:   poweredOnFreshQuestion(tossup),
		blocklist: make(map[types.UserID]struct{}),
		wake:      make(chan struct{}, 1),
		tossup:    tossup,
		words:     strings.Fields(tossup.QuestionSanitized),
	}
}

// signal wakes a blocked reader goroutine without blocking the caller. A
// pending signal that the reader hasn't consumed yet is coalesced: at most
// one wake is ever queued.
func (st *state) signal() {
	select {
	case st.wake <- struct{}{}:
	default:
	}
}

func (st *state) blocked(user types.UserID) bool {
	_, ok := st.blocklist[user]
	return ok
}

// Durations holds the reader's timing constants, parsed once from
// config.PacingConfig so the hot loop never re-parses a duration string.
type Durations struct {
	Reveal        time.Duration
	Buzz          time.Duration
	PromptHandler time.Duration
	PromptReader  time.Duration
	EndGrace      time.Duration
	Poll          time.Duration
}

// interQuestionWait is the pause between questions in a multi-question run.
// Unlike the Durations above it isn't exposed as a config knob: the original
// treats it as a fixed pacing constant, not something a deployer would tune.
const interQuestionWait = time.Second

// DefaultDurations matches the timing table: 750ms between reveals, a 10s
// buzz window, a 10s handler-side / 5s reader-side prompt window, a 5s
// end-of-question grace period for a late buzz, and a 500ms run poll.
func DefaultDurations() Durations {
	return Durations{
		Reveal:        750 * time.Millisecond,
		Buzz:          10 * time.Second,
		PromptHandler: 10 * time.Second,
		PromptReader:  5 * time.Second,
		EndGrace:      5 * time.Second,
		Poll:          500 * time.Millisecond,
	}
}

// DurationsFromConfig parses cfg, falling back to DefaultDurations for any
// field left blank or unparsable.
func DurationsFromConfig(cfg config.PacingConfig) Durations {
	d := DefaultDurations()
	override := func(dst *time.Duration, raw string) {
		if raw == "" {
			return
		}
		if parsed, err := time.ParseDuration(raw); err == nil {
			*dst = parsed
		}
	}
	override(&d.Reveal, cfg.RevealInterval)
	override(&d.Buzz, cfg.BuzzTimeout)
	override(&d.PromptHandler, cfg.PromptTimeout)
	override(&d.PromptReader, cfg.PromptTimeoutShort)
	override(&d.EndGrace, cfg.EndGrace)
	override(&d.Poll, cfg.PollInterval)
	return d
}
