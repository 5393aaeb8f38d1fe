package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbowl/qbbot/internal/grader"
	"github.com/quizbowl/qbbot/internal/qbsource"
	"github.com/quizbowl/qbbot/pkg/types"
)

type fakePlatform struct {
	mu       sync.Mutex
	messages []string
	reacts   []string
	nextID   int
	events   chan types.InboundMessage
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{events: make(chan types.InboundMessage, 16)}
}

func (f *fakePlatform) Say(_ context.Context, _ types.ChannelID, text string) (types.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, text)
	return types.MessageID(fmt.Sprintf("m%d", f.nextID)), nil
}

func (f *fakePlatform) Edit(_ context.Context, _ types.ChannelID, _ types.MessageID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakePlatform) React(_ context.Context, _ types.ChannelID, _ types.MessageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacts = append(f.reacts, emoji)
	return nil
}

func (f *fakePlatform) Mention(user types.UserID) string { return "@" + string(user) }

func (f *fakePlatform) Events() <-chan types.InboundMessage { return f.events }

func (f *fakePlatform) anyMessageContains(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func (f *fakePlatform) reactCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reacts)
}

type scriptedJudge struct {
	mu       sync.Mutex
	verdicts []grader.Verdict
	calls    int
}

func (s *scriptedJudge) CheckAnswer(context.Context, string, string, grader.AnswerKey, bool) (grader.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.verdicts[s.calls]
	if s.calls < len(s.verdicts)-1 {
		s.calls++
	}
	return v, nil
}

func testDurations() Durations {
	return Durations{
		Reveal:        2 * time.Millisecond,
		Buzz:          30 * time.Millisecond,
		PromptHandler: 30 * time.Millisecond,
		PromptReader:  30 * time.Millisecond,
		EndGrace:      10 * time.Millisecond,
		Poll:          2 * time.Millisecond,
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func sampleTossup(question string) qbsource.Tossup {
	return qbsource.Tossup{
		ID:                "t1",
		Answer:             "<b>Ernest Hemingway</b>",
		AnswerSanitized:    "Ernest Hemingway",
		QuestionSanitized:  question,
	}
}

func TestStartQuestion_EndsUnansweredAfterGrace(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{{Kind: grader.Correct}}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	require.NoError(t, m.StartQuestion(ctx, "chan1", sampleTossup("this author wrote the old man and the sea")))

	waitUntil(t, time.Second, func() bool { return !m.IsActive("chan1") })
	assert.True(t, platform.anyMessageContains("Time's up!"))
	assert.True(t, platform.anyMessageContains("Ernest Hemingway"))
}

func TestHandleMessage_BuzzThenCorrectAnswer(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{{Kind: grader.Correct}}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	require.NoError(t, m.StartQuestion(ctx, "chan1", sampleTossup("this author wrote the old man and the sea and many other novels")))

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("Buzz from @alice") })

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "Ernest Hemingway"}))

	waitUntil(t, time.Second, func() bool { return !m.IsActive("chan1") })
	assert.True(t, platform.anyMessageContains("Correct"))
}

func TestHandleMessage_WrongAnswerBlocklistsUserForRestOfQuestion(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{{Kind: grader.Incorrect, Detail: "no"}}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	require.NoError(t, m.StartQuestion(ctx, "chan1", sampleTossup("this author wrote the old man and the sea and many other famous novels")))

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("Buzz from @alice") })
	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "someone else"}))

	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("incorrect!") })
	assert.True(t, m.IsActive("chan1"))
	assert.Equal(t, 0, platform.reactCount())

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.reactCount() == 1 })
}

func TestHandleMessage_BuzzTimeoutPrintsNoAnswerAndReturnsToReading(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{{Kind: grader.Correct}}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	require.NoError(t, m.StartQuestion(ctx, "chan1", sampleTossup("this author wrote the old man and the sea and many other famous novels")))

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("Buzz from @alice") })

	// No answer sent: the buzz timeout fires, resetting to Reading.
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("No answer!") })

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "alice", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.reactCount() == 1 })

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "bob", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("Buzz from @bob") })

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "bob", Text: "Ernest Hemingway"}))
	waitUntil(t, time.Second, func() bool { return !m.IsActive("chan1") })
	assert.True(t, platform.anyMessageContains("Correct"))
}

func TestHandleMessage_BotAuthoredMessageIgnored(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{{Kind: grader.Correct}}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	require.NoError(t, m.StartQuestion(ctx, "chan1", sampleTossup("this author wrote the old man and the sea and many other famous novels")))

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "other-bot", Text: "buzz", IsBot: true}))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, platform.anyMessageContains("Buzz from"))
}

func TestHandleMessage_PromptThenCorrectOnFollowup(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{
		{Kind: grader.Prompt, Detail: "be more specific"},
		{Kind: grader.Correct},
	}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	require.NoError(t, m.StartQuestion(ctx, "chan1", sampleTossup("this author wrote the old man and the sea and several other famous novels")))

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "bob", Text: "buzz"}))
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("Buzz from @bob") })

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "bob", Text: "hemingway"}))
	waitUntil(t, time.Second, func() bool { return platform.anyMessageContains("be more specific") })

	require.NoError(t, m.HandleMessage(ctx, types.InboundMessage{Channel: "chan1", User: "bob", Text: "Ernest Hemingway"}))

	waitUntil(t, time.Second, func() bool { return !m.IsActive("chan1") })
	assert.True(t, platform.anyMessageContains("Correct"))
}

func TestRunSeries_ReadsEachTossupInTurn(t *testing.T) {
	platform := newFakePlatform()
	judge := &scriptedJudge{verdicts: []grader.Verdict{{Kind: grader.Correct}}}
	m := NewManager(platform, judge, testDurations())
	ctx := context.Background()

	tossups := []qbsource.Tossup{
		sampleTossup("first question goes here with enough words to chunk"),
		sampleTossup("second question goes here with enough words to chunk"),
	}

	done := make(chan error, 1)
	go func() { done <- m.RunSeries(ctx, "chan1", tossups) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunSeries did not complete in time")
	}
	assert.True(t, platform.anyMessageContains("Next question"))
}
