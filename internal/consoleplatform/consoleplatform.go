// Package consoleplatform implements types.ChatPlatform over stdin/stdout,
// standing in for the out-of-scope chat SDK for local runs and tests.
package consoleplatform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quizbowl/qbbot/pkg/types"
)

// Platform is a single-channel console chat: everything typed on stdin is
// one InboundMessage on channel Channel, and Say/Edit/React print to
// stdout in a line-oriented format a human (or a test harness scripting
// stdin) can follow.
type Platform struct {
	Channel types.ChannelID

	out io.Writer
	in  *bufio.Scanner

	mu       sync.Mutex
	nextID   int
	messages map[types.MessageID]string

	events chan types.InboundMessage
	once   sync.Once
}

// New builds a console platform reading commands from in and writing
// output to out, all attributed to a single fixed channel.
func New(channel types.ChannelID, in io.Reader, out io.Writer) *Platform {
	return &Platform{
		Channel:  channel,
		out:      out,
		in:       bufio.NewScanner(in),
		messages: make(map[types.MessageID]string),
		events:   make(chan types.InboundMessage, 16),
	}
}

// Run reads lines from stdin until EOF or ctx is canceled, turning each
// non-empty line into an InboundMessage from a fixed "console" user.
// Lines of the form "as <user>: <text>" override the user, for scripting
// multi-player scenarios from a single stream. A leading "bot " marks the
// message as bot-authored (IsBot), for scripting the bot-message edge case;
// it may combine with "as", e.g. "bot as qbbot2: hello".
func (p *Platform) Run(ctx context.Context) {
	defer close(p.events)
	for p.in.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := p.in.Text()
		if line == "" {
			continue
		}
		user := types.UserID("console")
		text := line
		isBot := false
		if rest, ok := strings.CutPrefix(text, "bot "); ok {
			isBot = true
			text = rest
			user = types.UserID("bot")
		}
		if rest, ok := strings.CutPrefix(text, "as "); ok {
			if name, content, found := strings.Cut(rest, ": "); found {
				user = types.UserID(name)
				text = content
			}
		}
		msg := types.InboundMessage{
			Channel:   p.Channel,
			User:      user,
			Text:      text,
			Timestamp: time.Now().Unix(),
			IsBot:     isBot,
		}
		select {
		case p.events <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Say implements types.ChatPlatform.
func (p *Platform) Say(_ context.Context, channel types.ChannelID, text string) (types.MessageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := types.MessageID(strconv.Itoa(p.nextID))
	p.messages[id] = text
	fmt.Fprintf(p.out, "[%s] %s\n", channel, text)
	return id, nil
}

// Edit implements types.ChatPlatform.
func (p *Platform) Edit(_ context.Context, channel types.ChannelID, id types.MessageID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[id] = text
	fmt.Fprintf(p.out, "[%s] (edit %s) %s\n", channel, id, text)
	return nil
}

// React implements types.ChatPlatform.
func (p *Platform) React(_ context.Context, channel types.ChannelID, id types.MessageID, emoji string) error {
	fmt.Fprintf(p.out, "[%s] (react %s on %s)\n", channel, emoji, id)
	return nil
}

// Mention implements types.ChatPlatform.
func (p *Platform) Mention(user types.UserID) string {
	return "@" + string(user)
}

// Events implements types.ChatPlatform.
func (p *Platform) Events() <-chan types.InboundMessage {
	return p.events
}
