package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/quizbowl/qbbot/internal/commands"
	"github.com/quizbowl/qbbot/pkg/types"
)

// contextWithInterrupt returns a context canceled on SIGINT/SIGTERM.
func contextWithInterrupt() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

// dispatchEvents routes each inbound console message to either a "!"
// command or the channel FSM's buzz/answer handling, until ctx is
// canceled or the event stream closes.
func dispatchEvents(ctx context.Context, events interface {
	Events() <-chan types.InboundMessage
}, cmds *commands.Commands) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events.Events():
			if !ok {
				return nil
			}
			if err := route(ctx, cmds, msg); err != nil {
				return err
			}
		}
	}
}

func route(ctx context.Context, cmds *commands.Commands, msg types.InboundMessage) error {
	if msg.IsBot {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "!") {
		return cmds.Channels.HandleMessage(ctx, msg)
	}

	fields := strings.Fields(strings.TrimPrefix(text, "!"))
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "tossup":
		return runTossup(ctx, cmds, msg.Channel, fields[1:])
	case "categories":
		name := ""
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		return cmds.Categories(ctx, msg.Channel, name)
	case "query":
		return cmds.Query(ctx, msg.Channel, strings.Join(fields[1:], " "))
	case "help":
		topic := ""
		if len(fields) > 1 {
			topic = fields[1]
		}
		return cmds.Help(ctx, msg.Channel, topic)
	default:
		return nil
	}
}

// runTossup splits "!tossup [query words...] [number]" the way the
// original slash command's two optional arguments behave: a trailing
// integer argument is the question count, everything before it is the
// query string.
func runTossup(ctx context.Context, cmds *commands.Commands, channelID types.ChannelID, args []string) error {
	number := 0
	if n := len(args); n > 0 {
		if parsed, err := strconv.Atoi(args[n-1]); err == nil {
			number = parsed
			args = args[:n-1]
		}
	}
	return cmds.Tossup(ctx, channelID, strings.Join(args, " "), number)
}
