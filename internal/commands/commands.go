// Package commands wires the query compiler, question source, and channel
// FSM into the four user-facing commands: tossup, categories, query, and
// help. Grounded on the original's poise command handlers in main.rs.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quizbowl/qbbot/internal/channel"
	"github.com/quizbowl/qbbot/internal/qbsource"
	"github.com/quizbowl/qbbot/internal/query"
	"github.com/quizbowl/qbbot/internal/taxonomy"
	"github.com/quizbowl/qbbot/pkg/types"
)

const (
	minTossupCount     = 1
	maxTossupCount     = 10
	defaultTossupCount = 1
)

// TossupSource fetches tossups for a resolved query. *qbsource.Source
// satisfies this; tests substitute a fake to avoid real HTTP calls.
type TossupSource interface {
	RandomTossup(ctx context.Context, sel query.Selection, number int) (qbsource.Tossups, error)
}

// Commands implements the bot's command surface.
type Commands struct {
	Platform types.ChatPlatform
	Source   TossupSource
	Channels *channel.Manager
}

// New builds a Commands handler over the given collaborators.
func New(platform types.ChatPlatform, source TossupSource, channels *channel.Manager) *Commands {
	return &Commands{Platform: platform, Source: source, Channels: channels}
}

// Tossup starts a run of number tossups matching queryStr (unrestricted if
// empty) in channelID. It rejects the request if a question is already in
// progress there.
func (c *Commands) Tossup(ctx context.Context, channelID types.ChannelID, queryStr string, number int) error {
	if c.Channels.IsActive(channelID) {
		_, err := c.Platform.Say(ctx, channelID, "Already reading a question")
		return err
	}

	if number == 0 {
		number = defaultTossupCount
	}
	if number < minTossupCount || number > maxTossupCount {
		_, err := c.Platform.Say(ctx, channelID, fmt.Sprintf("number must be between %d and %d", minTossupCount, maxTossupCount))
		return err
	}

	sel := query.Selection{}
	if strings.TrimSpace(queryStr) != "" {
		parsed, err := query.ParseQuery(queryStr)
		if err != nil {
			_, sayErr := c.Platform.Say(ctx, channelID, queryErrorMessage(err))
			if sayErr != nil {
				return sayErr
			}
			return nil
		}
		sel = parsed
	}

	result, err := c.Source.RandomTossup(ctx, sel, number)
	if err != nil {
		_, sayErr := c.Platform.Say(ctx, channelID, "Couldn't fetch a question right now")
		if sayErr != nil {
			return sayErr
		}
		return err
	}
	if len(result.Tossups) == 0 {
		_, err := c.Platform.Say(ctx, channelID, "No questions match that query")
		return err
	}

	return c.Channels.RunSeries(ctx, channelID, result.Tossups)
}

// Categories prints the taxonomy, or a single category's subcategories
// when name is given.
func (c *Commands) Categories(ctx context.Context, channelID types.ChannelID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		names := taxonomy.Names()
		sort.Strings(names)
		_, err := c.Platform.Say(ctx, channelID, "```\n"+strings.Join(names, "\n")+"\n```")
		return err
	}

	cat, ok := taxonomy.Categories[name]
	if !ok {
		_, err := c.Platform.Say(ctx, channelID, fmt.Sprintf("Unknown category: %s", name))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subcategories: %s\n", strings.Join(cat.Subcategories, ", "))
	if len(cat.AlternateSubcategories) > 0 {
		fmt.Fprintf(&b, "Alternate subcategories: %s\n", strings.Join(cat.AlternateSubcategories, ", "))
	}
	_, err := c.Platform.Say(ctx, channelID, "```\n"+b.String()+"```")
	return err
}

// Query parses exprStr and reports the resolved selection without
// fetching a question, for checking a query before running it.
func (c *Commands) Query(ctx context.Context, channelID types.ChannelID, exprStr string) error {
	sel, err := query.ParseQuery(exprStr)
	if err != nil {
		_, sayErr := c.Platform.Say(ctx, channelID, queryErrorMessage(err))
		return sayErr
	}

	var b strings.Builder
	if len(sel.Categories) > 0 {
		fmt.Fprintf(&b, "categories: %s\n", strings.Join(sel.Categories, ", "))
	}
	if len(sel.Subcategories) > 0 {
		fmt.Fprintf(&b, "subcategories: %s\n", strings.Join(sel.Subcategories, ", "))
	}
	if len(sel.AlternateSubcategories) > 0 {
		fmt.Fprintf(&b, "alternate subcategories: %s\n", strings.Join(sel.AlternateSubcategories, ", "))
	}
	if b.Len() == 0 {
		b.WriteString("matches everything")
	}
	_, sayErr := c.Platform.Say(ctx, channelID, "```\n"+b.String()+"```")
	return sayErr
}

const helpText = `Commands:
  tossup [query] [number 1..10] - start a run of tossups
  categories [name]             - list categories, or one category's subcategories
  query <expr>                  - parse a query without fetching a question
  help [topic]                  - this message

Query syntax: category names combined with + (or), & (and), - (not), and
parentheses, e.g. "Literature + History", "Science - Physics".

To answer, type "buzz" while a question is being read, then give your
answer when prompted. A judge may ask you to be more specific before
deciding.`

// Help prints static usage guidance. topic is currently unused since the
// whole command surface fits in one short message.
func (c *Commands) Help(ctx context.Context, channelID types.ChannelID, topic string) error {
	_, err := c.Platform.Say(ctx, channelID, helpText)
	return err
}

func queryErrorMessage(err error) string {
	switch e := err.(type) {
	case *query.UnexpectedTokenError:
		return fmt.Sprintf("Unexpected token: %s", e.Token)
	case *query.UnexpectedEOFError:
		return "Unexpected end of input"
	case *query.InvalidCategoryError:
		return fmt.Sprintf("Invalid category: %s", e.Token)
	case *query.ImpossibleBranchError:
		return fmt.Sprintf("The query is impossible (conflicting categories): %s", e.Expr)
	default:
		return err.Error()
	}
}
