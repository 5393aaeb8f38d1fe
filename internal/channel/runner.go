package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/quizbowl/qbbot/internal/qbsource"
	"github.com/quizbowl/qbbot/pkg/types"
)

// RunSeries starts each tossup in channelID in turn, waiting for one to
// finish (polling IsActive) before announcing and starting the next. It
// returns when every tossup has been read or ctx is canceled.
func (m *Manager) RunSeries(ctx context.Context, channelID types.ChannelID, tossups []qbsource.Tossup) error {
	for i, tossup := range tossups {
		if i > 0 {
			_, _ = m.platform.Say(ctx, channelID, fmt.Sprintf("Next question (%d/%d)", i+1, len(tossups)))
			select {
			case <-time.After(interQuestionWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := m.StartQuestion(ctx, channelID, tossup); err != nil {
			return err
		}

		ticker := time.NewTicker(m.pacing.Poll)
		for m.IsActive(channelID) {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				ticker.Stop()
				return ctx.Err()
			}
		}
		ticker.Stop()
	}
	return nil
}
