// Package qbsource fetches tossup questions from the question-source API,
// grounded on the original client's random-tossup request (repeated
// categories/subcategories/alternateSubcategories query parameters).
package qbsource

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"time"

	libhttp "github.com/quizbowl/qbbot/pkg/lib/http"
	"github.com/quizbowl/qbbot/pkg/ratelimit"
	"github.com/quizbowl/qbbot/pkg/retry"

	"github.com/quizbowl/qbbot/internal/query"
)

// statusError carries the HTTP status code so the retry policy can tell
// a transient server error from a client error worth failing on.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("question source returned status %d", e.status)
}

// Packet identifies the packet a tossup came from.
type Packet struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// Set identifies the tournament set a tossup came from.
type Set struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Year     int    `json:"year"`
	Standard bool   `json:"standard"`
}

// Tossup is a single question as returned by the question source.
type Tossup struct {
	ID                string `json:"_id"`
	Question          string `json:"question"`
	Answer            string `json:"answer"`
	Category          string `json:"category"`
	Subcategory       string `json:"subcategory"`
	Packet            Packet `json:"packet"`
	Set               Set    `json:"set"`
	UpdatedAt         string `json:"updatedAt"`
	Difficulty        int    `json:"difficulty"`
	Number            int    `json:"number"`
	AnswerSanitized   string `json:"answer_sanitized"`
	QuestionSanitized string `json:"question_sanitized"`
}

// Tossups wraps the API's response envelope.
type Tossups struct {
	Tossups []Tossup `json:"tossups"`
}

// Source fetches random tossups matching a Selection, rate-limited and
// retried around each outbound HTTP call.
type Source struct {
	client      *libhttp.Client
	retryConfig retry.Config
}

// New builds a Source against baseURL. rps <= 0 disables rate limiting.
func New(baseURL string, rps float64, retryAttempts int) *Source {
	var doer ratelimit.HTTPDoer = &stdhttp.Client{Timeout: 30 * time.Second}
	if rps > 0 {
		doer = ratelimit.NewRateLimitedHTTPClient(doer, ratelimit.NewLimiter(rps, rps))
	}
	client := libhttp.NewClient(libhttp.WithBaseURL(baseURL), libhttp.WithHTTPClient(doer))

	retryConfig := retry.DefaultConfig()
	if retryAttempts > 0 {
		retryConfig.MaxAttempts = retryAttempts
	}
	retryConfig.RetryableFunc = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return se.status >= 500
		}
		return true
	}

	return &Source{client: client, retryConfig: retryConfig}
}

// RandomTossup fetches up to number tossups matching sel, retrying
// transient failures. number <= 0 is sent as 1.
func (s *Source) RandomTossup(ctx context.Context, sel query.Selection, number int) (Tossups, error) {
	if number <= 0 {
		number = 1
	}
	params := map[string][]string{
		"number": {strconv.Itoa(number)},
	}
	if len(sel.Categories) > 0 {
		params["categories"] = sel.Categories
	}
	if len(sel.Subcategories) > 0 {
		params["subcategories"] = sel.Subcategories
	}
	if len(sel.AlternateSubcategories) > 0 {
		params["alternateSubcategories"] = sel.AlternateSubcategories
	}

	var result Tossups
	err := retry.Do(ctx, s.retryConfig, func() error {
		resp, err := s.client.Get(ctx, "/api/random-tossup", params)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			return &statusError{status: resp.StatusCode}
		}
		return resp.JSON(&result)
	})
	if err != nil {
		return Tossups{}, fmt.Errorf("fetch random tossup: %w", err)
	}
	return result, nil
}
