package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/stugorf/hdc-digest/internal/domain"
)

// routedAgent answers by the first registered marker found in the prompt.
type routedAgent struct {
	mu      sync.Mutex
	routes  []route
	prompts []string
}

type route struct {
	marker string
	reply  string
	err    error
}

func (a *routedAgent) on(marker, reply string) *routedAgent {
	a.routes = append(a.routes, route{marker: marker, reply: reply})
	return a
}

func (a *routedAgent) fail(marker string, err error) *routedAgent {
	a.routes = append(a.routes, route{marker: marker, err: err})
	return a
}

func (a *routedAgent) Run(_ context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts = append(a.prompts, prompt)
	for _, r := range a.routes {
		if strings.Contains(prompt, r.marker) {
			return r.reply, r.err
		}
	}
	return "", errors.New("unexpected prompt")
}

type staticSource struct {
	sections []domain.Section
	err      error
}

func (s staticSource) FetchSections(context.Context, time.Time) ([]domain.Section, error) {
	out := make([]domain.Section, len(s.sections))
	copy(out, s.sections)
	return out, s.err
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.messages = append(n.messages, digest)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
