package navigation

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/dgellow/auth-front/internal/log"
)

// MemoryNavigator is an in-process Navigator backed by a history stack. It is
// the default for headless hosts and the one tests drive.
type MemoryNavigator struct {
	mu        sync.Mutex
	entries   []historyEntry
	events    chan Event
	userAgent string
	embedded  bool
	done      []string // full navigations performed away from this surface
}

type historyEntry struct {
	url   *url.URL
	state *State
}

// MemoryOption configures a MemoryNavigator.
type MemoryOption func(*MemoryNavigator)

// WithUserAgent sets the user agent reported to transport tuning.
func WithUserAgent(ua string) MemoryOption {
	return func(n *MemoryNavigator) { n.userAgent = ua }
}

// WithEmbeddedCrossOrigin marks the surface as loaded in a cross-origin frame.
func WithEmbeddedCrossOrigin() MemoryOption {
	return func(n *MemoryNavigator) { n.embedded = true }
}

// NewMemoryNavigator creates a navigator whose current target is rawurl.
func NewMemoryNavigator(rawurl string, opts ...MemoryOption) (*MemoryNavigator, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("invalid navigation target %q: %w", rawurl, err)
	}
	n := &MemoryNavigator{
		entries: []historyEntry{{url: u}},
		events:  make(chan Event, 4),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *MemoryNavigator) CurrentURL() *url.URL {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries[len(n.entries)-1].url
}

func (n *MemoryNavigator) State() *State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries[len(n.entries)-1].state
}

func (n *MemoryNavigator) SupportsState() bool { return true }

func (n *MemoryNavigator) PushState(rawurl string, st *State) error {
	u, err := url.Parse(rawurl)
	if err != nil {
		return fmt.Errorf("invalid navigation target %q: %w", rawurl, err)
	}

	n.mu.Lock()
	n.entries = append(n.entries, historyEntry{url: u, state: st})
	n.mu.Unlock()

	log.LogDebugWithFields("navigation", "Pushed history entry", map[string]any{
		"url": u.String(),
	})

	// Synthesized notification; programmatic pushes have no native one.
	n.events <- Event{URL: u, State: st}
	return nil
}

func (n *MemoryNavigator) Navigate(rawurl string) error {
	if _, err := url.Parse(rawurl); err != nil {
		return fmt.Errorf("invalid navigation target %q: %w", rawurl, err)
	}

	n.mu.Lock()
	n.done = append(n.done, rawurl)
	n.mu.Unlock()

	log.LogInfoWithFields("navigation", "Navigating away", map[string]any{
		"url": rawurl,
	})
	return nil
}

func (n *MemoryNavigator) Events() <-chan Event { return n.events }

func (n *MemoryNavigator) UserAgent() string { return n.userAgent }

func (n *MemoryNavigator) EmbeddedCrossOrigin() bool { return n.embedded }

// Departures returns the full navigations performed so far, oldest first.
func (n *MemoryNavigator) Departures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.done))
	copy(out, n.done)
	return out
}
