package cursor

import (
	"context"
	"sync"

	"github.com/alnah/go-slidesync/internal/pages"
)

// Origin identifies which side set a State.
type Origin int

const (
	OriginPreview Origin = iota
	OriginEditor
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	switch o {
	case OriginEditor:
		return "editor"
	case OriginPreview:
		return "preview"
	default:
		return "unknown"
	}
}

// State is the page currently shown and the side that chose it.
type State struct {
	Page  int
	SetBy Origin
}

// applyingKey marks a context as belonging to a delivery of one channel.
type applyingKey struct{ ch *Channel }

type subscriber struct {
	side Origin
	fn   func(context.Context, State)
}

// Channel is the per-document page state shared by the editor and preview.
// Use NewChannel to create one.
type Channel struct {
	mu     sync.Mutex
	state  State
	subs   map[int]subscriber
	nextID int
}

// NewChannel returns a channel at page 0, set by the preview.
func NewChannel() *Channel {
	return &Channel{
		state: State{Page: 0, SetBy: OriginPreview},
		subs:  make(map[int]subscriber),
	}
}

// Current returns the latest accepted state.
func (c *Channel) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Applying reports whether ctx was handed to a subscriber of c.
func (c *Channel) Applying(ctx context.Context) bool {
	applying, _ := ctx.Value(applyingKey{c}).(bool)
	return applying
}

// Emit publishes s and delivers it synchronously to the subscribers of the
// other side. It returns false without changing anything when ctx comes from
// a delivery of this channel.
func (c *Channel) Emit(ctx context.Context, s State) bool {
	if c.Applying(ctx) {
		return false
	}

	c.mu.Lock()
	c.state = s
	targets := make([]func(context.Context, State), 0, len(c.subs))
	for id := 0; id < c.nextID; id++ {
		sub, ok := c.subs[id]
		if ok && sub.side != s.SetBy {
			targets = append(targets, sub.fn)
		}
	}
	c.mu.Unlock()

	deliverCtx := context.WithValue(ctx, applyingKey{c}, true)
	for _, fn := range targets {
		fn(deliverCtx, s)
	}
	return true
}

// Subscribe registers fn on behalf of side. fn never receives states set by
// side itself. The returned function removes the subscription.
func (c *Channel) Subscribe(side Origin, fn func(context.Context, State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = subscriber{side: side, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Locate returns the first page whose range contains offset, ends included.
func Locate(list pages.List, offset int) (pages.Record, bool) {
	return list.Locate(offset)
}
