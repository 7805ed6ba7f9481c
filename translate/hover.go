package translate

import (
	"context"
	"strings"
	"time"
)

type hoverState struct {
	touch   bool
	shown   bool
	text    string
	pending *time.Timer
	linger  *time.Timer
}

func (st *hoverState) stop() {
	if st.pending != nil {
		st.pending.Stop()
	}
	if st.linger != nil {
		st.linger.Stop()
	}
}

// resetHover drops all hover displays. Must hold o.mu.
func (o *Overlay) resetHover() {
	for key, st := range o.hover {
		st.stop()
		delete(o.hover, key)
	}
}

// Hover starts translating text after the pointer (or touch) debounce. A
// fragment already in the cache is shown at once.
func (o *Overlay) Hover(text string, touch bool) {
	key := strings.TrimSpace(text)
	if key == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mode != ModeHover {
		return
	}
	if prev, ok := o.hover[key]; ok {
		prev.stop()
	}

	st := &hoverState{touch: touch}
	o.hover[key] = st
	if cached, ok := o.cache.Get(key, o.lang); ok {
		st.text, st.shown = cached, true
		return
	}

	delay := o.opts.HoverDelay
	if touch {
		delay = o.opts.TouchDelay
	}
	gen := o.gen
	st.pending = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), fragmentTimeout)
		defer cancel()
		translated := o.fragment(ctx, key, gen)

		o.mu.Lock()
		defer o.mu.Unlock()
		if o.gen == gen && o.hover[key] == st {
			st.text, st.shown = translated, true
		}
	})
}

// Leave clears the display for text. After a touch the translation lingers
// before it reverts.
func (o *Overlay) Leave(text string) {
	key := strings.TrimSpace(text)

	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.hover[key]
	if !ok {
		return
	}
	if !st.touch {
		st.stop()
		delete(o.hover, key)
		return
	}
	if st.linger != nil {
		st.linger.Stop()
	}
	st.linger = time.AfterFunc(o.opts.TouchLinger, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.hover[key] == st {
			if st.pending != nil {
				st.pending.Stop()
			}
			delete(o.hover, key)
		}
	})
}

// Visible returns the translation currently displayed for text.
func (o *Overlay) Visible(text string) (string, bool) {
	key := strings.TrimSpace(text)

	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.hover[key]
	if !ok || !st.shown {
		return "", false
	}
	return st.text, true
}
