package pages

import "sync"

// Update is delivered to store subscribers. Full updates carry the whole new
// list; partial updates carry only the pages that changed.
type Update struct {
	Full  bool
	Pages List
}

// Store holds the current page list of one document.
// The zero value is ready to use.
type Store struct {
	mu     sync.RWMutex
	list   List
	subs   map[int]func(Update)
	nextID int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Current returns a copy of the stored list.
func (s *Store) Current() List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Clone()
}

// Len returns the number of stored pages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// ReplaceAll stores list, marking every page for update, and notifies
// subscribers with the full list.
func (s *Store) ReplaceAll(list List) {
	next := list.Clone()
	for i := range next {
		next[i].IsUpdate = true
	}

	s.mu.Lock()
	s.list = next
	subs := s.subscribers()
	s.mu.Unlock()

	s.notify(subs, Update{Full: true, Pages: next.Clone()})
}

// MergePartial replaces the stored pages that have a same-page counterpart in
// changed. Every page after a replaced one is shifted by the accumulated
// change in length of the pages before it. Replaced pages are marked for
// update, all others are not. Subscribers receive only changed.
func (s *Store) MergePartial(changed List) {
	byPage := make(map[int]Record, len(changed))
	for _, r := range changed {
		byPage[r.Page] = r
	}

	s.mu.Lock()
	next := make(List, len(s.list))
	acc := 0
	for i, old := range s.list {
		fresh, ok := byPage[old.Page]
		if !ok {
			old.Start += acc
			old.End += acc
			old.IsUpdate = false
			next[i] = old
			continue
		}
		length := fresh.Len()
		fresh.Start = old.Start + acc
		fresh.End = fresh.Start + length
		fresh.IsUpdate = true
		next[i] = fresh
		acc += length - old.Len()
	}
	s.list = next
	subs := s.subscribers()
	s.mu.Unlock()

	s.notify(subs, Update{Pages: changed.Clone()})
}

// Realign copies offsets from a fresh segmentation of the same document
// without notifying anyone. It covers edits that only change separator
// widths, which alter no page content but shift later offsets.
// It does nothing when the page counts differ.
func (s *Store) Realign(fresh List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(fresh) != len(s.list) {
		return
	}
	for i := range s.list {
		s.list[i].Start = fresh[i].Start
		s.list[i].End = fresh[i].End
	}
}

// Subscribe registers fn for future updates and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(Update)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(Update))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// subscribers snapshots the subscriber set in registration order.
// Callers must hold s.mu.
func (s *Store) subscribers() []func(Update) {
	out := make([]func(Update), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *Store) notify(subs []func(Update), u Update) {
	for _, fn := range subs {
		fn(u)
	}
}
