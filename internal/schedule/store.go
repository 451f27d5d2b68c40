// Package schedule implements the ordered event store: an unbalanced binary
// search tree keyed by event start, kept in an arena of nodes addressed by
// index. The store performs no I/O; every query returns its results.
package schedule

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/samber/mo"

	"evsched/internal/clock"
	"evsched/internal/model"
)

var (
	// ErrDuplicateStart is returned by Insert when an event with the same
	// start already exists. The store is left unchanged.
	ErrDuplicateStart = errors.New("schedule: event overlap detected")

	// ErrNoStart is returned by Insert for an event whose start was never set.
	ErrNoStart = errors.New("schedule: event start is not set")
)

type node struct {
	ev    model.Event
	left  mo.Option[int]
	right mo.Option[int]
}

// Store holds events ordered by start. It is not safe for concurrent use.
type Store struct {
	nodes []node
	free  []int
	root  mo.Option[int]

	// byID maps an event ID to the starts of every event carrying it, in
	// ascending order. Keys survive successor relocation during delete, so
	// no fixup is needed when node contents move.
	byID map[int][]clock.Stamp
	size int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		root: mo.None[int](),
		byID: make(map[int][]clock.Stamp),
	}
}

// Len returns the number of stored events.
func (s *Store) Len() int { return s.size }

// Insert adds ev keyed by ev.Start. The tree is never rebalanced.
func (s *Store) Insert(ev model.Event) error {
	if ev.Start.IsZero() {
		return ErrNoStart
	}

	cur, ok := s.root.Get()
	if !ok {
		s.root = mo.Some(s.alloc(ev))
		s.index(ev)
		return nil
	}

	for {
		n := s.nodes[cur]
		c := ev.Start.Compare(n.ev.Start)
		if c == 0 {
			return fmt.Errorf("%w: %s already holds event %d", ErrDuplicateStart, ev.Start, n.ev.ID)
		}

		next := n.right
		if c < 0 {
			next = n.left
		}
		if idx, ok := next.Get(); ok {
			cur = idx
			continue
		}

		// alloc may grow s.nodes, so link through the index afterwards.
		idx := s.alloc(ev)
		if c < 0 {
			s.nodes[cur].left = mo.Some(idx)
		} else {
			s.nodes[cur].right = mo.Some(idx)
		}
		s.index(ev)
		return nil
	}
}

// Delete removes the earliest-starting event carrying id and returns it.
// An unknown id is a no-op.
func (s *Store) Delete(id int) (model.Event, bool) {
	keys := s.byID[id]
	if len(keys) == 0 {
		return model.Event{}, false
	}
	ev, ok := s.deleteKey(keys[0])
	if !ok {
		// Index and tree disagree; drop the stale key.
		s.unindex(id, keys[0])
		return model.Event{}, false
	}
	s.unindex(id, ev.Start)
	return ev, true
}

// Get returns the event starting at start.
func (s *Store) Get(start clock.Stamp) (model.Event, bool) {
	cur := s.root
	for idx, ok := cur.Get(); ok; idx, ok = cur.Get() {
		n := s.nodes[idx]
		switch c := start.Compare(n.ev.Start); {
		case c < 0:
			cur = n.left
		case c > 0:
			cur = n.right
		default:
			return n.ev, true
		}
	}
	return model.Event{}, false
}

// All yields every event in ascending start order.
func (s *Store) All() iter.Seq[model.Event] {
	return s.walk
}

// Events returns every event in ascending start order.
func (s *Store) Events() []model.Event {
	out := make([]model.Event, 0, s.size)
	for ev := range s.All() {
		out = append(out, ev)
	}
	return out
}

// Day returns the events whose start falls on day ("YYYY-MM-DD").
func (s *Store) Day(day string) []model.Event {
	var out []model.Event
	for ev := range s.All() {
		if ev.Start.Day() == day {
			out = append(out, ev)
		}
	}
	return out
}

// deleteKey unlinks the node keyed by key. A node with two children takes
// over the fields of its in-order successor, which is then unlinked.
func (s *Store) deleteKey(key clock.Stamp) (model.Event, bool) {
	link := &s.root
	for {
		idx, ok := link.Get()
		if !ok {
			return model.Event{}, false
		}
		n := &s.nodes[idx]
		c := key.Compare(n.ev.Start)
		if c < 0 {
			link = &n.left
			continue
		}
		if c > 0 {
			link = &n.right
			continue
		}

		removed := n.ev
		switch {
		case n.left.IsAbsent():
			*link = n.right
			s.release(idx)
		case n.right.IsAbsent():
			*link = n.left
			s.release(idx)
		default:
			succLink := &n.right
			succ := succLink.MustGet()
			for s.nodes[succ].left.IsPresent() {
				succLink = &s.nodes[succ].left
				succ = succLink.MustGet()
			}
			n.ev = s.nodes[succ].ev
			*succLink = s.nodes[succ].right
			s.release(succ)
		}
		return removed, true
	}
}

func (s *Store) walk(yield func(model.Event) bool) {
	var stack []int
	cur := s.root
	for {
		for idx, ok := cur.Get(); ok; idx, ok = cur.Get() {
			stack = append(stack, idx)
			cur = s.nodes[idx].left
		}
		if len(stack) == 0 {
			return
		}
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !yield(s.nodes[idx].ev) {
			return
		}
		cur = s.nodes[idx].right
	}
}

func (s *Store) alloc(ev model.Event) int {
	n := node{ev: ev, left: mo.None[int](), right: mo.None[int]()}
	s.size++
	if k := len(s.free); k > 0 {
		idx := s.free[k-1]
		s.free = s.free[:k-1]
		s.nodes[idx] = n
		return idx
	}
	s.nodes = append(s.nodes, n)
	return len(s.nodes) - 1
}

func (s *Store) release(idx int) {
	s.nodes[idx] = node{}
	s.free = append(s.free, idx)
	s.size--
}

func (s *Store) index(ev model.Event) {
	keys := s.byID[ev.ID]
	i, _ := slices.BinarySearchFunc(keys, ev.Start, clock.Stamp.Compare)
	s.byID[ev.ID] = slices.Insert(keys, i, ev.Start)
}

func (s *Store) unindex(id int, key clock.Stamp) {
	keys := s.byID[id]
	i, found := slices.BinarySearchFunc(keys, key, clock.Stamp.Compare)
	if !found {
		return
	}
	keys = slices.Delete(keys, i, i+1)
	if len(keys) == 0 {
		delete(s.byID, id)
		return
	}
	s.byID[id] = keys
}
