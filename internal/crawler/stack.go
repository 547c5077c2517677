package crawler

import (
	"github.com/alvmarrod/fair/internal/storage"
)

// Frame is an expanded account on the work-list together with a cursor
// over the relations still to be visited
type Frame struct {
	Item      storage.WorkItem
	relations []string
	next      int
}

// Next returns the next pending relation and advances the cursor
func (f *Frame) Next() (string, bool) {
	if f.next >= len(f.relations) {
		return "", false
	}
	related := f.relations[f.next]
	f.next++
	return related, true
}

// Remaining returns how many relations are still pending
func (f *Frame) Remaining() int {
	return len(f.relations) - f.next
}

// Stack is the explicit depth-first work-list. The top frame is always the
// deepest account whose relations are still being walked, so popping a
// finished frame resumes its parent exactly where host recursion would.
type Stack struct {
	frames []*Frame
}

// NewStack creates an empty work-list
func NewStack() *Stack {
	return &Stack{frames: make([]*Frame, 0)}
}

// Push adds a frame for item with its ordered relations
func (s *Stack) Push(item storage.WorkItem, relations []string) {
	s.frames = append(s.frames, &Frame{Item: item, relations: relations})
}

// Peek returns the top frame, nil if empty
func (s *Stack) Peek() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Pop removes and returns the top frame, nil if empty
func (s *Stack) Pop() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	top := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return top
}

// IsEmpty returns true if the stack has no frames
func (s *Stack) IsEmpty() bool {
	return len(s.frames) == 0
}

// Size returns the current number of frames
func (s *Stack) Size() int {
	return len(s.frames)
}

// GetAllEntries returns a snapshot of the work items on the stack, bottom first.
// Used for logging where an interrupted walk stopped.
func (s *Stack) GetAllEntries() []storage.WorkItem {
	entries := make([]storage.WorkItem, len(s.frames))
	for i, f := range s.frames {
		entries[i] = f.Item
	}
	return entries
}

// ExploredSet holds the usernames already visited in a run. It only grows.
type ExploredSet struct {
	members map[string]bool
	order   []string
}

// NewExploredSet creates an empty set
func NewExploredSet() *ExploredSet {
	return &ExploredSet{members: make(map[string]bool)}
}

// Add marks username explored; returns false if it already was
func (e *ExploredSet) Add(username string) bool {
	if e.members[username] {
		return false
	}
	e.members[username] = true
	e.order = append(e.order, username)
	return true
}

// Contains reports whether username was explored
func (e *ExploredSet) Contains(username string) bool {
	return e.members[username]
}

// Len returns the number of explored usernames
func (e *ExploredSet) Len() int {
	return len(e.members)
}

// Members returns explored usernames in visit order
func (e *ExploredSet) Members() []string {
	return append([]string(nil), e.order...)
}
