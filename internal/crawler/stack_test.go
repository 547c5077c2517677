package crawler

import (
	"testing"

	"github.com/alvmarrod/fair/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackLIFO(t *testing.T) {
	s := NewStack()
	assert.True(t, s.IsEmpty())
	assert.Nil(t, s.Peek())
	assert.Nil(t, s.Pop())

	s.Push(storage.WorkItem{Username: "a", Depth: 1}, []string{"b", "c"})
	s.Push(storage.WorkItem{Username: "b", Depth: 2}, nil)
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, []storage.WorkItem{{Username: "a", Depth: 1}, {Username: "b", Depth: 2}}, s.GetAllEntries())

	top := s.Pop()
	require.NotNil(t, top)
	assert.Equal(t, "b", top.Item.Username)
	assert.Equal(t, "a", s.Peek().Item.Username)
}

func TestFrameCursor(t *testing.T) {
	s := NewStack()
	s.Push(storage.WorkItem{Username: "a", Depth: 1}, []string{"b", "c"})
	frame := s.Peek()
	assert.Equal(t, 2, frame.Remaining())

	next, ok := frame.Next()
	assert.True(t, ok)
	assert.Equal(t, "b", next)

	// The cursor lives on the frame, so peeking again resumes where it stopped
	next, ok = s.Peek().Next()
	assert.True(t, ok)
	assert.Equal(t, "c", next)

	_, ok = frame.Next()
	assert.False(t, ok)
	assert.Zero(t, frame.Remaining())
}

func TestExploredSet(t *testing.T) {
	e := NewExploredSet()
	assert.True(t, e.Add("a"))
	assert.True(t, e.Add("b"))
	assert.False(t, e.Add("a"))

	assert.True(t, e.Contains("a"))
	assert.False(t, e.Contains("z"))
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, []string{"a", "b"}, e.Members())
}
