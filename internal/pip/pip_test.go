package pip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPos float64

func (p staticPos) Position() float64 { return float64(p) }

func TestEnterDisplacesPrevious(t *testing.T) {
	m := NewManager()

	displaced := m.Enter(Handoff{ItemID: 1, Title: "First", CurrentTime: 10}, staticPos(10))
	assert.Nil(t, displaced)

	displaced = m.Enter(Handoff{ItemID: 2, Title: "Second", CurrentTime: 0}, staticPos(0))
	require.NotNil(t, displaced)
	assert.Equal(t, 1, displaced.ItemID)

	// Exactly one session remains miniaturized.
	cur := m.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 2, cur.ItemID)
}

func TestPromoteReadsLivePosition(t *testing.T) {
	m := NewManager()
	m.Enter(Handoff{SessionID: "s-7", ItemID: 7, CurrentTime: 100, StreamURL: "http://cdn.example/7"}, staticPos(142.5))

	h, ok := m.Promote()
	require.True(t, ok)
	assert.Equal(t, "s-7", h.SessionID)
	assert.Equal(t, 142.5, h.CurrentTime)
	assert.Equal(t, "http://cdn.example/7", h.StreamURL)

	assert.False(t, m.Active())
	_, ok = m.Promote()
	assert.False(t, ok)
}

func TestCurrentRefreshesPosition(t *testing.T) {
	m := NewManager()
	m.Enter(Handoff{ItemID: 3, CurrentTime: 5}, staticPos(9))

	cur := m.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 9.0, cur.CurrentTime)

	m.Close()
	assert.Nil(t, m.Current())
}
