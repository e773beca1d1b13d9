package weave_test

import (
	"testing"

	"github.com/brunokim/tapestry-weave/weave"
	"github.com/stretchr/testify/require"
)

func TestNewIDUnique(t *testing.T) {
	seen := make(map[weave.Id]bool)
	for i := 0; i < 1000; i++ {
		id := weave.NewID()
		require.False(t, seen[id], "generated a duplicate id")
		seen[id] = true
	}
}

func TestNewIDWithHintOrdersByTimestamp(t *testing.T) {
	early := weave.NewIDWithHint(1000)
	late := weave.NewIDWithHint(2000)
	require.Equal(t, -1, early.Compare(late))
	require.Equal(t, 1, late.Compare(early))
	require.Equal(t, 0, early.Compare(early))
}

func TestIdStringIsCanonicalUUID(t *testing.T) {
	id := weave.NewID()
	s := id.String()
	require.Len(t, s, 36)
	require.Equal(t, byte('-'), s[8])
	require.Equal(t, byte('-'), s[13])
	require.Equal(t, byte('-'), s[18])
	require.Equal(t, byte('-'), s[23])
}

func TestMockIDsIsDeterministicAndRestores(t *testing.T) {
	a, b := weave.NewID(), weave.NewID()
	teardown := weave.MockIDs(a, b)
	require.Equal(t, a, weave.NewID())
	require.Equal(t, b, weave.NewID())
	teardown()

	after := weave.NewID()
	require.NotEqual(t, a, after)
	require.NotEqual(t, b, after)
}
