package ferryq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_Setters(t *testing.T) {
	var o options

	TaskID("id-1")(&o)
	require.Equal(t, "id-1", o.id, "TaskID not set")

	// default: retention not overridden
	require.False(t, o.retentionSet)
	require.Zero(t, o.retention)

	Retention(0)(&o)
	require.True(t, o.retentionSet)
	require.Equal(t, time.Duration(0), o.retention)

	Retention(5 * time.Minute)(&o)
	require.True(t, o.retentionSet)
	require.Equal(t, 5*time.Minute, o.retention)
}
