package presentation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotJSONRoundTrip(t *testing.T) {
	for _, st := range []State{StateLoading, StateError, StateIdle, StatePlaying} {
		in := Snapshot{State: st, Speaking: true, HasStream: true, Remote: true, Muted: true}
		if st == StateError {
			in.ErrorMessage = "permission denied"
		}

		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out Snapshot
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out, "state %s", st)
	}
}

func TestStateUnmarshalRejectsUnknown(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`{"state":"buffering"}`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffering")

	var st State
	assert.Error(t, st.UnmarshalText([]byte("state(9)")))
	require.NoError(t, st.UnmarshalText([]byte("idle")))
	assert.Equal(t, StateIdle, st)
}
