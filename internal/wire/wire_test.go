package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekTypeReadsDiscriminatorOnly(t *testing.T) {
	raw, err := Marshal(NewHeartbeat())
	require.NoError(t, err)

	typ, err := PeekType(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeHeartbeat, typ)
}

func TestEncodeMutationRoundTrips(t *testing.T) {
	type togglePayload struct {
		TrackID string `json:"trackId"`
		Step    int    `json:"step"`
	}
	msg, err := EncodeMutation("toggle_step", 7, togglePayload{TrackID: "t1", Step: 3})
	require.NoError(t, err)
	assert.Equal(t, "toggle_step", msg.Type)
	assert.Equal(t, int64(7), msg.Seq)

	raw, err := Marshal(msg)
	require.NoError(t, err)

	typ, err := PeekType(raw)
	require.NoError(t, err)
	assert.Equal(t, "toggle_step", typ)

	var decoded MutationMessage
	require.NoError(t, Unmarshal(raw, &decoded))
	var payload togglePayload
	require.NoError(t, Unmarshal(decoded.Payload, &payload))
	assert.Equal(t, "t1", payload.TrackID)
	assert.Equal(t, 3, payload.Step)
}

func TestNewRejectedShape(t *testing.T) {
	r := NewRejected(42, "unknown track")
	assert.Equal(t, TypeRejected, r.Type)
	assert.Equal(t, int64(42), r.Seq)
	assert.Equal(t, "unknown track", r.Reason)
}
