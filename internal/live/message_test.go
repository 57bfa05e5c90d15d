package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/care-map/internal/snapshot"
)

func TestEncode(t *testing.T) {
	snap := snapshot.Snapshot{{ID: "inst1", Name: "One", Ratings: []int{4}}}

	payload, err := Encode(TypeDataUpdate, snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"data_update","data":[{"id":"inst1","name":"One","ratings":[4]}]}`, string(payload))
}

func TestEncode_NilSnapshot(t *testing.T) {
	payload, err := Encode(TypeInitialData, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"initial_data","data":[]}`, string(payload))
}
