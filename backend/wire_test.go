package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequest_ColorResolution(t *testing.T) {
	rgba := ColorRGBA("orange")
	req := createRequest{
		Kind:   "Background",
		Params: map[string]string{"color": "orange"},
		Color:  &rgba,
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded createRequest
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	require.NotNil(t, decoded.Color)
	assert.Equal(t, [4]float64{1.0, 0.6, 0.0, 1.0}, *decoded.Color)
	assert.Equal(t, "Background", decoded.Kind)
}

func TestWireReply_FailureCarriesError(t *testing.T) {
	var reply wireReply
	err := json.Unmarshal([]byte(`{"success":false,"error":"fusion page not open"}`), &reply)
	require.NoError(t, err)

	assert.False(t, reply.Success)
	assert.Equal(t, "fusion page not open", reply.Error)
	assert.Empty(t, reply.Result)
}

func TestInvokeRequest_TierTravelsWithCall(t *testing.T) {
	req := invokeRequest{
		Tool:     "pr_merge",
		Tier:     TierFor("pr_merge"),
		Approved: true,
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded invokeRequest
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, TierDestructive, decoded.Tier)
	assert.True(t, decoded.Approved)
}
