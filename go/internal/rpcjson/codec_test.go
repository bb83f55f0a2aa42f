package rpcjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	LeagueID string `json:"league_id"`
	Limit    int    `json:"limit,omitempty"`
}

func TestCodecUsesSnakeCaseTags(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&sample{LeagueID: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"league_id":"abc"}`, string(data))

	var out sample
	require.NoError(t, c.Unmarshal([]byte(`{"league_id":"xyz","limit":3}`), &out))
	assert.Equal(t, sample{LeagueID: "xyz", Limit: 3}, out)
}

func TestCodecEmptyBody(t *testing.T) {
	var out sample
	require.NoError(t, Codec{}.Unmarshal(nil, &out))
	assert.Equal(t, sample{}, out)
}

func TestCodecRejectsMalformedJSON(t *testing.T) {
	var out sample
	err := Codec{}.Unmarshal([]byte(`{"league_id":`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpcjson unmarshal")
}
