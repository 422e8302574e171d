package network

import (
	"testing"

	"TC/utils"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

func TestDecodeBallot(t *testing.T) {
	yes, err := decodeBallot([]byte(`"yes"`))
	assert.NoError(t, err)
	assert.True(t, yes)

	no, err := decodeBallot([]byte(`"no"`))
	assert.NoError(t, err)
	assert.False(t, no)

	_, err = decodeBallot([]byte(`"maybe"`))
	assert.ErrorIs(t, err, utils.ErrIllegalFormat)
	_, err = decodeBallot([]byte(`42`))
	assert.ErrorIs(t, err, utils.ErrIllegalFormat)
	_, err = decodeBallot(nil)
	assert.ErrorIs(t, err, utils.ErrIllegalFormat)
}

func TestEnvelopeDecoding(t *testing.T) {
	var env envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"event":"play_move","data":"e2e4"}`), &env))
	assert.Equal(t, "play_move", env.Event)
	var lan string
	assert.NoError(t, json.Unmarshal(env.Data, &lan))
	assert.Equal(t, "e2e4", lan)

	var side struct {
		Side string `json:"side"`
	}
	assert.NoError(t, json.Unmarshal([]byte(`{"event":"join_side","data":{"side":"white"}}`), &env))
	assert.NoError(t, json.Unmarshal(env.Data, &side))
	assert.Equal(t, "white", side.Side)
}

func TestOutEnvelopeShape(t *testing.T) {
	frame, err := json.Marshal(outEnvelope{Event: "clock_update",
		Data: map[string]int{"whiteTime": 600, "blackTime": 599}})
	assert.NoError(t, err)
	assert.Contains(t, string(frame), `"event":"clock_update"`)
	assert.Contains(t, string(frame), `"whiteTime":600`)
}
