package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sampsyo/band/internal/domain"
	"github.com/sampsyo/band/internal/shortcode"
)

func TestEncodeEvent(t *testing.T) {
	msg := domain.OutgoingMessage{
		ID:    7,
		Body:  "hi",
		User:  "alice",
		Votes: 2,
		TS:    time.Unix(1700000000, 0).UTC(),
	}

	name, data := encodeEvent(domain.MessageEvent{Message: msg})
	require.Equal(t, "message", name)
	var wm wireMessage
	require.NoError(t, json.Unmarshal([]byte(data), &wm))
	require.Equal(t, shortcode.Encode(7), wm.ID)
	require.Equal(t, "hi", wm.Body)
	require.Equal(t, "alice", wm.User)
	require.Equal(t, 2, wm.Votes)

	name, data = encodeEvent(domain.VoteEvent{Message: 7, Delta: -1})
	require.Equal(t, "vote", name)
	var wv wireVote
	require.NoError(t, json.Unmarshal([]byte(data), &wv))
	require.Equal(t, shortcode.Encode(7), wv.Message)
	require.Equal(t, -1, wv.Delta)
}
