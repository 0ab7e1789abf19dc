package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sigil/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-number")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects zero and negatives", func(t *testing.T) {
		for _, in := range []string{"0", "-4"} {
			_, err := ParseUserID(in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), in)
		}
	})

	t.Run("accepts valid id with surrounding space", func(t *testing.T) {
		id, err := ParseUserID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, UserID(42), id)
	})
}

func TestParseClientID_Canonicalizes(t *testing.T) {
	id, err := ParseClientID("0001234")
	require.NoError(t, err)
	assert.Equal(t, ClientID("1234"), id)

	_, err = ParseClientID("abc")
	assert.Error(t, err)
}

func TestSessionID_JSONIsString(t *testing.T) {
	payload := struct {
		SessionID SessionID `json:"session_id"`
	}{SessionID: 1771234567890123456}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"1771234567890123456"}`, string(raw))

	var decoded struct {
		SessionID SessionID `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, payload.SessionID, decoded.SessionID)
}
