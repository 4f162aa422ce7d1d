package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLegacyLine(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLegacyLine([]byte("AUTH:user:pass")))
	assert.True(t, IsLegacyLine([]byte("PING:123")))
	assert.True(t, IsLegacyLine([]byte("CHAT:hello")))
	assert.False(t, IsLegacyLine([]byte("GREET:hello")))
	assert.False(t, IsLegacyLine([]byte("auth:user:pass")), "prefixes are case sensitive")
	assert.False(t, IsLegacyLine(nil))
	assert.False(t, IsLegacyLine(Encode(Heartbeat{}, 1)))
}

func TestTranslateLegacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		expected Message
	}{
		{"auth", "AUTH:alice:s3cret", AuthRequest{Username: "alice", Password: "s3cret"}},
		{"auth password with colon", "AUTH:alice:pa:ss", AuthRequest{Username: "alice", Password: "pa:ss"}},
		{"ping", "PING:1724400000123", Heartbeat{ClientTime: 1724400000123}},
		{"position without heading", "POSITION:7:1.5:-2.25:1024", PositionUpdate{EntityID: 7, X: 1.5, Y: -2.25, Z: 1024}},
		{"position with heading", "POSITION:7:1:2:3:90", PositionUpdate{EntityID: 7, X: 1, Y: 2, Z: 3, Heading: 90}},
		{"move delta", "MOVE_DELTA:7:-0.5:0:0.125", DeltaPositionUpdate{EntityID: 7, DX: -0.5, DY: 0, DZ: 0.125}},
		{"chat", "CHAT:hello world", ChatMessage{Text: "hello world"}},
		{"chat with colons", "CHAT:a:b:c", ChatMessage{Text: "a:b:c"}},
		{"command no args", "COMMAND:who", Command{Name: "who"}},
		{"command with args", "COMMAND:kick:bob:spamming", Command{Name: "kick", Args: []string{"bob", "spamming"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, ok := TranslateLegacy(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.expected, msg)
		})
	}
}

func TestTranslateLegacy_RejectsMalformedLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"unknown prefix", "HELLO:world"},
		{"auth missing password", "AUTH:alice"},
		{"ping not a number", "PING:abc"},
		{"position too few fields", "POSITION:7:1:2"},
		{"position too many fields", "POSITION:7:1:2:3:4:5"},
		{"position bad entity", "POSITION:x:1:2:3"},
		{"position bad coordinate", "POSITION:7:one:2:3"},
		{"delta wrong arity", "MOVE_DELTA:7:1:2"},
		{"command empty name", "COMMAND:"},
		{"empty line", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, ok := TranslateLegacy(tt.line)
			assert.False(t, ok)
			assert.Nil(t, msg)
		})
	}
}

func TestTranslateLegacy_RoundTripsThroughCodec(t *testing.T) {
	t.Parallel()

	msg, ok := TranslateLegacy("POSITION:42:10.5:20:30.25:180")
	require.True(t, ok)

	decoded, _, ok := Decode(Encode(msg, 1))
	require.True(t, ok)
	assert.Equal(t, msg, decoded)
}
