package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
)

func monitors() models.Topology {
	return models.Topology{
		{
			ID:      0,
			Name:    models.StrPtr("main"),
			Enabled: true,
			Modes:   []models.Mode{{Width: 1920, Height: 1080, RefreshRates: []models.RefreshRate{60, 144}}},
		},
		{ID: 1, Enabled: false},
	}
}

func TestEncodeShapes(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"notify", NewNotify(models.Topology{{ID: 2, Enabled: true}}), `{"Notify":[{"id":2,"name":null,"enabled":true,"modes":[]}]}`},
		{"notify empty", NewNotify(nil), `{"Notify":[]}`},
		{"remove", NewRemove([]models.ID{1, 3}), `{"Remove":[1,3]}`},
		{"remove empty", NewRemove(nil), `{"Remove":[]}`},
		{"remove all", NewRemoveAll(), `"RemoveAll"`},
		{"request state", NewRequestState(), `"State"`},
		{"reply state", NewReplyState(nil), `{"State":[]}`},
		{"changed", NewChanged(models.Topology{{ID: 7}}), `{"Changed":[{"id":7,"name":null,"enabled":false,"modes":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.cmd)
			require.NoError(t, err)
			require.NotEmpty(t, frame)
			assert.Equal(t, EOF, frame[len(frame)-1])
			assert.Equal(t, tt.want, string(frame[:len(frame)-1]))
			assert.NotContains(t, string(frame[:len(frame)-1]), string(rune(EOF)))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	server := []Command{
		NewNotify(monitors()),
		NewRemove([]models.ID{0, 4}),
		NewRemoveAll(),
		NewRequestState(),
	}
	for _, cmd := range server {
		frame, err := Encode(cmd)
		require.NoError(t, err)
		got, err := DecodeServerCommand(frame[:len(frame)-1])
		require.NoError(t, err, cmd.String())
		assert.Empty(t, cmp.Diff(cmd, got), cmd.String())
	}

	client := []Command{
		NewReplyState(monitors()),
		NewChanged(monitors()),
	}
	for _, cmd := range client {
		frame, err := Encode(cmd)
		require.NoError(t, err)
		got, err := DecodeClientCommand(frame[:len(frame)-1])
		require.NoError(t, err, cmd.String())
		assert.Empty(t, cmp.Diff(cmd, got), cmd.String())
	}
}

func TestDecodeSides(t *testing.T) {
	// "State" is a request on the server side and a reply on the client side.
	cmd, err := DecodeServerCommand([]byte(`"State"`))
	require.NoError(t, err)
	assert.Equal(t, KindRequestState, cmd.Kind)

	cmd, err = DecodeClientCommand([]byte(`{"State":[]}`))
	require.NoError(t, err)
	assert.Equal(t, KindReplyState, cmd.Kind)
	assert.NotNil(t, cmd.Monitors)

	_, err = DecodeClientCommand([]byte(`"State"`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFrame))

	_, err = DecodeServerCommand([]byte(`{"Changed":[]}`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFrame))

	cmd, err = DecodeServerCommand([]byte(` {"RemoveAll":null} `))
	require.NoError(t, err)
	assert.Equal(t, KindRemoveAll, cmd.Kind)
}

func TestDecodeRejects(t *testing.T) {
	bad := []string{
		``,
		`42`,
		`[]`,
		`"Nope"`,
		`{}`,
		`{"Notify":[],"Remove":[]}`,
		`{"Notify":null}`,
		`{"Notify":{"id":1}}`,
		`{"Remove":[-1]}`,
		`{"Remove":["a"]}`,
		`{"Notify":[{"id":"x","enabled":true,"modes":[]}]}`,
		`{"Notify":[{}]}`,
		`{"Notify":[{"id":3}]}`,
		`{"Notify":[null]}`,
		`{"Notify":[{"id":3,"enabled":true,"modes":null}]}`,
		`{"Notify":[{"id":3,"enabled":true,"modes":[{"width":800,"height":600}]}]}`,
		`{"Notify":[{"id":3,"enabled":true,"modes":[{"width":800,"height":600,"refresh_rates":null}]}]}`,
		`{"Notify":[`,
	}
	for _, payload := range bad {
		_, err := DecodeServerCommand([]byte(payload))
		assert.Error(t, err, "payload %q", payload)
	}

	_, err := DecodeClientCommand([]byte(`{"Changed":[{"id":1,"enabled":true}]}`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFrame))
}

func TestDecodeNameOptional(t *testing.T) {
	cmd, err := DecodeServerCommand([]byte(`{"Notify":[{"id":3,"enabled":true,"modes":[{"width":800,"height":600,"refresh_rates":[]}]}]}`))
	require.NoError(t, err)
	require.Len(t, cmd.Monitors, 1)
	assert.Nil(t, cmd.Monitors[0].Name)
	assert.NotNil(t, cmd.Monitors[0].Modes[0].RefreshRates)
}
