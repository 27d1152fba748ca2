package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

func TestEncode_MessageSentFailed(t *testing.T) {
	frame, err := Encode(MessageSentFailed("carol", "User carol not found"))
	require.NoError(t, err)

	m := frame.AsMap()
	assert.Equal(t, EventMessageSent, m["event"])
	assert.Equal(t, map[string]any{
		"success": false,
		"to":      "carol",
		"error":   "User carol not found",
	}, m["data"])
}

func TestEncode_UserListNeverNull(t *testing.T) {
	frame, err := Encode(Users(nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"users": []any{}}, frame.AsMap()["data"])
}

func TestEncode_PublicKeysIsFlatMapping(t *testing.T) {
	frame, err := Encode(PublicKeys(map[string]string{"alice": "KA"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"alice": "KA"}, frame.AsMap()["data"])
}

func TestDecode_SendMessage(t *testing.T) {
	frame, err := structpb.NewStruct(map[string]any{
		"event": "send_message",
		"data": map[string]any{
			"to":                "bob",
			"from":              "alice",
			"encrypted_message": "Y3Q=",
			"encrypted_keys":    map[string]any{"bob": "a2I=", "alice": "a2E="},
			"iv":                "aXY=",
		},
	})
	require.NoError(t, err)

	in, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, EventSendMessage, in.Event)

	var msg Message
	require.NoError(t, in.Bind(&msg))
	assert.Equal(t, models.Envelope{
		To:               "bob",
		From:             "alice",
		EncryptedMessage: models.StringBlob("Y3Q="),
		EncryptedKeys:    models.JSONBlob(map[string]string{"bob": "a2I=", "alice": "a2E="}),
		IV:               models.StringBlob("aXY="),
	}, msg.Envelope())
}

func TestDecode_SendMessageBlobsAnyShape(t *testing.T) {
	frame, err := structpb.NewStruct(map[string]any{
		"event": "send_message",
		"data": map[string]any{
			"to":                "bob",
			"from":              "alice",
			"encrypted_message": map[string]any{"ct": "Y3Q="},
			"encrypted_keys":    "not-a-map",
			"iv":                []any{1.0, 2.0, 3.0},
		},
	})
	require.NoError(t, err)

	in, err := Decode(frame)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, in.Bind(&msg))
	assert.Equal(t, "bob", msg.To)
	assert.Equal(t, `[1,2,3]`, string(msg.IV))
	assert.Equal(t, `{"ct":"Y3Q="}`, string(msg.EncryptedMessage))
	assert.Equal(t, `"not-a-map"`, string(msg.EncryptedKeys))

	out, err := Encode(ReceiveMessage(msg.Envelope()))
	require.NoError(t, err)
	data := out.AsMap()["data"].(map[string]any)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, data["iv"])
	assert.Equal(t, "not-a-map", data["encrypted_keys"])
}

func TestBind_SendMessageAddressNotString(t *testing.T) {
	frame, err := structpb.NewStruct(map[string]any{
		"event": "send_message",
		"data":  map[string]any{"to": []any{"bob"}},
	})
	require.NoError(t, err)
	in, err := Decode(frame)
	require.NoError(t, err)

	var msg Message
	assert.True(t, errors.Is(in.Bind(&msg), common.ErrMalformedFrame))
}

func TestDecode_WithoutData(t *testing.T) {
	frame, err := structpb.NewStruct(map[string]any{"event": "get_public_keys"})
	require.NoError(t, err)

	in, err := Decode(frame)
	require.NoError(t, err)

	var req RegisterRequest
	require.NoError(t, in.Bind(&req))
	assert.Equal(t, RegisterRequest{}, req)
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]map[string]any{
		"missing event": {"data": map[string]any{}},
		"numeric event": {"event": 7.0},
		"empty event":   {"event": ""},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			frame, err := structpb.NewStruct(fields)
			require.NoError(t, err)
			_, err = Decode(frame)
			assert.True(t, errors.Is(err, common.ErrMalformedFrame), "got %v", err)
		})
	}

	_, err := Decode(nil)
	assert.True(t, errors.Is(err, common.ErrMalformedFrame))
}

func TestBind_TypeMismatch(t *testing.T) {
	frame, err := structpb.NewStruct(map[string]any{
		"event": "register",
		"data":  map[string]any{"username": 42.0},
	})
	require.NoError(t, err)
	in, err := Decode(frame)
	require.NoError(t, err)

	var req RegisterRequest
	assert.True(t, errors.Is(in.Bind(&req), common.ErrMalformedFrame))
}
