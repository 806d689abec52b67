package inbox

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentText(t *testing.T) {
	v := validator.New()
	content, err := ParseContent(json.RawMessage(`{"message_type":"text","text":{"body":"hello there"}}`), v)
	require.NoError(t, err)
	assert.Equal(t, TypeText, content.Type)
	require.NotNil(t, content.Text)
	assert.Equal(t, "hello there", content.Text.Body)
}

func TestParseContentVariants(t *testing.T) {
	v := validator.New()
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"image", `{"message_type":"image","image":{"url":"https://cdn.example.com/a.png","mime_type":"image/png","size_bytes":123}}`, true},
		{"audio", `{"message_type":"audio","audio":{"url":"https://cdn.example.com/a.ogg","mime_type":"audio/ogg"}}`, true},
		{"video", `{"message_type":"video","video":{"url":"https://cdn.example.com/a.mp4","mime_type":"video/mp4"}}`, true},
		{"document", `{"message_type":"document","document":{"url":"https://cdn.example.com/a.pdf","file_name":"a.pdf","mime_type":"application/pdf"}}`, true},
		{"unknown type", `{"message_type":"sticker","text":{"body":"x"}}`, false},
		{"missing variant", `{"message_type":"text"}`, false},
		{"mismatched variant", `{"message_type":"text","image":{"url":"https://x.example.com/a.png","mime_type":"image/png"}}`, false},
		{"two variants", `{"message_type":"text","text":{"body":"x"},"image":{"url":"https://x.example.com/a.png","mime_type":"image/png"}}`, false},
		{"empty body", `{"message_type":"text","text":{"body":""}}`, false},
		{"bad url", `{"message_type":"image","image":{"url":"not-a-url","mime_type":"image/png"}}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseContent(json.RawMessage(tc.raw), v)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseContentUnknownTypeError(t *testing.T) {
	v := validator.New()
	_, err := ParseContent(json.RawMessage(`{"message_type":"sticker"}`), v)
	var unknown ErrUnknownMessageType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, MessageType("sticker"), unknown.Type)
}
