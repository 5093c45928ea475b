package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFileData(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantBody  string
		wantType  string
		wantError bool
	}{
		{name: "base64 with type", in: "data:text/plain;base64,aGVsbG8=", wantBody: "hello", wantType: "text/plain"},
		{name: "base64 unpadded", in: "data:text/plain;base64,aGVsbG8", wantBody: "hello", wantType: "text/plain"},
		{name: "base64 url alphabet", in: "data:application/octet-stream;base64,-_8=", wantBody: "\xfb\xff", wantType: "application/octet-stream"},
		{name: "params kept", in: "data:text/plain;charset=UTF-8;base64,aGk=", wantBody: "hi", wantType: "text/plain; charset=UTF-8"},
		{name: "percent encoded", in: "data:text/plain,hello%20world", wantBody: "hello world", wantType: "text/plain"},
		{name: "no type", in: "data:;base64,aGk=", wantBody: "hi"},
		{name: "not a data url", in: "plain content", wantBody: "plain content"},
		{name: "missing comma", in: "data:text/plain;base64", wantError: true},
		{name: "bad base64", in: "data:text/plain;base64,***", wantError: true},
		{name: "bad media type", in: "data:te xt;base64,aGk=", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, mt, err := decodeFileData(tt.in)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
			assert.Equal(t, tt.wantType, mt)
		})
	}
}

func TestSniffContentType(t *testing.T) {
	assert.Equal(t, "image/png", sniffContentType([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}))
	assert.Equal(t, "application/pdf", sniffContentType([]byte("%PDF-1.4")))
	assert.Equal(t, "text/plain; charset=utf-8", sniffContentType([]byte("hello")))
}

func TestSanitizeFilename(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\photo.jpg`, "photo.jpg"},
		{"bad\x00name\n.txt", "badname.txt"},
		{"  .hidden. ", "hidden"},
		{"..", "unnamed"},
		{"", "unnamed"},
		{string(long) + ".txt", string(long[:251]) + ".txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestFlexID(t *testing.T) {
	var v struct {
		A flexID `json:"a"`
		B flexID `json:"b"`
		C flexID `json:"c"`
	}
	require.NoError(t, jsonUnmarshal(`{"a": 7, "b": "42", "c": null}`, &v))
	assert.EqualValues(t, 7, v.A)
	assert.EqualValues(t, 42, v.B)
	assert.Zero(t, v.C)

	assert.Error(t, jsonUnmarshal(`{"a": "x7"}`, &v))
	assert.Error(t, jsonUnmarshal(`{"a": 1.5}`, &v))
}
