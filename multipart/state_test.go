package multipart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     ContentType
		wantMIME string
		wantOK   bool
	}{
		{name: "jpeg", input: "jpeg", want: ContentJPEG, wantMIME: "image/jpeg", wantOK: true},
		{name: "video", input: "video", want: ContentVideo, wantMIME: "video/mp4", wantOK: true},
		{name: "empty defaults to jpeg", input: "", want: ContentJPEG, wantMIME: "image/jpeg", wantOK: true},
		{name: "unknown", input: "gif", want: ContentJPEG, wantMIME: "image/jpeg", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseContentType(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMIME, got.MIMEType())
		})
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateExecuting, StatePaused} {
		assert.False(t, s.Terminal(), s.String())
	}
	for _, s := range []State{StateFinished, StateCancelled, StateFailed} {
		assert.True(t, s.Terminal(), s.String())
	}
	assert.Equal(t, "unknown", State(42).String())
}
