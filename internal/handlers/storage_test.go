package handlers

import (
	"net/http"
	"testing"

	"github.com/anonto42/bizgram/backend/pkg/firebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSignedUpload(t *testing.T) {
	h := NewStorageHandler(newFakeStore(), zap.NewNop())

	rec, err := call(t, h.SignedUpload, http.MethodPost, "/storage/signed-upload",
		`{"path":"/posts/7/clip.mp4","content_type":"video/mp4"}`, 7)
	require.NoError(t, err)
	var out firebase.SignedUpload
	decode(t, rec, &out)
	assert.Equal(t, "PUT", out.Method)
	assert.Equal(t, "https://storage.example.com/upload/posts/7/clip.mp4", out.URL)
	assert.Contains(t, out.PublicURL, "bizgram-test")
}

func TestSignedUploadRejects(t *testing.T) {
	h := NewStorageHandler(newFakeStore(), zap.NewNop())
	tests := []struct {
		name string
		body string
		want int
	}{
		{"other bucket", `{"bucket":"someone-else","path":"a.jpg"}`, http.StatusBadRequest},
		{"traversal", `{"path":"posts/../../secrets"}`, http.StatusBadRequest},
		{"missing path", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, h.SignedUpload, http.MethodPost, "/storage/signed-upload", tt.body, 7)
			assert.Equal(t, tt.want, statusOf(t, err))
		})
	}

	_, err := call(t, h.SignedUpload, http.MethodPost, "/storage/signed-upload", `{"path":"a.jpg"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestSignedUploadWithoutStorage(t *testing.T) {
	h := NewStorageHandler(nil, zap.NewNop())
	_, err := call(t, h.SignedUpload, http.MethodPost, "/storage/signed-upload", `{"path":"a.jpg"}`, 7)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
}
