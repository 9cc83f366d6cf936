package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestProcessAvatarScalesDown(t *testing.T) {
	a, err := ProcessAvatar(pngOf(t, 1024, 768))
	require.NoError(t, err)
	assert.Equal(t, MaxAvatarWidth, a.Width)
	assert.Equal(t, 384, a.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
}

func TestProcessAvatarKeepsSmallImages(t *testing.T) {
	a, err := ProcessAvatar(pngOf(t, 200, 100))
	require.NoError(t, err)
	assert.Equal(t, 200, a.Width)
	assert.Equal(t, 100, a.Height)
}

func TestProcessAvatarRejectsGarbage(t *testing.T) {
	_, err := ProcessAvatar(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestAvatarObject(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^avatars/42/[0-9a-f-]{36}\.jpg$`), AvatarObject(42))
}
