// Package media normalizes uploaded images.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	MaxAvatarWidth = 512
	JPEGQuality    = 85
	MaxUploadSize  = 10 << 20
)

// Avatar is a processed image ready for storage.
type Avatar struct {
	Data   []byte
	Width  int
	Height int
}

// ProcessAvatar decodes png, jpeg or gif, scales it down to MaxAvatarWidth
// and re-encodes it as JPEG.
func ProcessAvatar(src io.Reader) (*Avatar, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > MaxAvatarWidth {
		newH := h * MaxAvatarWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, MaxAvatarWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = MaxAvatarWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &Avatar{Data: buf.Bytes(), Width: w, Height: h}, nil
}

// AvatarObject is the storage path of a new avatar for userID.
func AvatarObject(userID uint) string {
	return fmt.Sprintf("avatars/%d/%s.jpg", userID, uuid.NewString())
}
