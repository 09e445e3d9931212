package imagedecoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// DecodePNG turns a raw PNG payload into a displayable image. Unlike
// platform UI toolkits, Go image decoding carries no thread affinity, so it
// is safe to call concurrently.
func DecodePNG(payload []byte) (image.Image, error) {
	decoded, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode flag payload: %w", err)
	}
	return decoded, nil
}
