package pickup

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_PNG(t *testing.T) {
	g := DefaultQRGenerator{BaseURL: "https://cantina.example"}

	data, err := g.Generate(12, 3)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestPayload(t *testing.T) {
	g := DefaultQRGenerator{BaseURL: "https://cantina.example"}
	assert.Equal(t, "https://cantina.example/pickup?reservation_id=12&user_id=3", g.Payload(12, 3))
}
