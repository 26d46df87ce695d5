// Package pickup renders the QR code a student shows at the counter.
package pickup

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate(reservationID, userID int32) ([]byte, error)
}

// DefaultQRGenerator encodes a pickup URL as a 256px PNG.
type DefaultQRGenerator struct {
	BaseURL string
}

// Payload is the text stored in the code.
func (g DefaultQRGenerator) Payload(reservationID, userID int32) string {
	return fmt.Sprintf("%s/pickup?reservation_id=%d&user_id=%d", g.BaseURL, reservationID, userID)
}

func (g DefaultQRGenerator) Generate(reservationID, userID int32) ([]byte, error) {
	return qrcode.Encode(g.Payload(reservationID, userID), qrcode.Medium, 256)
}
