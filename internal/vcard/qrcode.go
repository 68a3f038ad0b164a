package vcard

import (
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

const qrImageSize = 256

// QRCode renders a contact's vCard as a PNG QR code. Low error correction
// keeps the module count down for large cards.
func QRCode(contact *domain.Contact) ([]byte, error) {
	card, err := Compose(contact)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(card), qrcode.Low, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
