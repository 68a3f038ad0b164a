package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TransmissionTheyReceive = "they_receive"
	TransmissionYouReceive  = "you_receive"
)

type WalletAddress struct {
	ID           uuid.UUID
	ContactID    uuid.UUID
	Network      CryptoNetwork
	Transmission string
	Address      string
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransmissionHR renders the transmission code for humans, e.g. "They receive".
func (w *WalletAddress) TransmissionHR() string {
	words := strings.Split(w.Transmission, "_")
	joined := strings.Join(words, " ")
	if joined == "" {
		return ""
	}
	return strings.ToUpper(joined[:1]) + joined[1:]
}

func (w *WalletAddress) String() string {
	return "(" + w.TransmissionHR() + ") " + w.Network.Symbol + ": " + w.Address
}

func ValidTransmission(t string) bool {
	return t == TransmissionTheyReceive || t == TransmissionYouReceive
}
