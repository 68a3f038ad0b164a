package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// PhoneNumber belongs to exactly one of a contact or an address. The number
// is stored in E.164 form and parsed on demand for display.
type PhoneNumber struct {
	ID        uuid.UUID
	ContactID *uuid.UUID
	AddressID *uuid.UUID
	Number    string
	Archived  bool
	Types     TypeLabels
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *PhoneNumber) parsed() (*phonenumbers.PhoneNumber, error) {
	return phonenumbers.Parse(p.Number, "")
}

// Formatted returns the number in international format for easier reading,
// falling back to the stored value when it does not parse.
func (p *PhoneNumber) Formatted() string {
	num, err := p.parsed()
	if err != nil {
		return p.Number
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}

// CountryPrefix is the international dialling prefix, e.g. 1 for the USA.
func (p *PhoneNumber) CountryPrefix() int {
	num, err := p.parsed()
	if err != nil {
		return 0
	}
	return int(num.GetCountryCode())
}

// CountryCode is the two letter region the number belongs to, e.g. "GB".
func (p *PhoneNumber) CountryCode() string {
	return phonenumbers.GetRegionCodeForCountryCode(p.CountryPrefix())
}

func (p *PhoneNumber) NationalNumber() uint64 {
	num, err := p.parsed()
	if err != nil {
		return 0
	}
	return num.GetNationalNumber()
}

// ValidatePhoneNumber normalises a submitted number to E.164, reporting an
// error the form can show next to the field.
func ValidatePhoneNumber(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", err
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
