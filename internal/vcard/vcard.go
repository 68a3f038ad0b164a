// Package vcard composes vCard 3.0 documents from contacts.
//
// Only unarchived child records make it into a card. Every address a contact
// lives at contributes an ADR line plus TEL lines for the address's own
// phone numbers (landlines).
package vcard

import (
	"bytes"
	"fmt"
	"strings"

	govcard "github.com/emersion/go-vcard"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
	"github.com/notteddydev/reimagined-lamp/internal/metrics"
)

const version = "3.0"

// Compose renders a single contact as a vCard 3.0 document.
func Compose(contact *domain.Contact) ([]byte, error) {
	timer := prometheus.NewTimer(metrics.VCardComposeDuration)
	defer timer.ObserveDuration()

	card := make(govcard.Card)
	card.SetValue(govcard.FieldVersion, version)
	card.SetValue(govcard.FieldFormattedName, contact.FullName())
	card.SetValue(govcard.FieldName, strings.Join([]string{
		contact.LastName, contact.FirstName, contact.MiddleNames, "", "",
	}, ";"))
	card.SetValue(govcard.FieldGender, strings.ToUpper(contact.Gender))
	card.SetValue(govcard.FieldKind, kind(contact))
	card.SetValue(govcard.FieldCategories, strings.Join(contact.TagNames(), ", "))
	card.SetValue(govcard.FieldNickname, contact.Nickname)
	card.SetValue(govcard.FieldNote, contact.Notes)
	card.SetValue(govcard.FieldTitle, professionName(contact))
	card.SetValue(govcard.FieldURL, contact.Website)

	if contact.Anniversary != nil {
		card.SetValue(govcard.FieldAnniversary, contact.Anniversary.Format("20060102"))
	}
	if contact.DOB != nil {
		card.SetValue(govcard.FieldBirthday, contact.DOB.Format("20060102"))
	}

	for _, tenancy := range contact.UnarchivedTenancies() {
		card.Add(govcard.FieldAddress, &govcard.Field{
			Value:  addressValue(tenancy.Address),
			Params: typeParams(tenancy.Types),
		})

		for _, phone := range unarchivedPhones(tenancy.Address.PhoneNumbers) {
			card.Add(govcard.FieldTelephone, telField(phone))
		}
	}

	for _, email := range contact.UnarchivedEmails() {
		types := append([]string{"INTERNET"}, email.Types.Names()...)
		card.Add(govcard.FieldEmail, &govcard.Field{
			Value:  email.Address,
			Params: govcard.Params{govcard.ParamType: types},
		})
	}

	for _, phone := range contact.UnarchivedPhoneNumbers() {
		card.Add(govcard.FieldTelephone, telField(phone))
	}

	var buf bytes.Buffer
	if err := govcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, fmt.Errorf("failed to encode vCard: %w", err)
	}
	return buf.Bytes(), nil
}

// ComposeAll renders a list of contacts as one multi-card .vcf document.
func ComposeAll(contacts []*domain.Contact) ([]byte, error) {
	var buf bytes.Buffer
	for _, contact := range contacts {
		card, err := Compose(contact)
		if err != nil {
			return nil, err
		}
		buf.Write(card)
	}
	return buf.Bytes(), nil
}

func kind(contact *domain.Contact) string {
	if contact.IsBusiness {
		return "organization"
	}
	return "individual"
}

func professionName(contact *domain.Contact) string {
	if contact.Profession == nil {
		return ""
	}
	return contact.Profession.Name
}

// addressValue mirrors the ADR structured value: street lines, then the city
// component with the neighbourhood folded in front of it.
func addressValue(addr *domain.Address) string {
	city := addr.City
	if addr.Neighbourhood != "" {
		city = addr.Neighbourhood + ", " + city
	}

	country := ""
	if addr.Country != nil {
		country = addr.Country.Verbose
	}

	return strings.Join([]string{addr.Line1, addr.Line2, city, addr.State, addr.Postcode, country}, ";")
}

func telField(phone domain.PhoneNumber) *govcard.Field {
	return &govcard.Field{
		Value:  phone.Number,
		Params: typeParams(phone.Types),
	}
}

func typeParams(types domain.TypeLabels) govcard.Params {
	if len(types) == 0 {
		return nil
	}
	return govcard.Params{govcard.ParamType: types.Names()}
}

func unarchivedPhones(phones []domain.PhoneNumber) []domain.PhoneNumber {
	var out []domain.PhoneNumber
	for _, p := range phones {
		if !p.Archived {
			out = append(out, p)
		}
	}
	return out
}
