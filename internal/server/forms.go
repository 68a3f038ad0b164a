package server

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

const formDateLayout = "2006-01-02"

// formLookups carries the type tables the formset validation needs: the
// preferred-type rules are enforced against each table's "pref" row.
type formLookups struct {
	EmailTypes   domain.TypeLabels
	PhoneTypes   domain.TypeLabels
	AddressTypes domain.TypeLabels
}

func preferredID(types domain.TypeLabels) uuid.UUID {
	for _, t := range types {
		if t.Name == domain.TypeNamePreferred {
			return t.ID
		}
	}
	return uuid.Nil
}

// parseContactForm decodes the contact form plus its inline email, phone,
// tenancy, and wallet formsets. Validation failures come back as FieldErrors
// so the form can re-render with messages next to each field.
func parseContactForm(c formReader, now time.Time, lookups formLookups) (domain.ContactInput, domain.FieldErrors) {
	form, err := c.FormParams()
	if err != nil {
		errs := make(domain.FieldErrors)
		errs.Add("form", "Could not read the submitted form.")
		return domain.ContactInput{}, errs
	}

	errs := make(domain.FieldErrors)
	input := domain.ContactInput{
		FirstName:   strings.TrimSpace(form.Get("first_name")),
		MiddleNames: strings.TrimSpace(form.Get("middle_names")),
		LastName:    strings.TrimSpace(form.Get("last_name")),
		Nickname:    strings.TrimSpace(form.Get("nickname")),
		Gender:      form.Get("gender"),
		IsBusiness:  formBool(form, "is_business"),
		Website:     strings.TrimSpace(form.Get("website")),
		Notes:       form.Get("notes"),
	}

	input.DOB = formDate(form, "dob", errs)
	input.DOD = formDate(form, "dod", errs)
	input.Anniversary = formDate(form, "anniversary", errs)
	if raw := form.Get("year_met"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			errs.Add("year_met", "Select a valid choice.")
		} else {
			input.YearMet = year
		}
	}
	input.ProfessionID = formUUIDPtr(form, "profession", errs)
	input.NationalityIDs = formUUIDs(form, "nationalities", errs)
	input.TagIDs = formUUIDs(form, "tags", errs)
	input.FamilyMemberIDs = formUUIDs(form, "family_members", errs)

	contact := domain.Contact{
		FirstName:   input.FirstName,
		Gender:      input.Gender,
		DOB:         input.DOB,
		DOD:         input.DOD,
		Anniversary: input.Anniversary,
		YearMet:     input.YearMet,
	}
	for field, messages := range contact.Validate(now) {
		for _, msg := range messages {
			errs.Add(field, msg)
		}
	}

	input.Emails = parseEmailRows(form, errs)
	input.Phones = parsePhoneRows(form, "phone_numbers", errs)
	input.Tenancies = parseTenancyRows(form, errs)
	input.Wallets = parseWalletRows(form, errs)

	validateFormsetPreferences(input, lookups, errs)

	return input, errs
}

// parseAddressForm decodes the address form plus its inline phone formset.
// Addresses created here must be attached to at least one contact.
func parseAddressForm(c formReader, phoneTypes domain.TypeLabels, errs domain.FieldErrors) domain.AddressInput {
	form, err := c.FormParams()
	if err != nil {
		errs.Add("form", "Could not read the submitted form.")
		return domain.AddressInput{}
	}

	input := domain.AddressInput{
		Line1:         strings.TrimSpace(form.Get("line_1")),
		Line2:         strings.TrimSpace(form.Get("line_2")),
		Neighbourhood: strings.TrimSpace(form.Get("neighbourhood")),
		City:          strings.TrimSpace(form.Get("city")),
		State:         strings.TrimSpace(form.Get("state")),
		Postcode:      strings.TrimSpace(form.Get("postcode")),
		Notes:         form.Get("notes"),
	}
	input.CountryID = formUUIDPtr(form, "country", errs)
	input.ContactIDs = formUUIDs(form, "contacts", errs)

	address := domain.Address{City: input.City}
	for field, messages := range address.Validate() {
		for _, msg := range messages {
			errs.Add(field, msg)
		}
	}
	if len(input.ContactIDs) == 0 {
		errs.Add("contacts", "Select at least one contact for this address.")
	}

	input.Phones = parsePhoneRows(form, "phone_numbers", errs)

	phoneRows := make([]domain.ContactableRow, len(input.Phones))
	for i, row := range input.Phones {
		phoneRows[i] = domain.ContactableRow{Archived: row.Archived, Delete: row.Delete, TypeIDs: row.TypeIDs}
	}
	for field, messages := range domain.ValidatePreferredTypes("phone_numbers", preferredID(phoneTypes), phoneRows) {
		for _, msg := range messages {
			errs.Add(field, msg)
		}
	}

	return input
}

// Formset rows arrive Django-style: "emails-0-address", "emails-0-types",
// "emails-0-delete". A row with no ID and no content is skipped.

func parseEmailRows(form url.Values, errs domain.FieldErrors) []domain.EmailInput {
	var rows []domain.EmailInput
	for _, i := range formsetIndices(form, "emails") {
		key := func(field string) string { return fmt.Sprintf("emails-%d-%s", i, field) }

		row := domain.EmailInput{
			ID:       formRowID(form, key("id"), "emails", errs),
			Address:  strings.TrimSpace(form.Get(key("address"))),
			Archived: formBool(form, key("archived")),
			Delete:   formBool(form, key("delete")),
			TypeIDs:  formUUIDs(form, key("types"), errs),
		}
		if row.ID == nil && row.Address == "" {
			continue
		}
		if row.Address == "" {
			errs.Add("emails", "Email address is required.")
		} else if !strings.Contains(row.Address, "@") {
			errs.Add("emails", fmt.Sprintf("%q is not a valid email address.", row.Address))
		}
		if len(row.TypeIDs) == 0 && !row.Delete {
			errs.Add("emails", "Pick at least one type per email.")
		}
		rows = append(rows, row)
	}
	return rows
}

func parsePhoneRows(form url.Values, prefix string, errs domain.FieldErrors) []domain.PhoneInput {
	var rows []domain.PhoneInput
	for _, i := range formsetIndices(form, prefix) {
		key := func(field string) string { return fmt.Sprintf("%s-%d-%s", prefix, i, field) }

		row := domain.PhoneInput{
			ID:       formRowID(form, key("id"), prefix, errs),
			Number:   strings.TrimSpace(form.Get(key("number"))),
			Archived: formBool(form, key("archived")),
			Delete:   formBool(form, key("delete")),
			TypeIDs:  formUUIDs(form, key("types"), errs),
		}
		if row.ID == nil && row.Number == "" {
			continue
		}
		if row.Number != "" {
			normalised, err := domain.ValidatePhoneNumber(row.Number)
			if err != nil {
				errs.Add(prefix, fmt.Sprintf("%q is not a valid phone number.", row.Number))
			} else {
				row.Number = normalised
			}
		} else {
			errs.Add(prefix, "Phone number is required.")
		}
		if len(row.TypeIDs) == 0 && !row.Delete {
			errs.Add(prefix, "Pick at least one type per phone number.")
		}
		rows = append(rows, row)
	}
	return rows
}

func parseTenancyRows(form url.Values, errs domain.FieldErrors) []domain.TenancyInput {
	var rows []domain.TenancyInput
	for _, i := range formsetIndices(form, "tenancies") {
		key := func(field string) string { return fmt.Sprintf("tenancies-%d-%s", i, field) }

		row := domain.TenancyInput{
			ID:       formRowID(form, key("id"), "tenancies", errs),
			Archived: formBool(form, key("archived")),
			Delete:   formBool(form, key("delete")),
			TypeIDs:  formUUIDs(form, key("types"), errs),
		}
		rawAddress := form.Get(key("address"))
		if row.ID == nil && rawAddress == "" {
			continue
		}
		if rawAddress == "" {
			errs.Add("tenancies", "Pick an address for each tenancy.")
		} else {
			addressID, err := uuid.Parse(rawAddress)
			if err != nil {
				errs.Add("tenancies", "Pick a valid address.")
			} else {
				row.AddressID = addressID
			}
		}
		if len(row.TypeIDs) == 0 && !row.Delete {
			errs.Add("tenancies", "Pick at least one type per tenancy.")
		}
		rows = append(rows, row)
	}
	return rows
}

func parseWalletRows(form url.Values, errs domain.FieldErrors) []domain.WalletInput {
	var rows []domain.WalletInput
	for _, i := range formsetIndices(form, "wallet_addresses") {
		key := func(field string) string { return fmt.Sprintf("wallet_addresses-%d-%s", i, field) }

		row := domain.WalletInput{
			ID:           formRowID(form, key("id"), "wallet_addresses", errs),
			Transmission: form.Get(key("transmission")),
			Address:      strings.TrimSpace(form.Get(key("address"))),
			Archived:     formBool(form, key("archived")),
			Delete:       formBool(form, key("delete")),
		}
		rawNetwork := form.Get(key("network"))
		if row.ID == nil && row.Address == "" && rawNetwork == "" {
			continue
		}
		if rawNetwork == "" {
			errs.Add("wallet_addresses", "Pick a network for each wallet address.")
		} else {
			networkID, err := uuid.Parse(rawNetwork)
			if err != nil {
				errs.Add("wallet_addresses", "Pick a valid network.")
			} else {
				row.NetworkID = networkID
			}
		}
		if row.Address == "" {
			errs.Add("wallet_addresses", "Wallet address is required.")
		} else if len(row.Address) > 96 {
			errs.Add("wallet_addresses", "Wallet address may be at most 96 characters.")
		}
		if !domain.ValidTransmission(row.Transmission) {
			errs.Add("wallet_addresses", "Pick a valid transmission direction.")
		}
		rows = append(rows, row)
	}
	return rows
}

// validateFormsetPreferences applies the preferred-type rules to the email,
// phone, and tenancy formsets against their respective type tables.
func validateFormsetPreferences(input domain.ContactInput, lookups formLookups, errs domain.FieldErrors) {
	emailRows := make([]domain.ContactableRow, len(input.Emails))
	for i, row := range input.Emails {
		emailRows[i] = domain.ContactableRow{Archived: row.Archived, Delete: row.Delete, TypeIDs: row.TypeIDs}
	}
	phoneRows := make([]domain.ContactableRow, len(input.Phones))
	for i, row := range input.Phones {
		phoneRows[i] = domain.ContactableRow{Archived: row.Archived, Delete: row.Delete, TypeIDs: row.TypeIDs}
	}
	tenancyRows := make([]domain.ContactableRow, len(input.Tenancies))
	for i, row := range input.Tenancies {
		tenancyRows[i] = domain.ContactableRow{Archived: row.Archived, Delete: row.Delete, TypeIDs: row.TypeIDs}
	}

	merge := func(more domain.FieldErrors) {
		for field, messages := range more {
			for _, msg := range messages {
				errs.Add(field, msg)
			}
		}
	}
	merge(domain.ValidatePreferredTypes("emails", preferredID(lookups.EmailTypes), emailRows))
	merge(domain.ValidatePreferredTypes("phone_numbers", preferredID(lookups.PhoneTypes), phoneRows))
	merge(domain.ValidatePreferredTypes("tenancies", preferredID(lookups.AddressTypes), tenancyRows))
}

// formReader is the slice of echo.Context the parsers need.
type formReader interface {
	FormParams() (url.Values, error)
}

// formsetIndices finds the distinct row indices submitted under a prefix,
// in ascending order.
func formsetIndices(form url.Values, prefix string) []int {
	seen := make(map[int]bool)
	lead := prefix + "-"
	for key := range form {
		rest, ok := strings.CutPrefix(key, lead)
		if !ok {
			continue
		}
		numStr, _, ok := strings.Cut(rest, "-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(numStr); err == nil {
			seen[n] = true
		}
	}
	indices := make([]int, 0, len(seen))
	for n := range seen {
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices
}

func formBool(form url.Values, key string) bool {
	switch form.Get(key) {
	case "on", "true", "1":
		return true
	}
	return false
}

func formDate(form url.Values, key string, errs domain.FieldErrors) *time.Time {
	raw := form.Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(formDateLayout, raw)
	if err != nil {
		errs.Add(key, "Enter a valid date.")
		return nil
	}
	return &t
}

func formUUIDPtr(form url.Values, key string, errs domain.FieldErrors) *uuid.UUID {
	raw := form.Get(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		errs.Add(key, "Select a valid choice.")
		return nil
	}
	return &id
}

// formRowID parses a formset row's hidden id field; errors land under the
// formset's field name rather than the hidden input's.
func formRowID(form url.Values, key, field string, errs domain.FieldErrors) *uuid.UUID {
	raw := form.Get(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		errs.Add(field, "Invalid row identifier.")
		return nil
	}
	return &id
}

func formUUIDs(form url.Values, key string, errs domain.FieldErrors) []uuid.UUID {
	values := form[key]
	ids := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			errs.Add(key, "Select a valid choice.")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
