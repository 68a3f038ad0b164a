package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GenderMale   = "m"
	GenderFemale = "f"
)

// EarliestYearMet bounds the year_met choices rendered by the contact form.
const EarliestYearMet = 1900

type Contact struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	FirstName   string
	MiddleNames string
	LastName    string
	Nickname    string
	Gender      string
	DOB         *time.Time
	DOD         *time.Time
	Anniversary *time.Time
	YearMet     int
	IsBusiness  bool
	Profession  *Profession
	Website     string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Loaded aggregates.
	Emails          []Email
	PhoneNumbers    []PhoneNumber
	Tenancies       []Tenancy
	WalletAddresses []WalletAddress
	Tags            []Tag
	Nationalities   []Nation
	FamilyMembers   []ContactRef
}

// ContactRef is a lightweight reference to another contact, used for the
// symmetrical family-member relation without loading full aggregates.
type ContactRef struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
}

func (r ContactRef) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// FullName concatenates first, middle, and last names, skipping empty parts.
func (c *Contact) FullName() string {
	full := c.FirstName
	if c.MiddleNames != "" {
		full += " " + c.MiddleNames
	}
	if c.LastName != "" {
		full += " " + c.LastName
	}
	return full
}

func (c *Contact) String() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// wholeYearsBetween counts completed years from a to b.
func wholeYearsBetween(a, b time.Time) int {
	years := b.Year() - a.Year()
	if b.Month() < a.Month() || (b.Month() == a.Month() && b.Day() < a.Day()) {
		years--
	}
	return years
}

// Age returns completed years since DOB, or nil without one.
func (c *Contact) Age(now time.Time) *int {
	if c.DOB == nil {
		return nil
	}
	years := wholeYearsBetween(*c.DOB, now)
	return &years
}

// AgePassed returns the age at death, or nil unless both dates are set.
func (c *Contact) AgePassed() *int {
	if c.DOB == nil || c.DOD == nil {
		return nil
	}
	years := wholeYearsBetween(*c.DOB, *c.DOD)
	return &years
}

// YearsMarried returns completed years since the anniversary, or nil.
func (c *Contact) YearsMarried(now time.Time) *int {
	if c.Anniversary == nil {
		return nil
	}
	years := wholeYearsBetween(*c.Anniversary, now)
	return &years
}

// KnownForYears gives the two possible year counts since YearMet, separated
// by a slash ("4/5"), since the exact meeting date is unknown.
func (c *Contact) KnownForYears(now time.Time) string {
	higher := now.Year() - c.YearMet
	return fmt.Sprintf("%d/%d", higher-1, higher)
}

// UnarchivedEmails filters the loaded emails to those still active.
func (c *Contact) UnarchivedEmails() []Email {
	out := make([]Email, 0, len(c.Emails))
	for _, e := range c.Emails {
		if !e.Archived {
			out = append(out, e)
		}
	}
	return out
}

func (c *Contact) UnarchivedPhoneNumbers() []PhoneNumber {
	out := make([]PhoneNumber, 0, len(c.PhoneNumbers))
	for _, p := range c.PhoneNumbers {
		if !p.Archived {
			out = append(out, p)
		}
	}
	return out
}

func (c *Contact) UnarchivedTenancies() []Tenancy {
	out := make([]Tenancy, 0, len(c.Tenancies))
	for _, t := range c.Tenancies {
		if !t.Archived {
			out = append(out, t)
		}
	}
	return out
}

// PreferredEmail returns the email carrying the preferred type, if any.
func (c *Contact) PreferredEmail() *Email {
	for i := range c.Emails {
		if !c.Emails[i].Archived && c.Emails[i].Types.HasPreferred() {
			return &c.Emails[i]
		}
	}
	return nil
}

func (c *Contact) PreferredPhoneNumber() *PhoneNumber {
	for i := range c.PhoneNumbers {
		if !c.PhoneNumbers[i].Archived && c.PhoneNumbers[i].Types.HasPreferred() {
			return &c.PhoneNumbers[i]
		}
	}
	return nil
}

// TagNames lists tag names in load order, for vCard CATEGORIES and templates.
func (c *Contact) TagNames() []string {
	names := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Validate checks date cohesion and required fields, collecting every
// violation per field rather than stopping at the first.
func (c *Contact) Validate(now time.Time) FieldErrors {
	errs := make(FieldErrors)

	if strings.TrimSpace(c.FirstName) == "" {
		errs.Add("first_name", "First name is required.")
	}
	if c.Gender != "" && c.Gender != GenderMale && c.Gender != GenderFemale {
		errs.Add("gender", "Select a valid gender.")
	}

	today := now.Truncate(24 * time.Hour)
	if c.DOB != nil {
		if c.Anniversary != nil && !c.Anniversary.After(*c.DOB) {
			errs.Add("anniversary", "Anniversary must be greater than the date of birth.")
		}
		if c.DOB.After(today) {
			errs.Add("dob", "Date of birth may not be set to a future date.")
		}
		if c.YearMet != 0 && c.DOB.Year() > c.YearMet {
			errs.Add("year_met", "Year met may not be before the date of birth.")
		}
	}
	if c.DOD != nil {
		if c.Anniversary != nil && c.Anniversary.After(*c.DOD) {
			errs.Add("anniversary", "Anniversary must be sooner than the date of passing.")
		}
		if c.DOB != nil && c.DOB.After(*c.DOD) {
			errs.Add("dob", "Date of birth may not be after date of passing.")
		}
		if c.DOD.After(today) {
			errs.Add("dod", "Date of passing may not be set to a future date.")
		}
		if c.YearMet != 0 && c.DOD.Year() < c.YearMet {
			errs.Add("year_met", "Year met may not be after date of passing.")
		}
	}

	if c.YearMet == 0 {
		errs.Add("year_met", "Year met is required.")
	} else if c.YearMet < EarliestYearMet || c.YearMet > now.Year() {
		errs.Add("year_met", fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", c.YearMet))
	}

	return errs
}

// ContactFilter narrows a contact list by a single whitelisted field.
type ContactFilter struct {
	Field string
	Value string
}

// ContactFilterFields lists the fields the contact list accepts as filters,
// in display order. Anything outside this list is ignored.
var ContactFilterFields = []string{
	"city",
	"country",
	"email",
	"first_name",
	"last_name",
	"nationality",
	"neighbourhood",
	"nickname",
	"phone_number",
	"profession",
	"state",
	"tag",
	"wallet_address",
	"year_met",
}

// Child row inputs mirror the inline formsets on the contact form: an
// existing ID means update, Delete marks removal, a zero row is skipped.

type EmailInput struct {
	ID       *uuid.UUID
	Address  string
	Archived bool
	TypeIDs  []uuid.UUID
	Delete   bool
}

type PhoneInput struct {
	ID       *uuid.UUID
	Number   string
	Archived bool
	TypeIDs  []uuid.UUID
	Delete   bool
}

type TenancyInput struct {
	ID        *uuid.UUID
	AddressID uuid.UUID
	Archived  bool
	TypeIDs   []uuid.UUID
	Delete    bool
}

type WalletInput struct {
	ID           *uuid.UUID
	NetworkID    uuid.UUID
	Transmission string
	Address      string
	Archived     bool
	Delete       bool
}

// ContactInput carries a full create/update submission for a contact.
type ContactInput struct {
	FirstName    string
	MiddleNames  string
	LastName     string
	Nickname     string
	Gender       string
	DOB          *time.Time
	DOD          *time.Time
	Anniversary  *time.Time
	YearMet      int
	IsBusiness   bool
	ProfessionID *uuid.UUID
	Website      string
	Notes        string

	NationalityIDs  []uuid.UUID
	TagIDs          []uuid.UUID
	FamilyMemberIDs []uuid.UUID

	Emails    []EmailInput
	Phones    []PhoneInput
	Tenancies []TenancyInput
	Wallets   []WalletInput
}

type ContactRepository interface {
	// List returns the user's contacts with aggregates loaded, optionally
	// narrowed by filter, ordered by first name.
	List(ctx context.Context, userID uuid.UUID, filter *ContactFilter) ([]*Contact, error)
	GetByID(ctx context.Context, userID, contactID uuid.UUID) (*Contact, error)
	Create(ctx context.Context, userID uuid.UUID, input ContactInput) (*Contact, error)
	Update(ctx context.Context, userID, contactID uuid.UUID, input ContactInput) (*Contact, error)
	Delete(ctx context.Context, userID, contactID uuid.UUID) error
	// Exists reports whether the contact belongs to the user, for cheap
	// ownership checks before rendering forms.
	Exists(ctx context.Context, userID, contactID uuid.UUID) (bool, error)
}
