package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
	apperrors "github.com/notteddydev/reimagined-lamp/internal/errors"
	"github.com/notteddydev/reimagined-lamp/internal/metrics"
)

// contactFilterFromQuery builds a filter from the list query params. Unknown
// fields are dropped so they never reach SQL.
func contactFilterFromQuery(c echo.Context) *domain.ContactFilter {
	field := c.QueryParam("filter_field")
	value := c.QueryParam("filter_value")
	if field == "" || value == "" {
		return nil
	}
	for _, allowed := range domain.ContactFilterFields {
		if field == allowed {
			metrics.ContactListFilterTotal.WithLabelValues(field).Inc()
			return &domain.ContactFilter{Field: field, Value: value}
		}
	}
	slog.Debug("Ignoring unknown filter field", "field", field)
	return nil
}

func (s *Server) handleContactList(c echo.Context) error {
	userID := currentUserID(c)

	filter := contactFilterFromQuery(c)
	contacts, err := s.repos.Contacts.List(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}

	data := map[string]any{
		"Contacts":     contacts,
		"FilterFields": domain.ContactFilterFields,
		"FilterField":  "",
		"FilterValue":  "",
		"Now":          s.clock.Now(),
	}
	if filter != nil {
		data["FilterField"] = filter.Field
		data["FilterValue"] = filter.Value
	}
	return s.renderTemplate(c, "contact_list.html", data)
}

func (s *Server) handleContactNew(c echo.Context) error {
	userID := currentUserID(c)

	form, err := s.loadContactFormContext(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "contact_form.html", map[string]any{
		"Form":  form,
		"Input": domain.ContactInput{},
	})
}

func (s *Server) handleContactCreate(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	form, err := s.loadContactFormContext(ctx, userID)
	if err != nil {
		return err
	}

	input, errs := parseContactForm(c, s.clock.Now(), form.Lookups)
	if errs.HasErrors() {
		return s.renderTemplate(c, "contact_form.html", map[string]any{
			"Form":   form,
			"Input":  input,
			"Errors": errs,
		})
	}

	contact, err := s.repos.Contacts.Create(ctx, userID, input)
	if err != nil {
		if rendered, rerr := s.renderContactConflict(c, form, input, err); rendered {
			return rerr
		}
		return mapDomainError(err)
	}

	metrics.ContactMutationsTotal.WithLabelValues("create").Inc()
	slog.Info("Contact created", "contact_id", contact.ID)
	return c.Redirect(302, "/contacts/"+contact.ID.String())
}

func (s *Server) handleContactDetail(c echo.Context) error {
	userID := currentUserID(c)

	contactID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	contact, err := s.repos.Contacts.GetByID(c.Request().Context(), userID, contactID)
	if err != nil {
		return mapDomainError(err)
	}

	return s.renderTemplate(c, "contact_detail.html", map[string]any{
		"Contact": contact,
		"Now":     s.clock.Now(),
	})
}

func (s *Server) handleContactEdit(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	contactID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	contact, err := s.repos.Contacts.GetByID(ctx, userID, contactID)
	if err != nil {
		return mapDomainError(err)
	}

	form, err := s.loadContactFormContext(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "contact_form.html", map[string]any{
		"Form":    form,
		"Contact": contact,
		"Input":   contactToInput(contact),
	})
}

func (s *Server) handleContactUpdate(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	contactID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	// Cheap ownership check before doing any form work.
	exists, err := s.repos.Contacts.Exists(ctx, userID, contactID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFoundError("Contact not found")
	}

	form, err := s.loadContactFormContext(ctx, userID)
	if err != nil {
		return err
	}

	input, errs := parseContactForm(c, s.clock.Now(), form.Lookups)
	if errs.HasErrors() {
		return s.renderTemplate(c, "contact_form.html", map[string]any{
			"Form":   form,
			"Input":  input,
			"Errors": errs,
		})
	}

	contact, err := s.repos.Contacts.Update(ctx, userID, contactID, input)
	if err != nil {
		if rendered, rerr := s.renderContactConflict(c, form, input, err); rendered {
			return rerr
		}
		return mapDomainError(err)
	}

	s.invalidateVCards(ctx, contactID)
	metrics.ContactMutationsTotal.WithLabelValues("update").Inc()
	return c.Redirect(302, "/contacts/"+contact.ID.String())
}

func (s *Server) handleContactDelete(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	contactID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.repos.Contacts.Delete(ctx, userID, contactID); err != nil {
		return mapDomainError(err)
	}

	s.invalidateVCards(ctx, contactID)
	metrics.ContactMutationsTotal.WithLabelValues("delete").Inc()
	slog.Info("Contact deleted", "contact_id", contactID)
	return c.Redirect(302, "/contacts")
}

// contactFormContext bundles everything the contact form renders as select
// options.
type contactFormContext struct {
	Lookups     formLookups
	Nations     []domain.Nation
	Professions []domain.Profession
	Networks    []domain.CryptoNetwork
	Tags        []domain.Tag
	Addresses   []*domain.Address
	Contacts    []*domain.Contact
	Years       []int
}

func (s *Server) loadContactFormContext(ctx context.Context, userID uuid.UUID) (*contactFormContext, error) {
	lookups, err := s.loadFormLookups(ctx)
	if err != nil {
		return nil, err
	}

	nations, err := s.repos.Lookups.Nations(ctx)
	if err != nil {
		return nil, err
	}
	professions, err := s.repos.Lookups.Professions(ctx)
	if err != nil {
		return nil, err
	}
	networks, err := s.repos.Lookups.CryptoNetworks(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.repos.Tags.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	addresses, err := s.repos.Addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.repos.Contacts.List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	return &contactFormContext{
		Lookups:     lookups,
		Nations:     nations,
		Professions: professions,
		Networks:    networks,
		Tags:        tags,
		Addresses:   addresses,
		Contacts:    contacts,
		Years:       domain.YearChoices(s.clock.Now()),
	}, nil
}

func (s *Server) loadFormLookups(ctx context.Context) (formLookups, error) {
	emailTypes, err := s.repos.Lookups.EmailTypes(ctx)
	if err != nil {
		return formLookups{}, err
	}
	phoneTypes, err := s.repos.Lookups.PhoneNumberTypes(ctx)
	if err != nil {
		return formLookups{}, err
	}
	addressTypes, err := s.repos.Lookups.AddressTypes(ctx)
	if err != nil {
		return formLookups{}, err
	}
	return formLookups{
		EmailTypes:   emailTypes,
		PhoneTypes:   phoneTypes,
		AddressTypes: addressTypes,
	}, nil
}

// renderContactConflict re-renders the form for repository errors the user
// can fix, instead of bouncing them to an error page.
func (s *Server) renderContactConflict(c echo.Context, form *contactFormContext, input domain.ContactInput, err error) (bool, error) {
	errs := make(domain.FieldErrors)
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		errs.Add("emails", "That email address is already in use.")
	case errors.Is(err, domain.ErrDuplicateTenancy):
		errs.Add("tenancies", "That contact is already linked to this address.")
	case errors.Is(err, domain.ErrAddressNotFound):
		errs.Add("tenancies", "Pick one of your own addresses.")
	default:
		return false, nil
	}
	return true, s.renderTemplate(c, "contact_form.html", map[string]any{
		"Form":   form,
		"Input":  input,
		"Errors": errs,
	})
}

// contactToInput seeds the edit form from a loaded contact.
func contactToInput(contact *domain.Contact) domain.ContactInput {
	input := domain.ContactInput{
		FirstName:   contact.FirstName,
		MiddleNames: contact.MiddleNames,
		LastName:    contact.LastName,
		Nickname:    contact.Nickname,
		Gender:      contact.Gender,
		DOB:         contact.DOB,
		DOD:         contact.DOD,
		Anniversary: contact.Anniversary,
		YearMet:     contact.YearMet,
		IsBusiness:  contact.IsBusiness,
		Website:     contact.Website,
		Notes:       contact.Notes,
	}
	if contact.Profession != nil {
		id := contact.Profession.ID
		input.ProfessionID = &id
	}
	for _, n := range contact.Nationalities {
		input.NationalityIDs = append(input.NationalityIDs, n.ID)
	}
	for _, t := range contact.Tags {
		input.TagIDs = append(input.TagIDs, t.ID)
	}
	for _, f := range contact.FamilyMembers {
		input.FamilyMemberIDs = append(input.FamilyMemberIDs, f.ID)
	}
	for _, e := range contact.Emails {
		id := e.ID
		input.Emails = append(input.Emails, domain.EmailInput{
			ID: &id, Address: e.Address, Archived: e.Archived, TypeIDs: e.Types.IDs(),
		})
	}
	for _, p := range contact.PhoneNumbers {
		id := p.ID
		input.Phones = append(input.Phones, domain.PhoneInput{
			ID: &id, Number: p.Number, Archived: p.Archived, TypeIDs: p.Types.IDs(),
		})
	}
	for _, t := range contact.Tenancies {
		id := t.ID
		input.Tenancies = append(input.Tenancies, domain.TenancyInput{
			ID: &id, AddressID: t.AddressID, Archived: t.Archived, TypeIDs: t.Types.IDs(),
		})
	}
	for _, w := range contact.WalletAddresses {
		id := w.ID
		input.Wallets = append(input.Wallets, domain.WalletInput{
			ID: &id, NetworkID: w.Network.ID, Transmission: w.Transmission,
			Address: w.Address, Archived: w.Archived,
		})
	}
	return input
}

// invalidateVCards drops the cached vCard renders for the given contacts.
func (s *Server) invalidateVCards(ctx context.Context, contactIDs ...uuid.UUID) {
	if s.vcards == nil || len(contactIDs) == 0 {
		return
	}
	if err := s.vcards.Invalidate(ctx, contactIDs...); err != nil {
		slog.Warn("Failed to invalidate vCard cache", "error", err)
	}
}

// pathUUID parses a :id path param, treating garbage as a 404 rather than a
// parse error.
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NotFoundError("Not found")
	}
	return id, nil
}

// mapDomainError converts repository sentinel errors into structured errors
// so the middleware renders the right status.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrContactNotFound):
		return apperrors.NotFoundError("Contact not found")
	case errors.Is(err, domain.ErrAddressNotFound):
		return apperrors.NotFoundError("Address not found")
	case errors.Is(err, domain.ErrTagNotFound):
		return apperrors.NotFoundError("Tag not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("User not found")
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apperrors.ConflictError("Email address already in use")
	case errors.Is(err, domain.ErrDuplicateTag):
		return apperrors.ConflictError("Tag already exists")
	case errors.Is(err, domain.ErrDuplicateTenancy):
		return apperrors.ConflictError("Contact already linked to that address")
	}
	return err
}
