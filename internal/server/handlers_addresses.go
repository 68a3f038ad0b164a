package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
	"github.com/notteddydev/reimagined-lamp/internal/metrics"
)

func (s *Server) handleAddressList(c echo.Context) error {
	userID := currentUserID(c)

	addresses, err := s.repos.Addresses.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "address_list.html", map[string]any{
		"Addresses": addresses,
	})
}

func (s *Server) handleAddressNew(c echo.Context) error {
	userID := currentUserID(c)

	form, err := s.loadAddressFormContext(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "address_form.html", map[string]any{
		"Form":  form,
		"Input": domain.AddressInput{},
		"Next":  safeNext(c.QueryParam("next")),
	})
}

func (s *Server) handleAddressCreate(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	form, err := s.loadAddressFormContext(ctx, userID)
	if err != nil {
		return err
	}

	errs := make(domain.FieldErrors)
	input := parseAddressForm(c, form.PhoneTypes, errs)
	next := safeNext(c.FormValue("next"))
	if errs.HasErrors() {
		return s.renderTemplate(c, "address_form.html", map[string]any{
			"Form":   form,
			"Input":  input,
			"Errors": errs,
			"Next":   next,
		})
	}

	address, err := s.repos.Addresses.Create(ctx, userID, input)
	if err != nil {
		return mapDomainError(err)
	}

	s.invalidateVCards(ctx, input.ContactIDs...)
	metrics.ContactMutationsTotal.WithLabelValues("address_create").Inc()
	slog.Info("Address created", "address_id", address.ID)

	if next != "" {
		return c.Redirect(302, next)
	}
	return c.Redirect(302, "/addresses/"+address.ID.String())
}

func (s *Server) handleAddressDetail(c echo.Context) error {
	userID := currentUserID(c)

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	address, err := s.repos.Addresses.GetByID(c.Request().Context(), userID, addressID)
	if err != nil {
		return mapDomainError(err)
	}
	return s.renderTemplate(c, "address_detail.html", map[string]any{
		"Address": address,
	})
}

func (s *Server) handleAddressEdit(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	address, err := s.repos.Addresses.GetByID(ctx, userID, addressID)
	if err != nil {
		return mapDomainError(err)
	}

	form, err := s.loadAddressFormContext(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "address_form.html", map[string]any{
		"Form":    form,
		"Address": address,
		"Input":   addressToInput(address),
	})
}

func (s *Server) handleAddressUpdate(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	// Tenant contacts before the update; the submission may detach some.
	before, err := s.repos.Addresses.GetByID(ctx, userID, addressID)
	if err != nil {
		return mapDomainError(err)
	}

	form, err := s.loadAddressFormContext(ctx, userID)
	if err != nil {
		return err
	}

	errs := make(domain.FieldErrors)
	input := parseAddressForm(c, form.PhoneTypes, errs)
	if errs.HasErrors() {
		return s.renderTemplate(c, "address_form.html", map[string]any{
			"Form":    form,
			"Address": before,
			"Input":   input,
			"Errors":  errs,
		})
	}

	address, err := s.repos.Addresses.Update(ctx, userID, addressID, input)
	if err != nil {
		return mapDomainError(err)
	}

	s.invalidateVCards(ctx, append(tenantContactIDs(before), input.ContactIDs...)...)
	metrics.ContactMutationsTotal.WithLabelValues("address_update").Inc()
	return c.Redirect(302, "/addresses/"+address.ID.String())
}

func (s *Server) handleAddressDelete(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	address, err := s.repos.Addresses.GetByID(ctx, userID, addressID)
	if err != nil {
		return mapDomainError(err)
	}

	if err := s.repos.Addresses.Delete(ctx, userID, addressID); err != nil {
		return mapDomainError(err)
	}

	s.invalidateVCards(ctx, tenantContactIDs(address)...)
	metrics.ContactMutationsTotal.WithLabelValues("address_delete").Inc()
	slog.Info("Address deleted", "address_id", addressID)
	return c.Redirect(302, "/addresses")
}

type addressFormContext struct {
	Nations    []domain.Nation
	Contacts   []*domain.Contact
	PhoneTypes domain.TypeLabels
}

func (s *Server) loadAddressFormContext(ctx context.Context, userID uuid.UUID) (*addressFormContext, error) {
	nations, err := s.repos.Lookups.Nations(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.repos.Contacts.List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	phoneTypes, err := s.repos.Lookups.PhoneNumberTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &addressFormContext{
		Nations:    nations,
		Contacts:   contacts,
		PhoneTypes: phoneTypes,
	}, nil
}

func addressToInput(address *domain.Address) domain.AddressInput {
	input := domain.AddressInput{
		Line1:         address.Line1,
		Line2:         address.Line2,
		Neighbourhood: address.Neighbourhood,
		City:          address.City,
		State:         address.State,
		Postcode:      address.Postcode,
		Notes:         address.Notes,
	}
	if address.Country != nil {
		id := address.Country.ID
		input.CountryID = &id
	}
	input.ContactIDs = tenantContactIDs(address)
	for _, p := range address.PhoneNumbers {
		id := p.ID
		input.Phones = append(input.Phones, domain.PhoneInput{
			ID: &id, Number: p.Number, Archived: p.Archived, TypeIDs: p.Types.IDs(),
		})
	}
	return input
}

func tenantContactIDs(address *domain.Address) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(address.Tenancies))
	for _, t := range address.Tenancies {
		ids = append(ids, t.ContactID)
	}
	return ids
}

// safeNext only honours relative redirect targets, so ?next= cannot bounce a
// user off-site.
func safeNext(next string) string {
	if next == "" {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}
