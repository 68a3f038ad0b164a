package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
	"github.com/notteddydev/reimagined-lamp/internal/metrics"
)

func (s *Server) handleTagNew(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	contacts, err := s.repos.Contacts.List(ctx, userID, nil)
	if err != nil {
		return err
	}

	// ?contact_id= pre-selects a contact, but only one the user owns.
	var preselected uuid.UUID
	if raw := c.QueryParam("contact_id"); raw != "" {
		if contactID, err := uuid.Parse(raw); err == nil {
			owned, err := s.repos.Contacts.Exists(ctx, userID, contactID)
			if err != nil {
				return err
			}
			if owned {
				preselected = contactID
			}
		}
	}

	return s.renderTemplate(c, "tag_form.html", map[string]any{
		"Contacts":    contacts,
		"Preselected": preselected,
	})
}

func (s *Server) handleTagCreate(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	name := strings.TrimSpace(c.FormValue("name"))
	errs := make(domain.FieldErrors)
	if name == "" {
		errs.Add("name", "Tag name is required.")
	}
	contactIDs := formUUIDsFromContext(c, "contacts", errs)

	if errs.HasErrors() {
		return s.rerenderTagForm(c, userID, name, errs)
	}

	tag, err := s.repos.Tags.Create(ctx, userID, name, contactIDs)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateTag):
			errs.Add("name", "You already have a tag with that name.")
			return s.rerenderTagForm(c, userID, name, errs)
		default:
			return mapDomainError(err)
		}
	}

	s.invalidateVCards(ctx, contactIDs...)
	metrics.ContactMutationsTotal.WithLabelValues("tag_create").Inc()
	slog.Info("Tag created", "tag_id", tag.ID, "name", tag.Name)

	// Land on the contact list filtered by the fresh tag.
	return c.Redirect(302, "/contacts?filter_field=tag&filter_value="+url.QueryEscape(tag.Name))
}

func (s *Server) handleTagDelete(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	tagID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	// Tagged contacts need their cached vCards dropped once the tag goes.
	tagged, err := s.repos.Contacts.List(ctx, userID, nil)
	if err != nil {
		return err
	}
	var affected []uuid.UUID
	for _, contact := range tagged {
		for _, t := range contact.Tags {
			if t.ID == tagID {
				affected = append(affected, contact.ID)
				break
			}
		}
	}

	if err := s.repos.Tags.Delete(ctx, userID, tagID); err != nil {
		return mapDomainError(err)
	}

	s.invalidateVCards(ctx, affected...)
	metrics.ContactMutationsTotal.WithLabelValues("tag_delete").Inc()
	return c.Redirect(302, "/contacts")
}

func (s *Server) rerenderTagForm(c echo.Context, userID uuid.UUID, name string, errs domain.FieldErrors) error {
	contacts, err := s.repos.Contacts.List(c.Request().Context(), userID, nil)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, "tag_form.html", map[string]any{
		"Contacts": contacts,
		"Name":     name,
		"Errors":   errs,
	})
}

// formUUIDsFromContext reads a multi-valued select straight off the request.
func formUUIDsFromContext(c echo.Context, key string, errs domain.FieldErrors) []uuid.UUID {
	form, err := c.FormParams()
	if err != nil {
		errs.Add(key, "Could not read the submitted form.")
		return nil
	}
	return formUUIDs(form, key, errs)
}
