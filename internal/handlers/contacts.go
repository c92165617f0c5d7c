package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/okhomin/contacts-service/internal/logging"
	"github.com/okhomin/contacts-service/internal/middleware"
	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/mykafka"
	"github.com/okhomin/contacts-service/internal/repository"
	"github.com/okhomin/contacts-service/internal/service/search"
)

const birthdayLayout = "2006-01-02"

type ContactHandler struct {
	Contacts *repository.ContactRepo
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

type contactRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Birthday  string  `json:"birthday"`
	Extra     *string `json:"extra"`
}

func (r *contactRequest) validate() (time.Time, error) {
	if r.FirstName == "" || r.LastName == "" || r.Phone == "" {
		return time.Time{}, errors.New("first_name, last_name and phone are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return time.Time{}, errors.New("invalid email")
	}
	birthday, err := time.Parse(birthdayLayout, r.Birthday)
	if err != nil {
		return time.Time{}, errors.New("birthday must be YYYY-MM-DD")
	}
	return birthday, nil
}

func (h *ContactHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact_create")

	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	birthday, err := req.validate()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user := middleware.CurrentUser(c)
	contact := &models.Contact{
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Birthday:  birthday,
		Extra:     req.Extra,
	}
	if err := h.Contacts.Create(ctx, contact); err != nil {
		l.Error("contact_create_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create contact")
	}

	h.indexContact(c, contact)
	h.publishContactEvent(c, "contact_created", contact)

	return c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	if q := c.QueryParam("q"); q != "" && h.ES != nil {
		_, ids, err := search.Search(ctx, h.ES, h.Index, user.ID, q, 0, 50)
		if err != nil {
			logging.FromContext(ctx).Error("contact_search_failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
		}
		contacts, err := h.Contacts.ListByIDs(ctx, user.ID, ids)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot list contacts")
		}
		return c.JSON(http.StatusOK, contacts)
	}

	contacts, err := h.Contacts.List(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list contacts")
	}
	return c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid contact id")
	}

	contact, err := h.Contacts.GetByID(ctx, user.ID, uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Contact not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load contact")
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact_update")
	user := middleware.CurrentUser(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid contact id")
	}

	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	birthday, err := req.validate()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	contact := &models.Contact{
		ID:        uint(id),
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Birthday:  birthday,
		Extra:     req.Extra,
	}
	if err := h.Contacts.Update(ctx, contact); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Contact not found")
		}
		l.Error("contact_update_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update contact")
	}

	h.indexContact(c, contact)
	h.publishContactEvent(c, "contact_updated", contact)

	return c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact_delete")
	user := middleware.CurrentUser(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid contact id")
	}

	if err := h.Contacts.Delete(ctx, user.ID, uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Contact not found")
		}
		l.Error("contact_delete_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete contact")
	}

	if h.ES != nil {
		if err := search.DeleteContact(ctx, h.ES, h.Index, uint(id)); err != nil {
			l.Error("es_delete_failed", "error", err)
		}
	}
	h.publishContactEvent(c, "contact_deleted", &models.Contact{ID: uint(id), UserID: user.ID})

	return c.NoContent(http.StatusNoContent)
}

// Birthdays lists contacts whose birthday falls within the next N days.
// The window is computed here rather than in SQL so the query path is the
// same on postgres and the sqlite test database.
func (h *ContactHandler) Birthdays(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	days := 7
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "days must be 1-366")
		}
		days = n
	}

	contacts, err := h.Contacts.List(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list contacts")
	}

	now := time.Now().UTC()
	upcoming := make([]models.Contact, 0)
	for _, contact := range contacts {
		if birthdayWithin(contact.Birthday, now, days) {
			upcoming = append(upcoming, contact)
		}
	}
	return c.JSON(http.StatusOK, upcoming)
}

// birthdayWithin reports whether the month/day of birthday occurs in the
// next `days` days starting today, across a year boundary if needed.
func birthdayWithin(birthday, now time.Time, days int) bool {
	for d := 0; d < days; d++ {
		day := now.AddDate(0, 0, d)
		if birthday.Month() == day.Month() && birthday.Day() == day.Day() {
			return true
		}
	}
	return false
}

func (h *ContactHandler) indexContact(c echo.Context, contact *models.Contact) {
	if h.ES == nil {
		return
	}
	if err := search.IndexContact(c.Request().Context(), h.ES, h.Index, contact); err != nil {
		logging.FromContext(c.Request().Context()).Error("es_index_failed", "error", err)
	}
}

func (h *ContactHandler) publishContactEvent(c echo.Context, eventType string, contact *models.Contact) {
	event := map[string]interface{}{
		"type":       eventType,
		"contact_id": contact.ID,
		"user_id":    contact.UserID,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, mykafka.TopicContactEvents, fmt.Sprint(contact.UserID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}
