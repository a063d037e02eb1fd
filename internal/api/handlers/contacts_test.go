package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/contact-keeper/internal/api/dto"
	"github.com/hugh/contact-keeper/internal/api/handlers"
	"github.com/hugh/contact-keeper/internal/api/middleware"
	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/database/models"
	"github.com/hugh/contact-keeper/internal/testutil"
	"github.com/hugh/contact-keeper/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupContactTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	handler := handlers.NewContactHandler(contacts.NewService(tc.DB), util.DiscardLogger())

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Post("/contacts", handler.Create)
		r.Get("/contacts", handler.List)
		r.Get("/contacts/{id}", handler.Get)
		r.Put("/contacts/{id}", handler.Update)
		r.Delete("/contacts/{id}", handler.Delete)
	})

	return r, tc
}

func TestContactHandler_Create(t *testing.T) {
	router, tc := setupContactTestRouter(t)
	defer tc.Cleanup()

	t.Run("creates contact", func(t *testing.T) {
		body := map[string]string{
			"name":     "  Anna  ",
			"email":    "anna@example.com",
			"phone":    "+49 30 1234",
			"timezone": "Europe/Berlin",
		}
		req := testutil.AuthenticatedRequest(t, "POST", "/contacts", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.ContactCreatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Contact added successfully", resp.Message)
		assert.Equal(t, "Anna", resp.Contact.Name)
		assert.Equal(t, tc.User.ID, resp.Contact.UserID)
		require.NotNil(t, resp.Contact.Phone)
		assert.Equal(t, "+49 30 1234", *resp.Contact.Phone)
		assert.Nil(t, resp.Contact.Address)
	})

	t.Run("duplicate email", func(t *testing.T) {
		testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Bob", "bob@example.com")

		req := testutil.AuthenticatedRequest(t, "POST", "/contacts", map[string]string{
			"name": "Robert", "email": "bob@example.com",
		}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusInternalServerError)
		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Email already exists", resp.Error)
	})

	t.Run("accepts free-form timezone", func(t *testing.T) {
		for i, tz := range []string{"IST", "GMT+5:30", "UTC+05:30"} {
			body := map[string]string{"name": "Tz " + tz, "email": fmt.Sprintf("tz%d@example.com", i), "timezone": tz}
			req := testutil.AuthenticatedRequest(t, "POST", "/contacts", body, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			testutil.AssertStatus(t, rr, http.StatusCreated)
			var resp dto.ContactCreatedResponse
			testutil.ParseJSONResponse(t, rr, &resp)
			require.NotNil(t, resp.Contact.Timezone)
			assert.Equal(t, tz, *resp.Contact.Timezone)
		}
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			body  map[string]string
			field string
		}{
			{name: "missing name", body: map[string]string{"email": "x@example.com"}, field: "name"},
			{name: "bad email", body: map[string]string{"name": "X", "email": "nope"}, field: "email"},
			{name: "long timezone", body: map[string]string{"name": "X", "email": "x@example.com", "timezone": strings.Repeat("z", 101)}, field: "timezone"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := testutil.AuthenticatedRequest(t, "POST", "/contacts", tt.body, tc.Token)
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, req)

				testutil.AssertStatus(t, rr, http.StatusBadRequest)
				var resp dto.ValidationErrorResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				require.NotEmpty(t, resp.Errors)
				assert.Equal(t, tt.field, resp.Errors[0].Field)
			})
		}
	})

	t.Run("requires token", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/contacts", map[string]string{"name": "X", "email": "x@example.com"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Unauthorized", resp.Error)
	})

	t.Run("rejects bad token", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/contacts", map[string]string{"name": "X", "email": "x@example.com"}, "garbage")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Invalid token", resp.Error)
	})
}

func TestContactHandler_List(t *testing.T) {
	router, tc := setupContactTestRouter(t)
	defer tc.Cleanup()

	testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Anna", "anna@example.com")
	testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Diana", "diana@example.com")
	testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Bob", "bob@work.org")
	deleted := testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Hannah", "hannah@example.com")
	require.NoError(t, tc.DB.Model(deleted).Update("is_deleted", true).Error)

	other, _ := tc.NewUser(t)
	testutil.CreateTestContact(t, tc.DB, other.ID, "Annabel", "annabel@example.com")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"Anna", "Diana", "Bob"}},
		{name: "name substring", query: "?name=an", want: []string{"Anna", "Diana"}},
		{name: "case insensitive", query: "?name=ANN", want: []string{"Anna"}},
		{name: "email filter", query: "?email=work", want: []string{"Bob"}},
		{name: "combined", query: "?name=a&email=diana", want: []string{"Diana"}},
		{name: "no match", query: "?name=zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "GET", "/contacts"+tt.query, nil, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			testutil.AssertStatus(t, rr, http.StatusOK)

			var resp []dto.ContactResponse
			testutil.ParseJSONResponse(t, rr, &resp)
			names := make([]string, 0, len(resp))
			for _, c := range resp {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestContactHandler_Get(t *testing.T) {
	router, tc := setupContactTestRouter(t)
	defer tc.Cleanup()

	contact := testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Anna", "anna@example.com")
	_, otherToken := tc.NewUser(t)

	t.Run("owner", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", fmt.Sprintf("/contacts/%d", contact.ID), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		var resp dto.ContactResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, contact.ID, resp.ID)
	})

	t.Run("other user", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", fmt.Sprintf("/contacts/%d", contact.ID), nil, otherToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("bad id", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-1"} {
			req := testutil.AuthenticatedRequest(t, "GET", "/contacts/"+id, nil, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			testutil.AssertStatus(t, rr, http.StatusBadRequest)
		}
	})
}

func TestContactHandler_Update(t *testing.T) {
	router, tc := setupContactTestRouter(t)
	defer tc.Cleanup()

	contact := testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Anna", "anna@example.com")
	testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Bob", "bob@example.com")
	_, otherToken := tc.NewUser(t)
	path := fmt.Sprintf("/contacts/%d", contact.ID)

	t.Run("overwrites fields", func(t *testing.T) {
		body := map[string]string{"name": "Anna Maria", "email": "anna.maria@example.com", "address": "Main St 1"}
		req := testutil.AuthenticatedRequest(t, "PUT", path, body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		var resp dto.SuccessResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Contact updated successfully", resp.Message)

		var stored models.Contact
		require.NoError(t, tc.DB.First(&stored, contact.ID).Error)
		assert.Equal(t, "Anna Maria", stored.Name)
		require.NotNil(t, stored.Address)
		assert.Equal(t, "Main St 1", *stored.Address)
	})

	t.Run("other user gets 404", func(t *testing.T) {
		body := map[string]string{"name": "Hijack", "email": "hijack@example.com"}
		req := testutil.AuthenticatedRequest(t, "PUT", path, body, otherToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)

		var stored models.Contact
		require.NoError(t, tc.DB.First(&stored, contact.ID).Error)
		assert.Equal(t, "Anna Maria", stored.Name)
	})

	t.Run("missing id", func(t *testing.T) {
		body := map[string]string{"name": "X", "email": "x@example.com"}
		req := testutil.AuthenticatedRequest(t, "PUT", "/contacts/99999", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{"name": "Anna", "email": "bob@example.com"}
		req := testutil.AuthenticatedRequest(t, "PUT", path, body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	})
}

func TestContactHandler_Delete(t *testing.T) {
	router, tc := setupContactTestRouter(t)
	defer tc.Cleanup()

	contact := testutil.CreateTestContact(t, tc.DB, tc.User.ID, "Anna", "anna@example.com")
	_, otherToken := tc.NewUser(t)
	path := fmt.Sprintf("/contacts/%d", contact.ID)

	req := testutil.AuthenticatedRequest(t, "DELETE", path, nil, otherToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	req = testutil.AuthenticatedRequest(t, "DELETE", path, nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp dto.SuccessResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "Contact deleted successfully", resp.Message)

	// Soft delete keeps the row but hides it.
	svc := contacts.NewService(tc.DB)
	exists, err := svc.Exists(testutil.TestContext(t), contact.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	req = testutil.AuthenticatedRequest(t, "GET", path, nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
