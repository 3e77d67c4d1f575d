package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIdentityMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(identityMiddleware())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUserID(c)})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "42", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "bob", http.StatusUnauthorized},
		{"zero", "0", http.StatusUnauthorized},
		{"negative", "-3", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("X-User-ID", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			"not found",
			&service.NotFoundError{Message: "product not found"},
			http.StatusNotFound,
			"product not found",
		},
		{
			"validation",
			&service.ValidationError{Message: "quantity must be at least 1"},
			http.StatusBadRequest,
			"quantity must be at least 1",
		},
		{
			"insufficient stock",
			&service.InsufficientStockError{ProductName: "Fresh Milk", Remaining: 3},
			http.StatusBadRequest,
			"Fresh Milk",
		},
		{
			"empty cart",
			service.ErrEmptyCart,
			http.StatusBadRequest,
			"cart is empty",
		},
		{
			"empty smart list",
			service.ErrEmptySmartList,
			http.StatusBadRequest,
			"smart list is empty",
		},
		{
			"internal",
			errors.New("pq: connection refused"),
			http.StatusInternalServerError,
			"internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
			// Internal detail never leaks to the client.
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "pq:")
			}
		})
	}
}

func TestSmartListItemRoutesUsePost(t *testing.T) {
	router := gin.New()
	NewHandler(nil, nil, nil, nil, nil).SetupRoutes(router)

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	// Item mutations are POST endpoints; update_item additionally accepts
	// PUT for older clients.
	for _, want := range []string{
		"POST /api/v1/smartlists/:id/add_item",
		"POST /api/v1/smartlists/:id/update_item",
		"PUT /api/v1/smartlists/:id/update_item",
		"POST /api/v1/smartlists/:id/remove_item",
		"POST /api/v1/smartlists/:id/order_all",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestPathIDRepliesNotFound(t *testing.T) {
	router := gin.New()
	router.GET("/things/:id", func(c *gin.Context) {
		if _, ok := pathID(c, "id"); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	for _, raw := range []string{"abc", "0", "-1", "9999999999999999999999"} {
		req := httptest.NewRequest(http.MethodGet, "/things/"+raw, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "id %q", raw)
	}

	req := httptest.NewRequest(http.MethodGet, "/things/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
