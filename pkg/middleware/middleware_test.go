package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/bookhub/store-service/pkg/auth"
	md "github.com/bookhub/store-service/pkg/middleware"
)

func newAuthEcho() *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		user, ok := auth.FromContext(c.Request().Context())
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		return c.JSON(http.StatusOK, echo.Map{"username": user.Username, "role": user.Role})
	}, md.JwtAuthentication)
	return e
}

func TestJwtAuthentication(t *testing.T) {
	t.Parallel()

	validToken, err := auth.GenerateToken("alice", auth.RoleStaff, time.Hour)
	require.NoError(t, err)
	expiredToken, err := auth.GenerateToken("alice", auth.RoleStaff, -time.Hour)
	require.NoError(t, err)

	var tests = []struct {
		name          string
		authorization string
		expectedCode  int
		expectedBody  string
	}{
		{
			name:          "ok",
			authorization: "Bearer " + validToken,
			expectedCode:  http.StatusOK,
			expectedBody:  `{"role":"staff","username":"alice"}` + "\n",
		},
		{
			name:          "err. no header",
			authorization: "",
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "err. not bearer",
			authorization: "Basic abc",
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "err. garbage token",
			authorization: "Bearer not-a-jwt",
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "err. expired token",
			authorization: "Bearer " + expiredToken,
			expectedCode:  http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newAuthEcho()

			r := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
			if tt.authorization != "" {
				r.Header.Set(md.AuthorizationHeader, tt.authorization)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				require.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestAuthContext(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		user, _ := auth.FromContext(c.Request().Context())
		return c.String(http.StatusOK, user.Username+":"+user.Role)
	}, md.AuthContext)

	r := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
	r.Header.Set(auth.XUserNameHeader, "bob")
	r.Header.Set(auth.XUserRoleHeader, auth.RoleUser)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "bob:user", w.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
