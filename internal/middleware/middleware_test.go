package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Eursukkul/boat-booking/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func runJWT(t *testing.T, header string) (string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen string
	err := JWTAuth(jwtSecret)(func(c echo.Context) error {
		seen = UserID(c)
		return nil
	})(c)
	return seen, err
}

func TestJWTAuth_ValidTokenSetsSubject(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(jwtSecret), jwt.MapClaims{
		"sub":  "user-42",
		"role": "customer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	seen, err := runJWT(t, "Bearer "+token)

	require.NoError(t, err)
	assert.Equal(t, "user-42", seen)
}

func TestJWTAuth_AnonymousPassesThrough(t *testing.T) {
	seen, err := runJWT(t, "")

	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestJWTAuth_Rejections(t *testing.T) {
	expired := signToken(t, jwt.SigningMethodHS256, []byte(jwtSecret), jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "user-42"})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(jwtSecret), jwt.MapClaims{"role": "customer"})

	cases := map[string]string{
		"not bearer": "Basic abc",
		"garbage":    "Bearer not.a.jwt",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no subject": "Bearer " + noSubject,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runJWT(t, header)

			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func TestRateLimit_DisabledOrNoRedisPassesThrough(t *testing.T) {
	cases := map[string]struct {
		cfg config.RateLimitConfig
		rdb *redis.Client
	}{
		"disabled": {cfg: config.RateLimitConfig{Enabled: false}, rdb: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})},
		"nil client": {cfg: config.RateLimitConfig{Enabled: true, Capacity: 1}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			calls := 0
			h := RateLimit(tc.cfg, tc.rdb)(func(c echo.Context) error {
				calls++
				return nil
			})
			for i := 0; i < 3; i++ {
				c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil), httptest.NewRecorder())
				require.NoError(t, h(c))
			}
			assert.Equal(t, 3, calls)
		})
	}
}

func TestRateLimit_FailsOpenWhenRedisUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	called := false
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil), httptest.NewRecorder())

	err := RateLimit(cfg, rdb)(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
}

func TestRateKey_PrefersAuthenticatedUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.5")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/bookings")

	assert.Equal(t, "rl:ip:10.0.0.5:POST /api/v1/bookings", rateKey("rl", c))

	c.Set(ContextUserID, "user-42")
	assert.Equal(t, "rl:user:user-42:POST /api/v1/bookings", rateKey("rl", c))
}

func TestErrorHandler_RendersMessage(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

	ErrorHandler(echo.NewHTTPError(http.StatusNotFound, "reservation not found"), c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"reservation not found"}`, rec.Body.String())
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

	ErrorHandler(errors.New("pq: connection refused"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rec.Body.String())
}
