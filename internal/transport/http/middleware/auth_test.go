package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fcl-miniapp/internal/domain"
	"github.com/fcl-miniapp/internal/infrastructure/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-TOKEN"

var testNow = time.Unix(1_760_000_000, 0)

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func newTestVerifier() *telegram.Verifier {
	return telegram.NewVerifier(testBotToken, time.Hour).WithClock(func() time.Time { return testNow })
}

func signedInitData(authDate time.Time) string {
	return telegram.SignInitData(map[string]string{
		"auth_date": strconv.FormatInt(authDate.Unix(), 10),
		"query_id":  "AAE",
		"user":      `{"id":42,"username":"kro","first_name":"Kirill"}`,
	}, testBotToken)
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestAuth_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(newTestVerifier())(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "missing X-Telegram-Init-Data", errorBody(t, rr))
}

func TestAuth_BadSignature(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(InitDataHeader, signedInitData(testNow)+"0")
	rr := httptest.NewRecorder()
	Auth(newTestVerifier())(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, domain.ErrSignatureMismatch.Error(), errorBody(t, rr))
}

func TestAuth_Expired(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(InitDataHeader, signedInitData(testNow.Add(-2*time.Hour)))
	rr := httptest.NewRecorder()
	Auth(newTestVerifier())(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, domain.ErrCredentialExpired.Error(), errorBody(t, rr))
}

func TestAuth_ValidInjectsIdentity(t *testing.T) {
	raw := signedInitData(testNow)
	var (
		got     domain.VerifiedIdentity
		gotRaw  string
		present bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, present = IdentityFromContext(r.Context())
		gotRaw = InitDataFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(InitDataHeader, raw)
	rr := httptest.NewRecorder()
	Auth(newTestVerifier())(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, present)
	assert.Equal(t, int64(42), got.ID)
	require.NotNil(t, got.Username)
	assert.Equal(t, "kro", *got.Username)
	assert.Nil(t, got.LastName)
	assert.Equal(t, raw, gotRaw)
}

func TestIdentityFromContext_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)
	assert.Empty(t, InitDataFromContext(req.Context()))
}
