package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fcl-miniapp/internal/domain"
)

// webAppDataKey keys the first HMAC stage of the Web App init data scheme.
const webAppDataKey = "WebAppData"

// Verifier verifies Telegram Web App init data against a specific bot token.
type Verifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify validates the init data and returns the identity it asserts.
// Every returned error wraps domain.ErrUnauthorized.
func (v *Verifier) Verify(initData string) (domain.VerifiedIdentity, error) {
	return VerifyInitData(initData, v.botToken, v.maxAge, v.now())
}

type initDataUser struct {
	ID        *int64  `json:"id"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// VerifyInitData checks the signature and freshness of initData at time now.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (domain.VerifiedIdentity, error) {
	params, err := parseInitData(initData)
	if err != nil {
		return domain.VerifiedIdentity{}, err
	}

	theirHash, ok := params["hash"]
	if !ok || theirHash == "" {
		return domain.VerifiedIdentity{}, domain.ErrMissingSignature
	}
	delete(params, "hash")

	ourHash := signature(botToken, dataCheckString(params))
	if !hmac.Equal([]byte(ourHash), []byte(theirHash)) {
		return domain.VerifiedIdentity{}, domain.ErrSignatureMismatch
	}

	authDate, err := strconv.ParseInt(params["auth_date"], 10, 64)
	if err != nil {
		return domain.VerifiedIdentity{}, domain.ErrMissingTimestamp
	}
	if now.Unix()-authDate > int64(maxAge/time.Second) {
		return domain.VerifiedIdentity{}, domain.ErrCredentialExpired
	}

	rawUser, ok := params["user"]
	if !ok {
		return domain.VerifiedIdentity{}, domain.ErrMissingUser
	}
	var u initDataUser
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil || u.ID == nil {
		return domain.VerifiedIdentity{}, domain.ErrMissingUser
	}
	return domain.VerifiedIdentity{
		ID:        *u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil
}

// SignInitData encodes params as init data signed for botToken. Any existing
// "hash" entry is replaced.
func SignInitData(params map[string]string, botToken string) string {
	values := url.Values{}
	filtered := make(map[string]string, len(params))
	for k, v := range params {
		if k == "hash" {
			continue
		}
		filtered[k] = v
		values.Set(k, v)
	}
	values.Set("hash", signature(botToken, dataCheckString(filtered)))
	return values.Encode()
}

// parseInitData decodes a strict query string. The first non-blank value of
// a repeated key wins; blank values are dropped.
func parseInitData(initData string) (map[string]string, error) {
	if initData == "" {
		return nil, domain.ErrMalformedCredential
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(initData, "&") {
		rawKey, rawValue, found := strings.Cut(pair, "=")
		if !found {
			return nil, domain.ErrMalformedCredential
		}
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", domain.ErrMalformedCredential)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, domain.ErrMalformedCredential)
		}
		if value == "" {
			continue
		}
		if _, seen := out[key]; !seen {
			out[key] = value
		}
	}
	return out, nil
}

func dataCheckString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + params[k]
	}
	return strings.Join(lines, "\n")
}

func signature(botToken, checkString string) string {
	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(checkString)))
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}
