package stubserver

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/hansamarket/go-session/api"
)

const (
	refreshTokenLength = 32 // bytes of entropy per refresh token

	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var InvalidTokenErr = errors.New("invalid or expired token")

// TokenIssuer mints HS256 access tokens and rotating opaque refresh tokens.
// Refresh tokens live in a TTL cache keyed by the token string; rotation
// deletes the old entry before minting the replacement, so a refresh token
// redeems at most once.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	refresh    *cache.Cache // refresh token -> user ID
	nowTime    func() time.Time
}

// NewTokenIssuer creates an issuer signing with the given secret.
func NewTokenIssuer(secret []byte, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		refresh:    cache.New(defaultRefreshTTL, 10*time.Minute),
		nowTime:    time.Now,
	}
}

// IssuePair mints an access/refresh token pair for a user.
func (t *TokenIssuer) IssuePair(user *User) (api.TokenPair, error) {
	now := t.nowTime()
	claims := jwtlib.MapClaims{
		"iss":   t.issuer,
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(t.accessTTL).Unix(),
		"jti":   uuid.New().String(),
	}

	access, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return api.TokenPair{}, errors.Wrap(err, "[TokenIssuer.IssuePair] signing access token")
	}

	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return api.TokenPair{}, errors.Wrap(err, "[TokenIssuer.IssuePair] generating refresh token")
	}
	refreshToken := hex.EncodeToString(tokenBytes)
	t.refresh.Set(refreshToken, user.ID, t.refreshTTL)

	return api.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int(t.accessTTL.Seconds()),
	}, nil
}

// Redeem consumes a refresh token and returns the user it belonged to. The
// token is invalidated whether or not the caller goes on to mint a new pair.
func (t *TokenIssuer) Redeem(refreshToken string) (string, error) {
	userID, found := t.refresh.Get(refreshToken)
	if !found {
		return "", InvalidTokenErr
	}
	t.refresh.Delete(refreshToken)
	return userID.(string), nil
}

// Revoke drops a refresh token. Unknown tokens are ignored.
func (t *TokenIssuer) Revoke(refreshToken string) {
	t.refresh.Delete(refreshToken)
}

// ParseAccess verifies an access token and returns the subject user ID.
func (t *TokenIssuer) ParseAccess(raw string) (string, error) {
	parsed, err := jwtlib.Parse(raw, func(token *jwtlib.Token) (any, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return t.secret, nil
	}, jwtlib.WithTimeFunc(func() time.Time { return t.nowTime() }))
	if err != nil || !parsed.Valid {
		return "", InvalidTokenErr
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", InvalidTokenErr
	}
	return subject, nil
}
