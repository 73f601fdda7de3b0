package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"getlowlevel-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the ID token payload issued by the sign-in provider.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
	// AuthTime is when the user last actually signed in, in unix seconds.
	AuthTime int64 `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 ID tokens and turns them into identities.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(secret, issuer, audience string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret not configured")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience, now: time.Now}, nil
}

// Verify returns domain.ErrUnauthenticated for every malformed, expired or forged token.
func (v *Verifier) Verify(raw string) (domain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", domain.ErrUnauthenticated)
	}

	id := domain.Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
		Provider:    claims.Provider,
	}
	switch {
	case claims.AuthTime > 0:
		id.AuthTime = time.Unix(claims.AuthTime, 0).UTC()
	case claims.IssuedAt != nil:
		id.AuthTime = claims.IssuedAt.Time.UTC()
	}
	return id, nil
}

// Issue signs a token for id. Used by the dev token command and tests.
func (v *Verifier) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	authTime := id.AuthTime
	if authTime.IsZero() {
		authTime = now
	}
	claims := Claims{
		Email:    id.Email,
		Name:     id.DisplayName,
		Picture:  id.PhotoURL,
		Provider: id.Provider,
		AuthTime: authTime.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
