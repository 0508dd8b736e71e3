package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	ActiveStoreID *uuid.UUID
	JTI           string
}

// AccessTokenClaims represents the typed JWT the adapter hands the core's
// callers. The core itself never parses tokens; it receives the resolved
// actor identity.
type AccessTokenClaims struct {
	UserID        uuid.UUID  `json:"user_id"`
	ActiveStoreID *uuid.UUID `json:"active_store_id,omitempty"`
	jwt.RegisteredClaims
}
