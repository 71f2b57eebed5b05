package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	UserCode string
	Role     enums.ActorRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. UserCode is
// the commercial identifier everything downstream keys on; the uuid only
// identifies the credential row.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	UserCode string          `json:"user_code"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
