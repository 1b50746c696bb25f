package common

const (
	// AuthorizationHeaderName carries "Bearer <access token>" on requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"

	// TokenTypeBearer is reported in token responses.
	TokenTypeBearer = "bearer"

	// RefreshTokenBytes is the entropy of an opaque refresh token (256 bits).
	RefreshTokenBytes = 32
)
