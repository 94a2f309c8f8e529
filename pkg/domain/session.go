package domain

// SessionGrant is what a host receives when a session is started or
// refreshed. RefreshToken is empty on the reduced-trust refresh path
// (bearer renewal without presenting a refresh token).
type SessionGrant struct {
	Token        string `json:"token"`
	Session      string `json:"session"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn"`
}
