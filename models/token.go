package models

// Token wraps a single opaque bearer credential.
type Token struct {
	Token string `json:"token"`
}

// TokenPair is the credential pair issued at login and replaced wholesale on
// refresh. The JSON shape is shared between the backend's auth endpoints and
// the persisted snapshot.
type TokenPair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

func NewTokenPair(accessToken, refreshToken string) *TokenPair {
	return &TokenPair{
		Access:  Token{Token: accessToken},
		Refresh: Token{Token: refreshToken},
	}
}

func (p *TokenPair) AccessToken() string {
	if p == nil {
		return ""
	}
	return p.Access.Token
}

func (p *TokenPair) RefreshToken() string {
	if p == nil {
		return ""
	}
	return p.Refresh.Token
}
