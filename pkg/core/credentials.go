package core

// Credentials holds the authentication material an adapter signs with.
// Which fields a venue requires is declared per adapter; see
// exchange.Client.CheckRequiredCredentials.
type Credentials struct {
	// APIKey is the public API key identifier.
	APIKey string `json:"apiKey"`
	// Secret is the private key used for signing requests.
	Secret string `json:"secret"`
	// UID is an account identifier some venues require.
	UID string `json:"uid,omitempty"`
	// Login is an account login some venues require.
	Login string `json:"login,omitempty"`
	// Password is an account or API passphrase some venues require.
	Password string `json:"password,omitempty"`
	// Token is a bearer token for venues using HTTP token auth.
	Token string `json:"token,omitempty"`
	// TwoFA is a one-time-password key for venues requiring 2FA.
	TwoFA string `json:"twofa,omitempty"`
}

// Field returns the credential value stored under its canonical field name.
// Unknown names return the empty string.
func (c Credentials) Field(name string) string {
	switch name {
	case "apiKey":
		return c.APIKey
	case "secret":
		return c.Secret
	case "uid":
		return c.UID
	case "login":
		return c.Login
	case "password":
		return c.Password
	case "token":
		return c.Token
	case "twofa":
		return c.TwoFA
	}
	return ""
}
