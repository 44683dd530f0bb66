package workspace

import (
	"strings"

	"github.com/rpggio/orgchat/internal/backend"
)

// Credentials are what a user supplies to open a session. GrantType is
// "password" (the default) or "token".
type Credentials struct {
	InstanceURL  string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	AccessToken  string
	GrantType    string
}

// Validate checks the fields required by the grant type.
func (c Credentials) Validate() error {
	var missing []string
	need := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	need("instance_url", c.InstanceURL)
	switch c.grantType() {
	case backend.GrantToken:
		need("access_token", c.AccessToken)
	case backend.GrantPassword:
		need("username", c.Username)
		need("password", c.Password)
		need("client_id", c.ClientID)
		need("client_secret", c.ClientSecret)
	default:
		missing = append(missing, "grant_type")
	}

	if len(missing) > 0 {
		return &CredentialsError{Fields: missing}
	}
	return nil
}

// Request converts the credentials to an auth request.
func (c Credentials) Request() backend.AuthRequest {
	req := backend.AuthRequest{
		InstanceURL: strings.TrimSpace(c.InstanceURL),
		GrantType:   c.grantType(),
	}
	if req.GrantType == backend.GrantToken {
		req.AccessToken = c.AccessToken
		return req
	}
	req.Username = strings.TrimSpace(c.Username)
	req.Password = c.Password
	req.ClientID = strings.TrimSpace(c.ClientID)
	req.ClientSecret = c.ClientSecret
	req.AccessToken = c.AccessToken
	return req
}

func (c Credentials) grantType() string {
	if c.GrantType == "" {
		return backend.GrantPassword
	}
	return strings.ToLower(c.GrantType)
}
