package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's OAuth2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	// ErrMissingCredential is returned when neither a code nor an access token is given.
	ErrMissingCredential = errors.New("code or access_token is required")

	// ErrGoogleRejected is returned when Google refuses the code or token.
	ErrGoogleRejected = errors.New("google rejected the credentials")
)

// GoogleUser is the subset of the userinfo payload the app keeps.
type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleAuthenticator turns a frontend authorization code or access token
// into a verified Google identity.
type GoogleAuthenticator struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleAuthenticator creates an authenticator. redirectURL is
// "postmessage" for the popup code flow used by the web client.
func NewGoogleAuthenticator(clientID, clientSecret, redirectURL string, httpClient *http.Client) *GoogleAuthenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleAuthenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: DefaultUserInfoURL,
		httpClient:  httpClient,
	}
}

// Authenticate exchanges code when present, otherwise uses accessToken
// directly, and returns the Google profile behind it.
func (a *GoogleAuthenticator) Authenticate(ctx context.Context, code, accessToken string) (*GoogleUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	var token *oauth2.Token
	switch {
	case code != "":
		t, err := a.config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%w: exchanging code: %v", ErrGoogleRejected, err)
		}
		token = t
	case accessToken != "":
		token = &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	default:
		return nil, ErrMissingCredential
	}

	return a.fetchUserInfo(ctx, token)
}

func (a *GoogleAuthenticator) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchUserInfo: building request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchUserInfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetchUserInfo: reading body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrGoogleRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetchUserInfo: userinfo returned %d: %s", resp.StatusCode, body)
	}

	var user GoogleUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("fetchUserInfo: decoding: %w", err)
	}
	if user.Email == "" || user.ID == "" {
		return nil, fmt.Errorf("%w: userinfo has no email", ErrGoogleRejected)
	}
	return &user, nil
}
