package oauthprovider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/chatwave-backend/internal/config"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/pkce"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
)

const (
	xAuthURL  = "https://twitter.com/i/oauth2/authorize"
	xTokenURL = "https://api.twitter.com/2/oauth2/token"
	xMeURL    = "https://api.twitter.com/2/users/me"
)

// xProvider реализует вход через X (Twitter) по OAuth 2.0 с PKCE.
// X не отдает email, поэтому он синтезируется из идентификатора
// пользователя: x_<id>@users.noreply.x.com.
type xProvider struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func newXProvider(cfg config.OAuthClient, redirectURI string, httpClient *http.Client) *xProvider {
	return &xProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  redirectURI,
		httpClient:   httpClient,
	}
}

func (p *xProvider) Name() string   { return models.ProviderX }
func (p *xProvider) UsesPKCE() bool { return true }

func (p *xProvider) AuthURL(state, codeChallenge string) string {
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "tweet.read users.read")
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", pkce.ChallengeMethod)
	return xAuthURL + "?" + q.Encode()
}

func (p *xProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Profile, error) {
	const op = "oauthprovider.x.Exchange"

	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", p.redirectURI)
	form.Set("code_verifier", codeVerifier)

	basicAuth := base64.StdEncoding.EncodeToString([]byte(p.clientID + ":" + p.clientSecret))
	accessToken, err := postTokenForm(ctx, p.httpClient, xTokenURL, form, basicAuth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var me struct {
		Data struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := getJSONWithBearer(ctx, p.httpClient, xMeURL, accessToken, &me); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if me.Data.ID == "" {
		return nil, fmt.Errorf("%s: empty user id in response", op)
	}
	profile := &Profile{
		Provider:  models.ProviderX,
		SubjectID: me.Data.ID,
		Email:     fmt.Sprintf("x_%s@users.noreply.x.com", me.Data.ID),
	}
	if me.Data.Name != "" {
		profile.Name = &me.Data.Name
	}
	return profile, nil
}
