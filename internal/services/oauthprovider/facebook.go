package oauthprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/chatwave-backend/internal/config"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
)

const (
	facebookAuthURL    = "https://www.facebook.com/v18.0/dialog/oauth"
	facebookTokenURL   = "https://graph.facebook.com/v18.0/oauth/access_token"
	facebookProfileURL = "https://graph.facebook.com/v18.0/me"
)

type facebookProvider struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func newFacebookProvider(cfg config.OAuthClient, redirectURI string, httpClient *http.Client) *facebookProvider {
	return &facebookProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  redirectURI,
		httpClient:   httpClient,
	}
}

func (p *facebookProvider) Name() string   { return models.ProviderFacebook }
func (p *facebookProvider) UsesPKCE() bool { return false }

func (p *facebookProvider) AuthURL(state, _ string) string {
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "email,public_profile")
	q.Set("state", state)
	return facebookAuthURL + "?" + q.Encode()
}

// Exchange обменивает код на профиль. Facebook может не вернуть email
// (телефонная регистрация) — такой вход отклоняется, так как email
// обязателен для сведения аккаунтов.
func (p *facebookProvider) Exchange(ctx context.Context, code, _ string) (*Profile, error) {
	const op = "oauthprovider.facebook.Exchange"

	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.redirectURI)

	accessToken, err := postTokenForm(ctx, p.httpClient, facebookTokenURL, form, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profileURL := facebookProfileURL + "?fields=id,name,email&access_token=" + url.QueryEscape(accessToken)
	var info struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSONWithBearer(ctx, p.httpClient, profileURL, accessToken, &info); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailMissing)
	}
	profile := &Profile{
		Provider:  models.ProviderFacebook,
		SubjectID: info.ID,
		Email:     info.Email,
	}
	if info.Name != "" {
		profile.Name = &info.Name
	}
	return profile, nil
}
