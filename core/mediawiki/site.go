package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"Lyra/logger"

	"golang.org/x/net/publicsuffix"
)

const userAgent = "Lyra-mwapi/1.0"

// Site is a client of one wiki's api.php. Cookies are kept between calls so
// a login lasts for the life of the Site.
type Site struct {
	apiURL     string
	httpClient *http.Client
}

// Option configures a Site.
type Option func(*siteOptions)

type siteOptions struct {
	timeout time.Duration
	login   *loginOptions
}

type loginOptions struct {
	user, password, domain string
}

// WithTimeout bounds every API request.
func WithTimeout(d time.Duration) Option {
	return func(o *siteOptions) { o.timeout = d }
}

// WithLogin logs in while the Site is created.
func WithLogin(user, password, domain string) Option {
	return func(o *siteOptions) {
		o.login = &loginOptions{user: user, password: password, domain: domain}
	}
}

// NewSite creates a client for the api.php at apiURL.
func NewSite(ctx context.Context, apiURL string, opts ...Option) (*Site, error) {
	o := siteOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, apiURL, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s := &Site{
		apiURL: apiURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: o.timeout,
		},
	}

	if o.login != nil {
		if _, err := s.Login(ctx, o.login.user, o.login.password, o.login.domain); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// APIURL returns the api.php address.
func (s *Site) APIURL() string {
	return s.apiURL
}

// call posts params with format=json and decodes the answer into out.
// An "error" member in the answer is returned as *APIError.
func (s *Site) call(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	action := params.Get("action")
	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()
	logger.Debug("mediawiki request",
		logger.String("action", action),
		logger.String("api", s.apiURL),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request returned status %d", action, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", action, err)
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}

// Request sends arbitrary API parameters and returns the decoded answer.
func (s *Site) Request(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	var ans map[string]interface{}
	if err := s.call(ctx, params, &ans); err != nil {
		return nil, err
	}
	return ans, nil
}

type loginAnswer struct {
	Login struct {
		Result   string `json:"result"`
		Token    string `json:"token"`
		UserID   int64  `json:"lguserid"`
		Username string `json:"lgusername"`
		Reason   string `json:"reason"`
	} `json:"login"`
}

// LoginResult describes a successful login.
type LoginResult struct {
	UserID   int64
	Username string
}

// Login authenticates with the two step token exchange. domain is optional.
func (s *Site) Login(ctx context.Context, username, password, domain string) (*LoginResult, error) {
	params := url.Values{
		"action":     {"login"},
		"lgname":     {username},
		"lgpassword": {password},
	}
	if domain != "" {
		params.Set("lgdomain", domain)
	}

	var first loginAnswer
	if err := s.call(ctx, cloneValues(params), &first); err != nil {
		return nil, err
	}
	token := first.Login.Token
	if token == "" {
		// newer wikis only hand out login tokens through meta=tokens
		var err error
		if token, err = s.token(ctx, "login"); err != nil {
			return nil, err
		}
	}

	params.Set("lgtoken", token)
	var raw map[string]interface{}
	if err := s.call(ctx, cloneValues(params), &raw); err != nil {
		return nil, err
	}
	var second loginAnswer
	if err := remarshal(raw, &second); err != nil {
		return nil, err
	}
	if second.Login.Result != "Success" {
		return nil, &AuthError{Result: second.Login.Result, Reason: second.Login.Reason, Data: raw}
	}

	logger.Info("logged in to wiki", logger.String("user", second.Login.Username), logger.String("api", s.apiURL))
	return &LoginResult{UserID: second.Login.UserID, Username: second.Login.Username}, nil
}

// token fetches a token of the given type (csrf, login, ...).
func (s *Site) token(ctx context.Context, typ string) (string, error) {
	var ans struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	params := url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {typ}}
	if err := s.call(ctx, params, &ans); err != nil {
		return "", err
	}
	token := ans.Query.Tokens[typ+"token"]
	if token == "" {
		return "", fmt.Errorf("wiki returned no %s token", typ)
	}
	return token, nil
}

// EditResult is the answer to a successful edit.
type EditResult struct {
	Result   string `json:"result"`
	PageID   int64  `json:"pageid"`
	Title    string `json:"title"`
	OldRevID int64  `json:"oldrevid"`
	NewRevID int64  `json:"newrevid"`
	NoChange bool   `json:"-"`
}

// Edit replaces the text of title.
func (s *Site) Edit(ctx context.Context, title, text, summary string) (*EditResult, error) {
	token, err := s.token(ctx, "csrf")
	if err != nil {
		return nil, err
	}

	var ans struct {
		Edit struct {
			EditResult
			NoChange *string `json:"nochange"`
		} `json:"edit"`
	}
	params := url.Values{
		"action":  {"edit"},
		"title":   {title},
		"text":    {text},
		"summary": {summary},
		"token":   {token},
	}
	if err := s.call(ctx, params, &ans); err != nil {
		return nil, err
	}
	if ans.Edit.Result != "Success" {
		return nil, fmt.Errorf("edit of %q failed: %s", title, ans.Edit.Result)
	}
	res := ans.Edit.EditResult
	res.NoChange = ans.Edit.NoChange != nil
	return &res, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func remarshal(in interface{}, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
