// Package mailtm provides a client for the Mail.tm disposable email REST API:
// domain discovery, account creation, token issue and message reads.
package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.mail.tm"
	defaultTimeout = 5 * time.Second
)

// Config holds client settings. Zero values use the Mail.tm defaults.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// MessageSummary is one entry of the inbox listing.
type MessageSummary struct {
	ID        string
	From      string
	Subject   string
	Intro     string
	CreatedAt time.Time
}

// Message is a fully fetched message.
type Message struct {
	ID      string
	From    string
	Subject string
	Text    string // plain text body, or html with tags stripped when no text part exists
}

// Client communicates with the Mail.tm REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Mail.tm client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Domains returns the active domains accounts can be created under.
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	body, err := c.doGet(ctx, "/domains", "")
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	var members []domainResponse
	if err := decodeCollection(body, &members); err != nil {
		return nil, fmt.Errorf("list domains: unmarshal: %w", err)
	}

	domains := make([]string, 0, len(members))
	for _, d := range members {
		if d.Domain == "" || (d.IsActive != nil && !*d.IsActive) {
			continue
		}
		domains = append(domains, d.Domain)
	}
	return domains, nil
}

// CreateAccount registers address with password.
func (c *Client) CreateAccount(ctx context.Context, address, password string) error {
	if _, err := c.doPost(ctx, "/accounts", credentials{Address: address, Password: password}); err != nil {
		return &ProvisioningError{Address: address, Err: err}
	}
	return nil
}

// Token exchanges account credentials for a bearer token.
func (c *Client) Token(ctx context.Context, address, password string) (string, error) {
	body, err := c.doPost(ctx, "/token", credentials{Address: address, Password: password})
	if err != nil {
		return "", &AuthError{Address: address, Err: err}
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &AuthError{Address: address, Err: fmt.Errorf("unmarshal: %w", err)}
	}
	if resp.Token == "" {
		return "", &AuthError{Address: address}
	}
	return resp.Token, nil
}

// Messages lists the messages in the inbox the token belongs to.
func (c *Client) Messages(ctx context.Context, token string) ([]MessageSummary, error) {
	body, err := c.doGet(ctx, "/messages", token)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var members []messageResponse
	if err := decodeCollection(body, &members); err != nil {
		return nil, fmt.Errorf("list messages: unmarshal: %w", err)
	}

	msgs := make([]MessageSummary, len(members))
	for i, m := range members {
		t, _ := time.Parse(time.RFC3339, m.CreatedAt)
		msgs[i] = MessageSummary{
			ID:        m.ID,
			From:      m.From.Address,
			Subject:   m.Subject,
			Intro:     m.Intro,
			CreatedAt: t,
		}
	}
	return msgs, nil
}

// Message fetches one message with its body.
func (c *Client) Message(ctx context.Context, token, id string) (*Message, error) {
	body, err := c.doGet(ctx, "/messages/"+url.PathEscape(id), token)
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	var m messageResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("get message %s: unmarshal: %w", id, err)
	}

	text := m.Text
	if text == "" && len(m.HTML) > 0 {
		text = stripTags(strings.Join(m.HTML, "\n"))
	}

	return &Message{
		ID:      m.ID,
		From:    m.From.Address,
		Subject: m.Subject,
		Text:    text,
	}, nil
}

func (c *Client) doGet(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req)
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/ld+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, body)
	}

	return body, nil
}

func parseError(status int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		switch {
		case apiErr.Detail != "":
			return &Error{StatusCode: status, Message: apiErr.Detail}
		case apiErr.Message != "":
			return &Error{StatusCode: status, Message: apiErr.Message}
		}
	}
	return &Error{StatusCode: status, Message: http.StatusText(status)}
}

// decodeCollection accepts both the Hydra envelope and a bare JSON array.
func decodeCollection[T any](body []byte, dst *[]T) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, dst)
	}

	var env struct {
		Members []T `json:"hydra:member"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	*dst = env.Members
	return nil
}

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`[ \t]+`)
)

func stripTags(html string) string {
	s := tagRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// json wire types for API requests and responses

type credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

type domainResponse struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	IsActive *bool  `json:"isActive"`
}

type tokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type messageResponse struct {
	ID   string `json:"id"`
	From struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"from"`
	Subject   string   `json:"subject"`
	Intro     string   `json:"intro"`
	Text      string   `json:"text"`
	HTML      []string `json:"html"`
	CreatedAt string   `json:"createdAt"`
}

type apiErrorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}
