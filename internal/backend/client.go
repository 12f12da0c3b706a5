package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"equipment-maintenance-dashboard/config"
	"equipment-maintenance-dashboard/internal/parse"
	"equipment-maintenance-dashboard/internal/session"
)

// DefaultMaintenanceTypes is offered when the backend has none on record.
var DefaultMaintenanceTypes = []string{"Preventive", "Corrective", "Replacement"}

// Client talks to the maintenance backend on behalf of one Session.
type Client struct {
	baseURL  string
	http     *http.Client
	session  *session.Session
	limiter  *rate.Limiter
	username string
	password string
	loginMu  sync.Mutex
	logger   zerolog.Logger
}

// NewClient creates a backend client. When cfg carries credentials, a
// cleared session is re-established transparently on the next call.
func NewClient(cfg *config.BackendConfig, sess *session.Session, logger zerolog.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.HTTPProxy).Msg("invalid proxy URL, connecting directly")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
		session:  sess,
		limiter:  rate.NewLimiter(limit, burst),
		username: cfg.Username,
		password: cfg.Password,
		logger:   logger.With().Str("component", "backend").Logger(),
	}
}

// Session returns the session this client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// Login authenticates with a form-encoded POST /login and stores the
// token and normalized role in the session.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out LoginResponse
	if err := c.send(req, "login", &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login: backend returned no access token")
	}
	role := session.ParseRole(out.Role)
	if role == session.RoleUnknown {
		return nil, fmt.Errorf("login: unsupported role %q", out.Role)
	}

	c.session.Establish(out.AccessToken, role)
	c.logger.Info().Str("user", username).Str("role", role.String()).Msg("signed in")
	return &out, nil
}

// SignIn logs in with the configured credentials.
func (c *Client) SignIn(ctx context.Context) error {
	if c.username == "" {
		return fmt.Errorf("sign in: no credentials configured: %w", ErrUnauthorized)
	}
	_, err := c.Login(ctx, c.username, c.password)
	return err
}

// Equipments lists all equipment. Rows arrive as positional tuples; a
// malformed row is logged and skipped.
func (c *Client) Equipments(ctx context.Context) ([]Equipment, error) {
	var out struct {
		Equipments [][]any `json:"equipments"`
	}
	if err := c.do(ctx, http.MethodGet, "/equipments", nil, &out); err != nil {
		return nil, err
	}

	list := make([]Equipment, 0, len(out.Equipments))
	for i, row := range out.Equipments {
		fields, err := parse.Row(row, 6)
		if err != nil {
			c.logger.Warn().Err(err).Int("row", i).Msg("skipping malformed equipment row")
			continue
		}
		list = append(list, Equipment{
			ID:               fields[0],
			Type:             fields[1],
			Manufacturer:     fields[2],
			Location:         fields[3],
			Criticality:      fields[4],
			InstallationDate: fields[5],
		})
	}
	return list, nil
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Users lists personnel. Rows arrive as positional tuples; a malformed
// row is logged and skipped.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out struct {
		Users [][]any `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}

	list := make([]User, 0, len(out.Users))
	for i, row := range out.Users {
		fields, err := parse.Row(row, 5)
		if err != nil {
			c.logger.Warn().Err(err).Int("row", i).Msg("skipping malformed user row")
			continue
		}
		years, err := parse.Number(row[4])
		if err != nil {
			c.logger.Warn().Err(err).Int("row", i).Str("user", fields[0]).Msg("skipping user with malformed experience")
			continue
		}
		list = append(list, User{
			PersonnelID:     fields[0],
			Name:            fields[1],
			Role:            fields[2],
			Department:      fields[3],
			ExperienceYears: years,
		})
	}
	return list, nil
}

// Predict asks the backend to refresh its failure predictions.
func (c *Client) Predict(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/predict", struct{}{}, nil)
}

// Priority returns the risk assessment for one equipment item.
func (c *Client) Priority(ctx context.Context, equipmentID string) (*Priority, error) {
	var out Priority
	if err := c.do(ctx, http.MethodGet, "/maintenance-log/priority/"+url.PathEscape(equipmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogsByEquipment returns every maintenance log of one equipment item.
func (c *Client) LogsByEquipment(ctx context.Context, equipmentID string) ([]MaintenanceLog, error) {
	var out struct {
		Logs []MaintenanceLog `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, "/maintenance-log/by-equipment/"+url.PathEscape(equipmentID), nil, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// Logs returns all maintenance logs.
func (c *Client) Logs(ctx context.Context) ([]MaintenanceLog, error) {
	var out struct {
		Logs []MaintenanceLog `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, "/maintenance-log", nil, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// Schedule books maintenance for an equipment item.
func (c *Client) Schedule(ctx context.Context, equipmentID string, body ScheduleRequest) (*ScheduleResponse, error) {
	var out ScheduleResponse
	if err := c.do(ctx, http.MethodPut, "/maintenance-log/schedule/"+url.PathEscape(equipmentID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkComplete records a technician's completion of a maintenance entry.
func (c *Client) MarkComplete(ctx context.Context, maintenanceID string, body CompletionRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPut, "/maintenance-log/mark-complete/"+url.PathEscape(maintenanceID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm marks a maintenance entry as confirmed with a service rating.
func (c *Client) Confirm(ctx context.Context, maintenanceID string, rating int) (*ConfirmResponse, error) {
	body := map[string]int{"service_rating": rating}
	var out ConfirmResponse
	if err := c.do(ctx, http.MethodPut, "/maintenance-log/confirm/"+url.PathEscape(maintenanceID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReviewCompletion approves or rejects completed work.
func (c *Client) ReviewCompletion(ctx context.Context, maintenanceID string, body ReviewRequest) (*ReviewResponse, error) {
	var out ReviewResponse
	if err := c.do(ctx, http.MethodPut, "/maintenance-log/review-completion/"+url.PathEscape(maintenanceID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingReviews lists completed work awaiting review.
func (c *Client) PendingReviews(ctx context.Context) ([]PendingReview, error) {
	var out struct {
		Reviews []PendingReview `json:"reviews"`
	}
	if err := c.do(ctx, http.MethodGet, "/maintenance-log/pending-reviews", nil, &out); err != nil {
		return nil, err
	}
	return out.Reviews, nil
}

// NewScheduled lists scheduled work dated today or later.
func (c *Client) NewScheduled(ctx context.Context) ([]ScheduledTask, error) {
	var out struct {
		NewScheduled []ScheduledTask `json:"new_scheduled"`
	}
	if err := c.do(ctx, http.MethodGet, "/maintenance-log/new-scheduled", nil, &out); err != nil {
		return nil, err
	}
	return out.NewScheduled, nil
}

// MaintenanceTypes lists the maintenance types on record, falling back to
// DefaultMaintenanceTypes when there are none.
func (c *Client) MaintenanceTypes(ctx context.Context) ([]string, error) {
	var out struct {
		MaintenanceTypes []string `json:"maintenance_types"`
	}
	if err := c.do(ctx, http.MethodGet, "/maintenance-log/maintenance-types", nil, &out); err != nil {
		return nil, err
	}
	if len(out.MaintenanceTypes) == 0 {
		return append([]string(nil), DefaultMaintenanceTypes...), nil
	}
	return out.MaintenanceTypes, nil
}

// do builds an authenticated JSON request and sends it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.send(req, op, out)
}

// token returns a usable bearer token, signing in again when the session
// was cleared and credentials are available.
func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok := c.session.Token(); ok {
		return token, nil
	}
	if c.username == "" {
		return "", ErrUnauthorized
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	if token, ok := c.session.Token(); ok {
		return token, nil
	}

	c.logger.Info().Msg("session cleared, signing in again")
	if _, err := c.Login(ctx, c.username, c.password); err != nil {
		return "", fmt.Errorf("re-authentication failed: %w", err)
	}
	token, ok := c.session.Token()
	if !ok {
		return "", ErrUnauthorized
	}
	return token, nil
}

// send performs the request and decodes a 2xx JSON reply into out.
// A 401 clears the session whichever operation triggered it.
func (c *Client) send(req *http.Request, op string, out any) error {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
		c.logger.Warn().Str("op", op).Msg("backend rejected the session, credentials cleared")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal response: %w", op, err)
	}
	return nil
}

// IsUnauthorized reports whether err means the caller must sign in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
