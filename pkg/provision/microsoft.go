package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/perarneng/autoboard/pkg/interfaces"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope   = "https://graph.microsoft.com/.default"

	// DefaultLicenseSKU is Microsoft 365 Business Standard.
	DefaultLicenseSKU = "O365_BUSINESS_PREMIUM"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// MicrosoftConfig is an Entra app registration with application permissions
// User.ReadWrite.All, Directory.ReadWrite.All and, for administrative units,
// AdministrativeUnit.ReadWrite.All.
type MicrosoftConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Microsoft creates users and assigns licenses through Microsoft Graph
// using the client credentials flow.
type Microsoft struct {
	baseURL   string
	credCfg   *clientcredentials.Config
	base      *http.Client
	logger    interfaces.Logger
	baseDelay time.Duration

	mu     sync.Mutex
	client *http.Client
}

func NewMicrosoft(cfg MicrosoftConfig, logger interfaces.Logger) *Microsoft {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	return newMicrosoftWithOverrides(cfg, graphBaseURL, tokenURL, &http.Client{Timeout: 30 * time.Second}, logger)
}

// newMicrosoftWithOverrides points the provider at custom Graph and token
// endpoints, used for testing.
func newMicrosoftWithOverrides(cfg MicrosoftConfig, baseURL, tokenURL string, base *http.Client, logger interfaces.Logger) *Microsoft {
	m := &Microsoft{
		baseURL: strings.TrimRight(baseURL, "/"),
		credCfg: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
		},
		base:      base,
		logger:    logger,
		baseDelay: time.Second,
	}
	m.resetToken()
	return m
}

func (m *Microsoft) Name() string {
	return "microsoft"
}

// resetToken discards the cached access token.
func (m *Microsoft) resetToken() {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, m.base)
	client := m.credCfg.Client(ctx)
	client.Timeout = m.base.Timeout

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
}

func (m *Microsoft) httpClient() *http.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

type graphUser struct {
	AccountEnabled    bool            `json:"accountEnabled"`
	DisplayName       string          `json:"displayName"`
	MailNickname      string          `json:"mailNickname"`
	UserPrincipalName string          `json:"userPrincipalName"`
	PasswordProfile   passwordProfile `json:"passwordProfile"`
	JobTitle          string          `json:"jobTitle,omitempty"`
	Department        string          `json:"department,omitempty"`
	UsageLocation     string          `json:"usageLocation"`
	GivenName         string          `json:"givenName"`
	Surname           string          `json:"surname"`
}

type passwordProfile struct {
	ForceChangePasswordNextSignIn bool   `json:"forceChangePasswordNextSignIn"`
	Password                      string `json:"password"`
}

type createdGraphUser struct {
	ID                string `json:"id"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type subscribedSku struct {
	SkuID         string `json:"skuId"`
	SkuPartNumber string `json:"skuPartNumber"`
	ConsumedUnits int    `json:"consumedUnits"`
	PrepaidUnits  struct {
		Enabled int `json:"enabled"`
	} `json:"prepaidUnits"`
}

type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateUser creates an enabled user who must change the password at first
// sign-in. UsageLocation defaults to US because licenses require one.
func (m *Microsoft) CreateUser(ctx context.Context, account interfaces.Account) (*interfaces.CreatedUser, error) {
	usageLocation := account.UsageLocation
	if usageLocation == "" {
		usageLocation = "US"
	}
	body := graphUser{
		AccountEnabled:    true,
		DisplayName:       account.DisplayName(),
		MailNickname:      account.MailNickname(),
		UserPrincipalName: account.Email,
		PasswordProfile: passwordProfile{
			ForceChangePasswordNextSignIn: true,
			Password:                      account.Password,
		},
		JobTitle:      account.JobTitle,
		Department:    account.Department,
		UsageLocation: usageLocation,
		GivenName:     account.FirstName,
		Surname:       account.LastName,
	}

	var created createdGraphUser
	if err := m.do(ctx, http.MethodPost, "/users", body, &created); err != nil {
		m.logger.Error(fmt.Sprintf("Microsoft user creation failed for %s: %v", account.Email, err))
		return nil, createUserError(account.Email, err)
	}

	m.logger.Info(fmt.Sprintf("Microsoft user created successfully: %s", account.Email))
	email := created.UserPrincipalName
	if email == "" {
		email = account.Email
	}
	return &interfaces.CreatedUser{Provider: m.Name(), ID: created.ID, Email: email}, nil
}

// Licenses lists the tenant's subscribed SKUs with seat counts.
func (m *Microsoft) Licenses(ctx context.Context) ([]interfaces.License, error) {
	skus, err := m.subscribedSkus(ctx)
	if err != nil {
		return nil, err
	}
	licenses := make([]interfaces.License, 0, len(skus))
	for _, s := range skus {
		licenses = append(licenses, interfaces.License{
			SKUPartNumber: s.SkuPartNumber,
			Total:         s.PrepaidUnits.Enabled,
			Consumed:      s.ConsumedUnits,
			Remaining:     s.PrepaidUnits.Enabled - s.ConsumedUnits,
		})
	}
	return licenses, nil
}

func (m *Microsoft) subscribedSkus(ctx context.Context) ([]subscribedSku, error) {
	var resp struct {
		Value []subscribedSku `json:"value"`
	}
	if err := m.do(ctx, http.MethodGet, "/subscribedSkus", nil, &resp); err != nil {
		return nil, &Error{
			Provider: m.Name(),
			Message:  fmt.Sprintf("Failed to list subscribed SKUs: %v", err),
			Err:      err,
		}
	}
	return resp.Value, nil
}

// AssignLicense resolves skuPartNumber to its SKU id, ignoring case, and
// assigns it to the user.
func (m *Microsoft) AssignLicense(ctx context.Context, userID, skuPartNumber string) error {
	skus, err := m.subscribedSkus(ctx)
	if err != nil {
		return err
	}

	var skuID string
	available := make([]string, 0, len(skus))
	for _, s := range skus {
		available = append(available, s.SkuPartNumber)
		if strings.EqualFold(strings.TrimSpace(s.SkuPartNumber), strings.TrimSpace(skuPartNumber)) {
			skuID = s.SkuID
		}
	}
	if skuID == "" {
		return &Error{
			Provider: m.Name(),
			Kind:     ErrSKUNotFound,
			Message:  fmt.Sprintf("SKU '%s' not found. Available SKUs: %s", skuPartNumber, strings.Join(available, ", ")),
		}
	}
	m.logger.Debug(fmt.Sprintf("Resolved SKU %s to %s", skuPartNumber, skuID))

	assignment := map[string]any{
		"addLicenses":    []map[string]any{{"disabledPlans": []string{}, "skuId": skuID}},
		"removeLicenses": []string{},
	}
	path := "/users/" + url.PathEscape(userID) + "/assignLicense"
	if err := m.do(ctx, http.MethodPost, path, assignment, nil); err != nil {
		m.logger.Error(fmt.Sprintf("License assignment failed for user %s: %v", userID, err))
		return assignLicenseError(skuPartNumber, err)
	}

	m.logger.Info(fmt.Sprintf("License %s assigned to user %s", skuPartNumber, userID))
	return nil
}

// AddToAdministrativeUnit adds the user as a member of the unit.
func (m *Microsoft) AddToAdministrativeUnit(ctx context.Context, unitID, userID string) error {
	ref := map[string]string{
		"@odata.id": graphBaseURL + "/users/" + url.PathEscape(userID),
	}
	path := "/administrativeUnits/" + url.PathEscape(unitID) + "/members/$ref"
	if err := m.do(ctx, http.MethodPost, path, ref, nil); err != nil {
		m.logger.Error(fmt.Sprintf("Failed to add user %s to Administrative Unit %s: %v", userID, unitID, err))
		return adminUnitError(err)
	}

	m.logger.Info(fmt.Sprintf("User %s added to Administrative Unit %s", userID, unitID))
	return nil
}

// do sends one Graph request with retries: exponential backoff for
// transient failures, Retry-After for 429 and one token refresh on 401.
func (m *Microsoft) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	tokenRefreshed := false

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			m.logger.Debug(fmt.Sprintf("Retrying Graph request %s %s (attempt %d/%d)", method, path, attempt, maxRetries))
		}

		err := m.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var gErr *graphError
		if !errors.As(err, &gErr) {
			return err
		}

		switch {
		case gErr.permanent:
			return gErr
		case gErr.statusCode == http.StatusUnauthorized && !tokenRefreshed:
			m.logger.Info("Refreshing Graph API token after 401")
			m.resetToken()
			tokenRefreshed = true
			continue
		case gErr.statusCode == http.StatusTooManyRequests:
			delay := m.retryAfterDelay(gErr.retryAfter, attempt)
			m.logger.Warn(fmt.Sprintf("Rate limited by Graph API, retrying in %v", delay))
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		case gErr.transient:
			delay := m.backoffDelay(attempt)
			m.logger.Warn(fmt.Sprintf("Transient Graph API error (HTTP %d), retrying in %v", gErr.statusCode, delay))
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		default:
			return gErr
		}
	}

	return fmt.Errorf("Graph API request failed after %d retries: %w", maxRetries, lastErr)
}

func (m *Microsoft) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			gErr := &graphError{message: "token request failed: " + string(rErr.Body), permanent: true}
			if rErr.Response != nil {
				gErr.statusCode = rErr.Response.StatusCode
			}
			return gErr
		}
		return &graphError{message: fmt.Sprintf("HTTP request failed: %v", err), transient: true}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to parse Graph response: %w", err)
			}
		}
		return nil
	}

	var errResp graphErrorResponse
	if jsonErr := json.Unmarshal(data, &errResp); jsonErr == nil && errResp.Error.Message != "" {
		return classifyError(resp.StatusCode, errResp.Error.Code, errResp.Error.Message, resp.Header.Get("Retry-After"))
	}
	return classifyError(resp.StatusCode, "", string(data), resp.Header.Get("Retry-After"))
}

// graphError is a Graph API failure classified for retry decisions.
type graphError struct {
	statusCode int
	code       string
	message    string
	permanent  bool
	transient  bool
	retryAfter string
}

func (e *graphError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// classifyError categorizes an HTTP error response for retry decisions.
func classifyError(statusCode int, code, message, retryAfter string) *graphError {
	err := &graphError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		retryAfter: retryAfter,
	}

	switch {
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		err.transient = true
	default:
		err.permanent = true
	}
	return err
}

func (m *Microsoft) retryAfterDelay(retryAfter string, attempt int) time.Duration {
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return m.backoffDelay(attempt)
}

// backoffDelay doubles baseDelay per attempt: 1s, 2s, 4s.
func (m *Microsoft) backoffDelay(attempt int) time.Duration {
	return m.baseDelay << attempt
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func createUserError(email string, err error) error {
	e := &Error{Provider: "microsoft", Err: err}

	var gErr *graphError
	if !errors.As(err, &gErr) || gErr.code == "" {
		e.Message = fmt.Sprintf("Microsoft API Error: %v", err)
		return e
	}
	e.Code = gErr.code

	switch {
	case strings.Contains(gErr.message, "userPrincipalName already exists"):
		e.Kind = ErrUserExists
		e.Message = fmt.Sprintf("User %s already exists in Microsoft 365.", email)
	case gErr.code == "Authorization_RequestDenied":
		e.Kind = ErrInsufficientPermissions
		e.Message = "Insufficient permissions to create Microsoft user. Please ensure the app has 'User.ReadWrite.All' and 'Directory.ReadWrite.All' permissions."
	case gErr.code == "Request_BadRequest" && strings.Contains(gErr.message, "Password"):
		e.Kind = ErrInvalidPassword
		e.Message = "Microsoft Password Error: Password does not meet complexity requirements."
	case gErr.code == "Request_BadRequest":
		e.Kind = ErrValidation
		e.Message = fmt.Sprintf("Microsoft Validation Error: %s", gErr.message)
	case gErr.code == "Directory_QuotaExceeded":
		e.Kind = ErrQuotaExceeded
		e.Message = "Microsoft Quota Exceeded: You have reached the maximum number of objects in your directory."
	default:
		e.Message = fmt.Sprintf("Microsoft Error (%s): %s", gErr.code, gErr.message)
	}
	return e
}

func assignLicenseError(sku string, err error) error {
	e := &Error{Provider: "microsoft", Err: err}

	var gErr *graphError
	if !errors.As(err, &gErr) || gErr.code == "" {
		e.Message = fmt.Sprintf("Failed to assign license: %v", err)
		return e
	}
	e.Code = gErr.code

	switch gErr.code {
	case "CountViolation":
		e.Kind = ErrNoSeats
		e.Message = fmt.Sprintf("License Error: No available seats for license '%s'. Please purchase more licenses.", sku)
	case "MutuallyExclusiveViolation":
		e.Kind = ErrLicenseConflict
		e.Message = fmt.Sprintf("License Error: The license '%s' conflicts with an existing license assigned to the user.", sku)
	default:
		e.Message = fmt.Sprintf("License Assignment Error (%s): %s", gErr.code, gErr.message)
	}
	return e
}

func adminUnitError(err error) error {
	e := &Error{Provider: "microsoft", Err: err}

	var gErr *graphError
	if !errors.As(err, &gErr) || gErr.code == "" {
		e.Message = fmt.Sprintf("Failed to add user to Administrative Unit: %v", err)
		return e
	}
	e.Code = gErr.code

	switch {
	case gErr.code == "Request_ResourceNotFound":
		e.Kind = ErrNotFound
		e.Message = "Administrative Unit not found. Please verify the Administrative Unit ID is correct."
	case gErr.code == "Authorization_RequestDenied":
		e.Kind = ErrInsufficientPermissions
		e.Message = "Insufficient permissions to add user to Administrative Unit. Please ensure the app has 'AdministrativeUnit.ReadWrite.All' permission."
	case strings.Contains(gErr.message, "already exist"):
		e.Kind = ErrAlreadyMember
		e.Message = "User is already a member of this Administrative Unit."
	default:
		e.Message = fmt.Sprintf("Administrative Unit Error (%s): %s", gErr.code, gErr.message)
	}
	return e
}
