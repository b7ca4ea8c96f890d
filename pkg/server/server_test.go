package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/logger"
	"github.com/perarneng/autoboard/pkg/parser"
	"github.com/perarneng/autoboard/pkg/provision"
	"github.com/perarneng/autoboard/pkg/ratelimit"
)

type fakeProvisioner struct {
	err      error
	accounts []interfaces.Account
	opts     []provision.Options
	licenses []interfaces.License
}

func (f *fakeProvisioner) Onboard(ctx context.Context, a interfaces.Account, opts provision.Options) (*provision.Result, error) {
	f.accounts = append(f.accounts, a)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return &provision.Result{Errors: []string{f.err.Error()}}, f.err
	}
	return &provision.Result{
		Success:           true,
		Google:            &interfaces.CreatedUser{Provider: "google", ID: "g-1", Email: a.Email},
		Microsoft:         &interfaces.CreatedUser{Provider: "microsoft", ID: "m-1", Email: a.Email, LicenseAssigned: opts.AssignLicense},
		Errors:            []string{},
		TemporaryPassword: a.Password,
	}, nil
}

func (f *fakeProvisioner) Licenses(ctx context.Context) ([]interfaces.License, error) {
	if f.licenses == nil {
		return nil, provision.ErrNotConfigured
	}
	return f.licenses, nil
}

type testEnv struct {
	handler http.Handler
	prov    *fakeProvisioner
	audit   *audit.Log
}

func newTestEnv(t *testing.T, apiKey string, limit int) *testEnv {
	t.Helper()
	auditLog, err := audit.Open(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatal(err)
	}
	prov := &fakeProvisioner{}
	p := parser.NewParser(parser.Options{Domain: "example.org", Logger: logger.Nop{}})
	srv := New(p, prov, ratelimit.New(limit, time.Hour), auditLog, logger.Nop{}, Options{
		APIKey:       apiKey,
		Provisioning: provision.Options{AssignLicense: true, LicenseSKU: "O365_BUSINESS_PREMIUM"},
	})
	return &testEnv{handler: srv.Handler(), prov: prov, audit: auditLog}
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (e *testEnv) events(t *testing.T) []audit.Event {
	t.Helper()
	events, err := e.audit.Recent(100)
	if err != nil {
		t.Fatal(err)
	}
	return events
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "secret", 10)
	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAPIKey(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "secret", 10)

	rec := env.do(t, http.MethodGet, "/api/rate-limit/status", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != "Unauthorized - invalid API key" {
		t.Errorf("error = %v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/rate-limit/status", "", map[string]string{"X-API-Key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/rate-limit/status", "", map[string]string{"X-API-Key": "secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("right key: status = %d", rec.Code)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)

	body := `{"messageId":"m1","subject":"New Hire Onboarding: Ana Souza - Engineer - Brazil","body":"Full Legal Name: Ana Souza\nDepartment: Platform"}`
	rec := env.do(t, http.MethodPost, "/api/parse", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode(t, rec)
	if got["primaryEmail"] != "ana@example.org" || got["usageLocation"] != "BR" || got["department"] != "Platform" {
		t.Errorf("record = %v", got)
	}
	if got["password"] != "" {
		t.Errorf("password exposed: %v", got["password"])
	}
}

func TestParse_MissingName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)

	rec := env.do(t, http.MethodPost, "/api/parse", `{"subject":"Hello","body":"Position: Engineer"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	events := env.events(t)
	if len(events) != 1 || events[0].Action != audit.ActionParseFailed {
		t.Errorf("events = %+v", events)
	}
}

func TestParse_BadJSON(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)
	if rec := env.do(t, http.MethodPost, "/api/parse", `{"subject":`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestOnboard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)

	body := `{"firstName":"Ana","lastName":"Souza","jobTitle":"Engineer","department":"Platform","usageLocation":"br","performedBy":"hr@example.org"}`
	rec := env.do(t, http.MethodPost, "/api/onboard", body, map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q", got)
	}

	got := decode(t, rec)
	if got["success"] != true || got["temporaryPassword"] == "" {
		t.Errorf("response = %v", got)
	}
	record := got["record"].(map[string]any)
	if record["primaryEmail"] != "ana@example.org" || record["password"] != "" {
		t.Errorf("record = %v", record)
	}

	account := env.prov.accounts[0]
	if account.Email != "ana@example.org" || account.UsageLocation != "BR" || account.JobTitle != "Engineer" || account.Password == "" {
		t.Errorf("account = %+v", account)
	}
	if !env.prov.opts[0].AssignLicense {
		t.Error("default license assignment not applied")
	}

	events := env.events(t)
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	e := events[0]
	if e.Action != audit.ActionUserCreated || !e.Success || e.IPAddress != "203.0.113.7" || e.PerformedBy != "hr@example.org" || e.TargetEmail != "ana@example.org" {
		t.Errorf("event = %+v", e)
	}
}

func TestOnboard_LicenseOptOut(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)

	rec := env.do(t, http.MethodPost, "/api/onboard", `{"fullName":"Ana Souza","assignLicense":false}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.prov.opts[0].AssignLicense {
		t.Error("assignLicense=false ignored")
	}
}

func TestOnboard_RateLimited(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 1)
	body := `{"firstName":"Ana","lastName":"Souza"}`
	headers := map[string]string{"X-Real-IP": "198.51.100.4"}

	if rec := env.do(t, http.MethodPost, "/api/onboard", body, headers); rec.Code != http.StatusOK {
		t.Fatalf("first: status = %d", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/onboard", body, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status = %d", rec.Code)
	}

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry <= 0 || retry > 3600 {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("headers = %v", rec.Header())
	}
	msg, _ := decode(t, rec)["error"].(string)
	if !strings.HasPrefix(msg, "Rate limit exceeded. You can only create 1 users per hour.") {
		t.Errorf("error = %q", msg)
	}

	if len(env.prov.accounts) != 1 {
		t.Errorf("provisioner called %d times", len(env.prov.accounts))
	}
	events := env.events(t)
	if len(events) != 2 || events[1].Action != audit.ActionRateLimited || events[1].IPAddress != "198.51.100.4" {
		t.Errorf("events = %+v", events)
	}
}

func TestOnboard_MissingName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)
	rec := env.do(t, http.MethodPost, "/api/onboard", `{"jobTitle":"Engineer"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if len(env.prov.accounts) != 0 {
		t.Error("provisioner called without a name")
	}
}

func TestOnboard_Failure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)
	env.prov.err = &provision.Error{Message: "User ana@example.org already exists in Google Workspace.", Kind: provision.ErrUserExists}

	rec := env.do(t, http.MethodPost, "/api/onboard", `{"firstName":"Ana","lastName":"Souza"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode(t, rec)
	if got["success"] != false {
		t.Errorf("response = %v", got)
	}
	events := env.events(t)
	if len(events) != 1 || events[0].Action != audit.ActionUserCreationFailed || events[0].Success {
		t.Errorf("events = %+v", events)
	}
}

func TestRateLimitCheckAndStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 2)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/rate-limit/check", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("check %d: status = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/rate-limit/check", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third check: status = %d", rec.Code)
	}

	// A named identifier has its own window.
	rec = env.do(t, http.MethodPost, "/api/rate-limit/check", `{"identifier":"workflow-7"}`, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("named identifier: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/rate-limit/status", "", nil)
	got := decode(t, rec)
	if got["remaining"] != float64(0) || got["limit"] != float64(2) || got["count"] != float64(3) {
		t.Errorf("status = %v", got)
	}
	rec = env.do(t, http.MethodGet, "/api/rate-limit/status?identifier=workflow-7", "", nil)
	if got := decode(t, rec); got["remaining"] != float64(1) {
		t.Errorf("workflow-7 status = %v", got)
	}
}

func TestAuditLog(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)

	rec := env.do(t, http.MethodPost, "/api/audit/log", `{"action":"USER_CREATED"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing target: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/audit/log", `{"action":"USER_CREATED","targetEmail":"Bo@Example.org","details":{"ticket":"HR-1"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/api/audit/log?limit=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var got struct {
		Events     []audit.Event   `json:"events"`
		Suspicious audit.Suspicion `json:"suspicious"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Events) != 1 {
		t.Fatalf("events = %+v", got.Events)
	}
	e := got.Events[0]
	if e.TargetEmail != "bo@example.org" || !e.Success || e.PerformedBy != "n8n-workflow" || e.Details["source"] != "api" || e.Details["ticket"] != "HR-1" {
		t.Errorf("event = %+v", e)
	}
	if got.Suspicious.Suspicious {
		t.Error("one creation flagged as suspicious")
	}

	if rec := env.do(t, http.MethodGet, "/api/audit/log?limit=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d", rec.Code)
	}
}

func TestLicenses(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", 10)

	rec := env.do(t, http.MethodGet, "/api/licenses", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"licenses":[]`) {
		t.Errorf("not configured: %d %s", rec.Code, rec.Body)
	}

	env.prov.licenses = []interfaces.License{{SKUPartNumber: "O365_BUSINESS_PREMIUM", Total: 10, Consumed: 4, Remaining: 6}}
	rec = env.do(t, http.MethodGet, "/api/licenses", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"remaining":6`) {
		t.Errorf("configured: %d %s", rec.Code, rec.Body)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"}, "127.0.0.1:5000", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "127.0.0.1:5000", "198.51.100.2"},
		{"remote", nil, "192.0.2.1:4242", "192.0.2.1"},
		{"empty", nil, "", "unknown"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		for k, v := range tt.headers {
			r.Header.Set(k, v)
		}
		if got := clientIP(r); got != tt.want {
			t.Errorf("%s: clientIP = %q, want %q", tt.name, got, tt.want)
		}
	}
}
