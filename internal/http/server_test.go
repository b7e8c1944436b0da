package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"suryasakshi/internal/attachments"
	"suryasakshi/internal/auth"
	"suryasakshi/internal/log"
	"suryasakshi/internal/services"
	"suryasakshi/internal/storage/memory"

	"golang.org/x/crypto/bcrypt"
)

const testPassword = "hunter22"

type testEnv struct {
	srv    *Server
	store  *memory.Store
	cookie *http.Cookie
}

func newTestEnv(t *testing.T, loginRate int) *testEnv {
	t.Helper()

	store := memory.New()
	repos := services.Repositories{
		SilageSales:      store.SilageSales(),
		MaizePurchases:   store.MaizePurchases(),
		OtherExpenses:    store.OtherExpenses(),
		SoybeanPurchases: store.SoybeanPurchases(),
		SoybeanSales:     store.SoybeanSales(),
		Purchases:        store.Purchases(),
		Activity:         store,
	}
	files, err := attachments.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	verifier, err := auth.ParseUsers("admin:" + string(hash))
	if err != nil {
		t.Fatalf("ParseUsers() error = %v", err)
	}

	srv := NewServer(Options{
		Ledger:             services.NewLedger(repos, files, nil),
		Files:              files,
		Verifier:           verifier,
		Sessions:           auth.NewSessions(strings.Repeat("s", 32), time.Hour),
		LoginRatePerMinute: loginRate,
		MaxUploadBytes:     1 << 10,
		Logger:             log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
	})
	t.Cleanup(func() { srv.loginLimiter.Stop() })

	return &testEnv{srv: srv, store: store}
}

// login authenticates as ADMIN and keeps the session cookie.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", `{"username":"admin","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			e.cookie = c
		}
	}
	if e.cookie == nil {
		t.Fatal("login did not set a session cookie")
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func silageJSON(buyer string) string {
	return `{"buyer_name":"` + buyer + `","date_of_purchase":"` + today() +
		`","weight_kg":"1000","rate":"2.5","payment_status":"CASH","invoice_no":17}`
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCookie bool
	}{
		{"valid credentials", `{"username":"admin","password":"` + testPassword + `"}`, http.StatusOK, true},
		{"name is case-insensitive", `{"username":"Admin","password":"` + testPassword + `"}`, http.StatusOK, true},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized, false},
		{"unknown user", `{"username":"ghost","password":"` + testPassword + `"}`, http.StatusUnauthorized, false},
		{"malformed json", `{"username":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 100)
			rec := env.do(t, http.MethodPost, "/api/login", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			gotCookie := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == sessionCookie && c.Value != "" {
					gotCookie = true
					if !c.HttpOnly {
						t.Error("session cookie must be HttpOnly")
					}
				}
			}
			if gotCookie != tt.wantCookie {
				t.Errorf("cookie set = %v, want %v", gotCookie, tt.wantCookie)
			}

			if tt.wantStatus == http.StatusUnauthorized {
				body := decodeJSON[ErrorBody](t, rec)
				if body.Error != auth.ErrInvalidCredentials.Error() {
					t.Errorf("error = %q, want %q", body.Error, auth.ErrInvalidCredentials.Error())
				}
			}
		})
	}
}

func TestLoginForm(t *testing.T) {
	env := newTestEnv(t, 100)

	form := url.Values{"username": {"admin"}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	rec := env.send(req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("form login = %d to %q, want 303 to /", rec.Code, rec.Header().Get("Location"))
	}

	form.Set("password", "wrong")
	req = httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	rec = env.send(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad form login = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), auth.ErrInvalidCredentials.Error()) {
		t.Error("login page should show the generic credential error")
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)
	body := `{"username":"admin","password":"wrong"}`

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, "/api/login", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/login", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t, 100)

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{http.MethodGet, "/api/silage_sales", http.StatusUnauthorized},
		{http.MethodPost, "/api/purchases", http.StatusUnauthorized},
		{http.MethodGet, "/api/dashboard", http.StatusUnauthorized},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodGet, "/attachments/silage_sales/1.pdf", http.StatusUnauthorized},
		{http.MethodGet, "/", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	env.cookie = &http.Cookie{Name: sessionCookie, Value: "forged.token.value"}
	if rec := env.do(t, http.MethodGet, "/api/me", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("forged session status = %d, want 401", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	if rec := env.do(t, http.MethodGet, "/api/me", ""); rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", rec.Code)
	} else if got := decodeJSON[map[string]string](t, rec)["user"]; got != "ADMIN" {
		t.Errorf("user = %q, want ADMIN", got)
	}

	rec := env.do(t, http.MethodPost, "/api/logout", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout did not expire the session cookie")
	}
}

func TestRecordLifecycle(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	rec := env.do(t, http.MethodPost, "/api/silage_sales", silageJSON("Ramesh"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeJSON[map[string]any](t, rec)
	id := int64(created["id"].(float64))
	if id <= 0 {
		t.Fatalf("created id = %d", id)
	}
	if got := created["total_amount"]; got != "2500" {
		t.Errorf("total_amount = %v, want 2500", got)
	}
	if got := created["paid_amount"]; got != "2500" {
		t.Errorf("paid_amount = %v, want 2500", got)
	}

	path := "/api/silage_sales/" + strconv.FormatInt(id, 10)
	if rec := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, path, silageJSON("Suresh"))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSON[map[string]any](t, rec)["buyer_name"]; got != "Suresh" {
		t.Errorf("buyer_name = %v, want Suresh", got)
	}

	rec = env.do(t, http.MethodGet, "/api/silage_sales", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}
	list := decodeJSON[struct {
		Category string           `json:"category"`
		Records  []map[string]any `json:"records"`
	}](t, rec)
	if list.Category != "silage_sales" || len(list.Records) != 1 {
		t.Fatalf("list = %+v, want one silage sale", list)
	}

	rec = env.do(t, http.MethodGet, "/api/silage_sales?q=nobody", "")
	if got := decodeJSON[struct {
		Records []map[string]any `json:"records"`
	}](t, rec).Records; len(got) != 0 {
		t.Errorf("search for nobody returned %d records", len(got))
	}

	if rec := env.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/activity", "")
	acts := decodeJSON[[]map[string]any](t, rec)
	if len(acts) != 3 {
		t.Fatalf("activity entries = %d, want 3", len(acts))
	}
	if acts[0]["action"] != "deleted" {
		t.Errorf("newest activity = %v, want deleted", acts[0]["action"])
	}
}

func TestRecordErrors(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown category", http.MethodGet, "/api/wheat_sales", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/silage_sales", `{"buyer_name":`, http.StatusBadRequest},
		{"missing buyer", http.MethodPost, "/api/silage_sales", silageJSON(""), http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/other_expenses",
			`{"expense_name":"Diesel","date_of_expense":"` + today() + `","amount":"-5"}`, http.StatusUnprocessableEntity},
		{"invalid id", http.MethodGet, "/api/silage_sales/abc", "", http.StatusBadRequest},
		{"get missing", http.MethodGet, "/api/silage_sales/99", "", http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/silage_sales/99", silageJSON("Ramesh"), http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/silage_sales/99", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	rec := env.do(t, http.MethodGet, "/api/silage_sales/export", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty export status = %d, want 404", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/api/silage_sales", silageJSON("Ramesh")); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/silage_sales/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header plus one row:\n%s", len(lines), rec.Body.String())
	}
	if !strings.Contains(lines[1], "Ramesh") {
		t.Errorf("row = %q, want buyer Ramesh", lines[1])
	}
}

func TestPeriodSelection(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	rec := env.do(t, http.MethodGet, "/api/period", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get period status = %d", rec.Code)
	}
	got := decodeJSON[map[string]any](t, rec)
	if int(got["year"].(float64)) != time.Now().Year() {
		t.Errorf("default year = %v", got["year"])
	}

	rec = env.do(t, http.MethodPut, "/api/period", `{"year":2023,"month":12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set period status = %d", rec.Code)
	}
	got = decodeJSON[map[string]any](t, rec)
	if got["year"].(float64) != 2023 || got["month"].(float64) != 12 {
		t.Errorf("period = %v, want 2023 full year", got)
	}

	rec = env.do(t, http.MethodGet, "/api/period", "")
	got = decodeJSON[map[string]any](t, rec)
	if got["year"].(float64) != 2023 {
		t.Errorf("selection not kept: %v", got)
	}

	rec = env.do(t, http.MethodPut, "/api/period", `{"month":42}`)
	got = decodeJSON[map[string]any](t, rec)
	if got["month"].(float64) != 12 {
		t.Errorf("out-of-range month changed selection: %v", got)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	if rec := env.do(t, http.MethodPost, "/api/silage_sales", silageJSON("Ramesh")); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2500") {
		t.Errorf("dashboard should include the new sale's revenue: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("index Content-Type = %q", ct)
	}
}

func uploadRequest(t *testing.T, path string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "invoice.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAttachmentUpload(t *testing.T) {
	env := newTestEnv(t, 100)
	env.login(t)

	rec := env.do(t, http.MethodPost, "/api/silage_sales", silageJSON("Ramesh"))
	id := strconv.FormatInt(int64(decodeJSON[map[string]any](t, rec)["id"].(float64)), 10)
	pdf := []byte("%PDF-1.4\n%test\n")

	tests := []struct {
		name       string
		path       string
		content    []byte
		wantStatus int
	}{
		{"not a pdf", "/api/silage_sales/" + id + "/attachment", []byte("hello there"), http.StatusUnsupportedMediaType},
		{"too large", "/api/silage_sales/" + id + "/attachment", append(append([]byte{}, pdf...), make([]byte, 2<<10)...), http.StatusRequestEntityTooLarge},
		{"missing record", "/api/silage_sales/99/attachment", pdf, http.StatusNotFound},
		{"category without files", "/api/other_expenses/1/attachment", pdf, http.StatusBadRequest},
		{"valid pdf", "/api/silage_sales/" + id + "/attachment", pdf, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.send(uploadRequest(t, tt.path, tt.content))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	rec = env.do(t, http.MethodGet, "/api/silage_sales/"+id, "")
	link, _ := decodeJSON[map[string]any](t, rec)["attachment_url"].(string)
	if !strings.HasPrefix(link, attachments.URLPrefix) {
		t.Fatalf("attachment_url = %q", link)
	}

	rec = env.do(t, http.MethodGet, link, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), pdf) {
		t.Errorf("downloaded %q, want uploaded bytes", rec.Body.Bytes())
	}

	if rec := env.do(t, http.MethodGet, attachments.URLPrefix+"silage_sales/404.pdf", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing attachment status = %d, want 404", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || decodeJSON[map[string]string](t, rec)["status"] != "ok" {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "http_requests_total 3") {
		t.Errorf("metrics should count earlier requests:\n%s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodGet, "/login", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<form") {
		t.Fatalf("login page = %d", rec.Code)
	}

	env.login(t)
	rec = env.do(t, http.MethodGet, "/login", "")
	if rec.Code != http.StatusSeeOther {
		t.Errorf("logged-in login page = %d, want 303", rec.Code)
	}
}
