package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"budgetwatch/internal/auth"
	"budgetwatch/internal/core"
	"budgetwatch/internal/entry"
	"budgetwatch/internal/mail"
	"budgetwatch/internal/storage"
	"budgetwatch/internal/summary"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenSigner([]byte("0123456789abcdef0123456789abcdef"), 30*time.Minute)
	authSvc := auth.NewService(repo, mail.LogMailer{}, tokens, 12*time.Hour, 30*24*time.Hour, "http://localhost:8081")
	entrySvc := entry.NewService(repo)
	summarySvc := summary.NewService(repo)

	s := NewServer(":0", authSvc, entrySvc, summarySvc, false)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, repo
}

func newClient(t *testing.T, ts *httptest.Server) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	c := *ts.Client()
	c.Jar = jar
	return &c
}

// registerAndLogin creates an account through the public endpoints and
// leaves the client with a valid session cookie.
func registerAndLogin(t *testing.T, ts *httptest.Server, c *http.Client, username, email string) {
	t.Helper()

	resp, err := c.PostForm(ts.URL+"/register", url.Values{
		"username": {username},
		"email":    {email},
		"password": {"hunter22"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()

	resp, err = c.PostForm(ts.URL+"/login", url.Values{
		"email":    {email},
		"password": {"hunter22"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login final status = %d", resp.StatusCode)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK || body != want {
			t.Errorf("GET %s = %d %q, want 200 %q", path, resp.StatusCode, body, want)
		}
	}
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()

	c := *ts.Client()
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	for _, path := range []string{"/", "/home", "/summary", "/settings", "/entries/1/update"} {
		resp, err := c.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Errorf("GET %s = %d -> %q, want 303 -> /login", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	resp, err := c.Get(ts.URL + "/home")
	if err != nil {
		t.Fatalf("GET /home: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /home = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "Add an Entry") {
		t.Errorf("home page missing entry form")
	}
}

func TestLoginFailure(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")
	c.Jar, _ = cookiejar.New(nil)

	resp, err := c.PostForm(ts.URL+"/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "Login unsuccessful") {
		t.Errorf("expected failure notice on login page")
	}

	// Still anonymous
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/home", nil)
	noRedirect := *ts.Client()
	noRedirect.Jar = c.Jar
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp2, err := noRedirect.Do(req)
	if err != nil {
		t.Fatalf("GET /home: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusSeeOther {
		t.Errorf("GET /home after failed login = %d, want 303", resp2.StatusCode)
	}
}

func TestCreateEntryAndSummary(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	for _, form := range []url.Values{
		{"item": {"coffee"}, "category": {"food"}, "price": {"4.50"}, "location": {"Cafe"}},
		{"item": {"bus ticket"}, "category": {"transport"}, "price": {"2.00"}, "location": {"Station"}},
	} {
		resp, err := c.PostForm(ts.URL+"/home", form)
		if err != nil {
			t.Fatalf("POST /home: %v", err)
		}
		body := readBody(t, resp)
		if !strings.Contains(body, "Entry added!") {
			t.Fatalf("expected success notice, got page without it")
		}
	}

	now := time.Now().UTC()
	resp, err := c.Get(ts.URL + "/summary?year=" + strconv.Itoa(now.Year()) + "&month=" + strconv.Itoa(int(now.Month())))
	if err != nil {
		t.Fatalf("GET /summary: %v", err)
	}
	body := readBody(t, resp)

	for _, want := range []string{"Coffee", "Bus ticket", "Food", "Transport", "$4.50", "$2.00", "$6.50"} {
		if !strings.Contains(body, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestEntryValidationNotice(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	resp, err := c.PostForm(ts.URL+"/home", url.Values{
		"item": {"coffee"}, "category": {"food"}, "price": {"-1"}, "location": {"Cafe"},
	})
	if err != nil {
		t.Fatalf("POST /home: %v", err)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "valid non-negative price") {
		t.Errorf("expected price validation notice")
	}
}

func TestEntryOwnership(t *testing.T) {
	s, repo := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()

	alice, err := repo.CreateUser(context.Background(), "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	e, err := repo.CreateEntry(context.Background(), core.Entry{
		Item: "Coffee", Category: "Food", Price: core.Money{Cents: 450},
		Location: "Cafe", DatePosted: time.Now().UTC(), UserID: alice.ID,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	c := newClient(t, ts)
	registerAndLogin(t, ts, c, "bob", "bob@example.com")

	id := strconv.FormatInt(e.ID, 10)
	resp, err := c.Get(ts.URL + "/entries/" + id + "/update")
	if err != nil {
		t.Fatalf("GET update: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("GET update for foreign entry = %d, want 403", resp.StatusCode)
	}

	resp, err = c.PostForm(ts.URL+"/entries/"+id+"/delete", url.Values{})
	if err != nil {
		t.Fatalf("POST delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("POST delete for foreign entry = %d, want 403", resp.StatusCode)
	}

	// The entry must still exist
	if _, err := repo.GetEntry(context.Background(), e.ID); err != nil {
		t.Errorf("entry gone after forbidden delete: %v", err)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	resp, err := c.PostForm(ts.URL+"/home", url.Values{
		"item": {"coffee"}, "category": {"food"}, "price": {"4.50"}, "location": {"Cafe"},
	})
	if err != nil {
		t.Fatalf("POST /home: %v", err)
	}
	resp.Body.Close()

	// Find the entry id on the summary page edit link
	resp, err = c.Get(ts.URL + "/summary")
	if err != nil {
		t.Fatalf("GET /summary: %v", err)
	}
	body := readBody(t, resp)
	marker := `/entries/`
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no entry link on summary page")
	}
	rest := body[i+len(marker):]
	id := rest[:strings.Index(rest, "/")]

	resp, err = c.PostForm(ts.URL+"/entries/"+id+"/update", url.Values{
		"item": {"espresso"}, "category": {"food"}, "price": {"3.00"}, "location": {"Cafe"},
	})
	if err != nil {
		t.Fatalf("POST update: %v", err)
	}
	body = readBody(t, resp)
	if !strings.Contains(body, "Espresso") || !strings.Contains(body, "$3.00") {
		t.Errorf("summary does not reflect the update")
	}

	resp, err = c.PostForm(ts.URL+"/entries/"+id+"/delete", url.Values{})
	if err != nil {
		t.Fatalf("POST delete: %v", err)
	}
	body = readBody(t, resp)
	if strings.Contains(body, "Espresso") {
		t.Errorf("deleted entry still on summary page")
	}
}

func TestUpdateEntryDateMovesMonth(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	resp, err := c.PostForm(ts.URL+"/home", url.Values{
		"item": {"coffee"}, "category": {"food"}, "price": {"4.50"},
		"location": {"Cafe"}, "date": {"2024-03-05"},
	})
	if err != nil {
		t.Fatalf("POST /home: %v", err)
	}
	resp.Body.Close()

	resp, err = c.Get(ts.URL + "/summary?year=2024&month=3")
	if err != nil {
		t.Fatalf("GET /summary: %v", err)
	}
	body := readBody(t, resp)
	marker := `/entries/`
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no entry link on March summary page")
	}
	rest := body[i+len(marker):]
	id := rest[:strings.Index(rest, "/")]

	// The edit form must prefill the posted date
	resp, err = c.Get(ts.URL + "/entries/" + id + "/update")
	if err != nil {
		t.Fatalf("GET update form: %v", err)
	}
	if body = readBody(t, resp); !strings.Contains(body, `value="2024-03-05"`) {
		t.Errorf("update form does not prefill the date")
	}

	resp, err = c.PostForm(ts.URL+"/entries/"+id+"/update", url.Values{
		"item": {"coffee"}, "category": {"food"}, "price": {"4.50"},
		"location": {"Cafe"}, "date": {"2024-04-10"},
	})
	if err != nil {
		t.Fatalf("POST update: %v", err)
	}
	resp.Body.Close()

	resp, err = c.Get(ts.URL + "/summary?year=2024&month=3")
	if err != nil {
		t.Fatalf("GET /summary: %v", err)
	}
	if body = readBody(t, resp); strings.Contains(body, "Coffee") {
		t.Errorf("entry still on March summary after moving to April")
	}

	resp, err = c.Get(ts.URL + "/summary?year=2024&month=4")
	if err != nil {
		t.Fatalf("GET /summary: %v", err)
	}
	if body = readBody(t, resp); !strings.Contains(body, "Coffee") {
		t.Errorf("entry missing from April summary after date change")
	}
}

func TestLogout(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	resp, err := c.Get(ts.URL + "/logout")
	if err != nil {
		t.Fatalf("GET /logout: %v", err)
	}
	resp.Body.Close()

	noRedirect := *ts.Client()
	noRedirect.Jar = c.Jar
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err = noRedirect.Get(ts.URL + "/home")
	if err != nil {
		t.Fatalf("GET /home: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("GET /home after logout = %d, want 303", resp.StatusCode)
	}
}

func TestLoggedInUserSkipsLoginPage(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()
	c := newClient(t, ts)

	registerAndLogin(t, ts, c, "alice", "alice@example.com")

	noRedirect := *ts.Client()
	noRedirect.Jar = c.Jar
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	for _, path := range []string{"/login", "/register", "/reset_password"} {
		resp, err := noRedirect.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/home" {
			t.Errorf("GET %s while logged in = %d -> %q, want 303 -> /home", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Server.Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("61st request within a minute should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients must not be affected")
	}
}
