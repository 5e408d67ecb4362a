package formhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/middleware"
	"github.com/vango-dev/formstate/pkg/schema"
	"github.com/vango-dev/formstate/pkg/upload"
)

const contactSchema = `
id: contact
fields:
  - name: name
    kind: text
    rules:
      - {rule: required, message: "Name is required"}
  - name: message
    kind: textarea
    rules:
      - {rule: maxLength, value: 40}
  - name: plan
    kind: select
    options: [free, pro]
  - name: subscribe
    kind: checkbox
  - name: tags
    kind: checkboxGroup
  - name: avatar
    kind: file
`

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	sch, err := schema.Parse([]byte(contactSchema), "contact.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	reg := schema.NewRegistry()
	if err := reg.Add(sch); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return reg
}

type submission struct {
	formID string
	values form.Values
	files  map[string]*upload.Stored
}

// newTestServer returns a server whose submissions are appended to got.
func newTestServer(t *testing.T, config Config) (*Server, *[]submission) {
	t.Helper()
	var got []submission
	if config.Schemas == nil {
		config.Schemas = testRegistry(t)
	}
	if config.OnSubmit == nil {
		config.OnSubmit = func(ctx context.Context, formID string, values form.Values, files map[string]*upload.Stored) error {
			got = append(got, submission{formID, values, files})
			return nil
		}
	}
	return New(config), &got
}

func postForm(s http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestSubmit_Valid(t *testing.T) {
	s, got := newTestServer(t, Config{})

	rec := postForm(s, "/forms/contact/submit", url.Values{
		"name":    {"Ada"},
		"message": {"Hello"},
		"plan":    {"pro"},
		"tags":    {"a", "b"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	if len(*got) != 1 {
		t.Fatalf("OnSubmit called %d times, want 1", len(*got))
	}
	sub := (*got)[0]
	if sub.formID != "contact" {
		t.Errorf("formID = %q, want contact", sub.formID)
	}
	want := form.Values{
		"name":      "Ada",
		"message":   "Hello",
		"plan":      "pro",
		"subscribe": false,
		"tags":      []string{"a", "b"},
		"avatar":    (*form.FileValue)(nil),
	}
	if diff := cmp.Diff(want, sub.values); diff != "" {
		t.Errorf("submitted values (-want +got):\n%s", diff)
	}

	var resp struct {
		Values map[string]any `json:"values"`
	}
	decode(t, rec, &resp)
	if resp.Values["name"] != "Ada" {
		t.Errorf("response name = %v, want Ada", resp.Values["name"])
	}
}

func TestSubmit_Invalid(t *testing.T) {
	s, got := newTestServer(t, Config{})

	rec := postForm(s, "/forms/contact/submit", url.Values{
		"message": {strings.Repeat("x", 41)},
		"plan":    {"enterprise"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
	if len(*got) != 0 {
		t.Fatalf("OnSubmit called for an invalid form")
	}

	var resp errorsResponse
	decode(t, rec, &resp)
	want := map[string]string{
		"name":    "Name is required",
		"message": "Must be at most 40 characters",
		"plan":    "Invalid selection",
	}
	if diff := cmp.Diff(want, resp.Errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestSubmit_Sanitizes(t *testing.T) {
	s, got := newTestServer(t, Config{})

	rec := postForm(s, "/forms/contact/submit", url.Values{
		"name":    {"<b>Ada</b> & Bob"},
		"message": {`<script>alert("x")</script>Hi`},
		"plan":    {"free"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	values := (*got)[0].values
	if values["name"] != "Ada & Bob" {
		t.Errorf("name = %q, want %q", values["name"], "Ada & Bob")
	}
	if values["message"] != "Hi" {
		t.Errorf("message = %q, want %q", values["message"], "Hi")
	}

	rec = postForm(s, "/forms/contact/submit", url.Values{
		"name":    {"&lt;b&gt;Ada&lt;/b&gt;"},
		"message": {"&lt;script&gt;alert(1)&lt;/script&gt;Hi"},
		"plan":    {"free"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "script") {
		t.Errorf("response carries encoded markup: %s", rec.Body)
	}
	values = (*got)[1].values
	if values["name"] != "Ada" {
		t.Errorf("name = %q, want %q", values["name"], "Ada")
	}
	if values["message"] != "Hi" {
		t.Errorf("message = %q, want %q", values["message"], "Hi")
	}
}

func TestSanitizerText(t *testing.T) {
	z := newSanitizer(nil)
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"Q&A", "Q&A"},
		{"a < b", "a < b"},
		{`say "hi"`, `say "hi"`},
		{"<b>bold</b>", "bold"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"&amp;lt;b&amp;gt;", ""},
		{"<<b></b>script>alert(1)<<b></b>/script>", ""},
		{"&l<i></i>t;b&g<i></i>t;x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := z.text(tt.in)
			if got != tt.want {
				t.Errorf("text(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := z.text(got); again != got {
				t.Errorf("text(%q) = %q, not stable", got, again)
			}
		})
	}
}

func TestSubmit_JSONBody(t *testing.T) {
	s, got := newTestServer(t, Config{})

	body := `{"name":"Ada","subscribe":true,"tags":["go"],"unknown":1}`
	req := httptest.NewRequest(http.MethodPost, "/forms/contact/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	values := (*got)[0].values
	if values["subscribe"] != true {
		t.Errorf("subscribe = %v, want true", values["subscribe"])
	}
	if _, ok := values["unknown"]; ok {
		t.Error("unknown field was accepted")
	}
}

func TestSubmit_BadJSON(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/forms/contact/submit", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Error.Code != "F140" {
		t.Errorf("code = %q, want F140", resp.Error.Code)
	}
}

func TestSubmit_UnknownForm(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := postForm(s, "/forms/nope/submit", url.Values{})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Error.Code != "F106" {
		t.Errorf("code = %q, want F106", resp.Error.Code)
	}
}

func TestSubmit_HandlerFailure(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		s, _ := newTestServer(t, Config{
			OnSubmit: func(context.Context, string, form.Values, map[string]*upload.Stored) error {
				return fmt.Errorf("database down")
			},
		})
		rec := postForm(s, "/forms/contact/submit", url.Values{"name": {"Ada"}})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "database down") {
			t.Errorf("body %q does not mention the cause", rec.Body)
		}
	})

	t.Run("panic", func(t *testing.T) {
		s, _ := newTestServer(t, Config{
			OnSubmit: func(context.Context, string, form.Values, map[string]*upload.Stored) error {
				panic("boom")
			},
		})
		rec := postForm(s, "/forms/contact/submit", url.Values{"name": {"Ada"}})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})
}

func TestSubmit_LogsFormOnce(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestServer(t, Config{
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
		OnSubmit: func(context.Context, string, form.Values, map[string]*upload.Stored) error {
			return fmt.Errorf("database down")
		},
	})
	postForm(s, "/forms/contact/submit", url.Values{"name": {"Ada"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var logged bool
	for _, line := range lines {
		if !strings.Contains(line, "submit handler failed") {
			continue
		}
		logged = true
		if n := strings.Count(line, "form=contact"); n != 1 {
			t.Errorf("form attribute appears %d times: %s", n, line)
		}
	}
	if !logged {
		t.Fatalf("handler failure not logged:\n%s", buf.String())
	}
}

func TestSubmit_MultipartFile(t *testing.T) {
	dir := t.TempDir()
	store, err := upload.NewDiskStore(dir, 1<<20)
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	s, got := newTestServer(t, Config{Store: store})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Ada")
	fw, err := mw.CreateFormFile("avatar", "Me.PNG")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("png bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/forms/contact/submit", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	files := (*got)[0].files
	stored := files["avatar"]
	if stored == nil {
		t.Fatalf("avatar not stored: %v", files)
	}
	if stored.Filename != "Me.PNG" || stored.Size != int64(len("png bytes")) {
		t.Errorf("stored = %+v", stored)
	}
	if !strings.HasPrefix(stored.Key, "contact/avatar/") || !strings.HasSuffix(stored.Key, ".png") {
		t.Errorf("key = %q", stored.Key)
	}
	data, err := os.ReadFile(stored.Location)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "png bytes" {
		t.Errorf("stored content = %q", data)
	}

	var resp submitResponse
	decode(t, rec, &resp)
	if resp.Files["avatar"] == nil || resp.Files["avatar"].Key != stored.Key {
		t.Errorf("response files = %+v", resp.Files)
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	store, err := upload.NewDiskStore(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}
	s, got := newTestServer(t, Config{Store: store})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Ada")
	fw, _ := mw.CreateFormFile("avatar", "big.txt")
	fw.Write([]byte("more than four bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/forms/contact/submit", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(*got) != 0 {
		t.Error("OnSubmit called after the store failed")
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Error.Code != "F142" {
		t.Errorf("code = %q, want F142", resp.Error.Code)
	}
}

func TestValidate_PresentFieldsOnly(t *testing.T) {
	s, got := newTestServer(t, Config{})

	rec := postForm(s, "/forms/contact/validate", url.Values{
		"message": {strings.Repeat("x", 41)},
		"plan":    {"free"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp validateResponse
	decode(t, rec, &resp)
	if resp.Valid {
		t.Error("Valid = true, want false")
	}
	want := map[string]string{"message": "Must be at most 40 characters", "plan": ""}
	if diff := cmp.Diff(want, resp.Errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if len(*got) != 0 {
		t.Error("validate submitted the form")
	}
}

func TestListAndSchema(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/", nil))
	var list struct {
		Forms []string `json:"forms"`
	}
	decode(t, rec, &list)
	if diff := cmp.Diff([]string{"contact"}, list.Forms); diff != "" {
		t.Errorf("forms (-want +got):\n%s", diff)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms/contact/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("schema status = %d", rec.Code)
	}
	var sch schema.Schema
	decode(t, rec, &sch)
	if sch.ID != "contact" || len(sch.Fields) != 6 {
		t.Errorf("schema = %+v", sch)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, _ := newTestServer(t, Config{
		Metrics:  middleware.NewMetrics(middleware.WithRegistry(reg), middleware.WithNamespace("test")),
		Gatherer: reg,
	})

	postForm(s, "/forms/contact/submit", url.Values{"name": {"Ada"}})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := `test_http_requests_total{code="200",method="POST",route="/forms/{id}/submit"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q:\n%s", want, rec.Body)
	}
}
