package errors

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "form error",
			code:    "F002",
			wantMsg: "Field is not registered",
			wantCat: CategoryForm,
		},
		{
			name:    "schema error",
			code:    "F101",
			wantMsg: "Unknown validation rule",
			wantCat: CategorySchema,
		},
		{
			name:    "config error",
			code:    "F120",
			wantMsg: "Invalid formstate.json",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "F999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	err := New("F002").WithDetail(`field "email"`)
	want := `F002: Field is not registered (field "email")`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = Newf(CategoryCLI, "bad flag %q", "--x")
	if got := err.Error(); got != `bad flag "--x"` {
		t.Errorf("Error() = %q", got)
	}
}

func TestError_Is(t *testing.T) {
	sentinel := New("F002")
	err := New("F002").WithDetail("name")

	if !stderrors.Is(err, sentinel) {
		t.Error("errors with the same code should match")
	}
	if stderrors.Is(New("F001"), sentinel) {
		t.Error("errors with different codes should not match")
	}
	if stderrors.Is(Newf(CategoryForm, "x"), Newf(CategoryForm, "x")) {
		t.Error("uncoded errors should not match by code")
	}
}

func TestError_Wrap(t *testing.T) {
	inner := stderrors.New("disk full")
	err := New("F120").Wrap(inner)

	if !stderrors.Is(err, inner) {
		t.Error("wrapped error should be found by errors.Is")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Error() should include cause, got %q", err.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "F120") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("F101")
	if FromError(orig, "F120") != orig {
		t.Error("FromError should return *Error unchanged")
	}

	wrapped := FromError(stderrors.New("boom"), "F120")
	if wrapped.Code != "F120" {
		t.Errorf("Code = %q, want F120", wrapped.Code)
	}
}

func TestWithLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signup.yaml")
	content := "id: signup\nfields:\n  - name: email\n    rules:\n      - rule: bogus\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("F101").WithLocation(path, 5, 15)
	if err.Location.Line != 5 || err.Location.Column != 15 {
		t.Errorf("Location = %v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Fatal("expected context lines")
	}

	DisableColors()
	defer EnableColors()

	out := err.Format()
	if !strings.Contains(out, "rule: bogus") {
		t.Errorf("Format() should include the offending line:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("Format() should include a column marker:\n%s", out)
	}
	if !strings.Contains(out, "Hint:") {
		t.Errorf("Format() should include the suggestion:\n%s", out)
	}
}

func TestLocation_String(t *testing.T) {
	var nilLoc *Location
	if nilLoc.String() != "" {
		t.Error("nil location should format as empty string")
	}
	if got := (&Location{File: "a.yaml", Line: 3}).String(); got != "a.yaml:3" {
		t.Errorf("String() = %q", got)
	}
	if got := (&Location{File: "a.yaml", Line: 3, Column: 7}).String(); got != "a.yaml:3:7" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("F101")
	err.Location = &Location{File: "f.yaml", Line: 2}
	if got := err.FormatCompact(); got != "f.yaml:2: F101: Unknown validation rule" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestPayload(t *testing.T) {
	p := New("F140").WithDetail("bad multipart").Payload()
	if p.Code != "F140" || p.Category != CategoryTransport || p.Detail != "bad multipart" {
		t.Errorf("Payload() = %+v", p)
	}

	p = New("F142").Wrap(stderrors.New("disk full")).Payload()
	if p.Detail != "disk full" {
		t.Errorf("Payload().Detail = %q, want wrapped cause", p.Detail)
	}

	p = New("F140").WithDetail("invalid JSON body").Wrap(stderrors.New("EOF")).Payload()
	if p.Detail != "invalid JSON body" {
		t.Errorf("Payload().Detail = %q, want explicit detail", p.Detail)
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("Print() = %q", buf.String())
	}

	buf.Reset()
	Print(&buf, New("F003"))
	if !strings.Contains(buf.String(), "F003") {
		t.Errorf("Print() = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("F999", ErrorTemplate{
		Category: CategoryForm,
		Message:  "Custom test error",
	})
	defer delete(registry, "F999")

	if _, ok := GetTemplate("F999"); !ok {
		t.Fatal("F999 should exist after Register")
	}
	if err := New("F999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
