package http

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestParsePeriodParams(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantYear  *int
		wantMonth *int
	}{
		{"empty", url.Values{}, nil, nil},
		{"year and month", url.Values{"year": {"2024"}, "month": {"3"}}, intPtr(2024), intPtr(3)},
		{"full year", url.Values{"month": {"12"}}, nil, intPtr(12)},
		{"january", url.Values{"month": {"0"}}, nil, intPtr(0)},
		{"month out of range", url.Values{"month": {"13"}}, nil, nil},
		{"negative month", url.Values{"month": {"-1"}}, nil, nil},
		{"zero year", url.Values{"year": {"0"}}, nil, nil},
		{"non-numeric", url.Values{"year": {"abc"}, "month": {"june"}}, nil, nil},
		{"whitespace", url.Values{"year": {" 2023 "}}, intPtr(2023), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePeriodParams(tt.query)
			if !equalIntPtr(got.Year, tt.wantYear) {
				t.Errorf("Year = %v, want %v", deref(got.Year), deref(tt.wantYear))
			}
			if !equalIntPtr(got.Month, tt.wantMonth) {
				t.Errorf("Month = %v, want %v", deref(got.Month), deref(tt.wantMonth))
			}
		})
	}
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantJSON bool
		want     map[string]string
	}{
		{
			name:     "json",
			body:     `{"username":" admin ","year":2024,"flag":true}`,
			wantJSON: true,
			want:     map[string]string{"username": "admin", "year": "2024", "flag": "true", "missing": ""},
		},
		{
			name: "form",
			body: "username=admin&password=p%40ss",
			want: map[string]string{"username": "admin", "password": "p@ss"},
		},
		{
			name: "control characters stripped",
			body: "username=ad%00min",
			want: map[string]string{"username": "admin"},
		},
		{
			name: "empty body",
			body: "",
			want: map[string]string{"username": ""},
		},
		{
			name:    "broken json",
			body:    `{"username":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/login", strings.NewReader(tt.body))
			p := NewRequestBodyParser(req)

			err := p.Parse()
			if tt.wantErr {
				if !errors.Is(err, errBadBody) {
					t.Fatalf("Parse() error = %v, want errBadBody", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			for key, want := range tt.want {
				if got := p.Get(key); got != want {
					t.Errorf("Get(%q) = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestReadBodyLimit(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/purchases", strings.NewReader(strings.Repeat("x", maxJSONBody+1)))
	if _, err := readBody(req); !errors.Is(err, errBadBody) {
		t.Errorf("readBody() error = %v, want errBadBody", err)
	}

	req = httptest.NewRequest("POST", "/api/purchases", strings.NewReader(`{"product":"Seed"}`))
	body, err := readBody(req)
	if err != nil || string(body) != `{"product":"Seed"}` {
		t.Errorf("readBody() = %q, %v", body, err)
	}
}

func TestDecodeRecord(t *testing.T) {
	type sample struct {
		Name string `json:"name"`
	}

	got, err := decodeRecord[sample]([]byte(`{"name":"Diesel"}`))
	if err != nil || got.Name != "Diesel" {
		t.Errorf("decodeRecord() = %+v, %v", got, err)
	}
	if _, err := decodeRecord[sample]([]byte(`[1,2]`)); !errors.Is(err, errBadBody) {
		t.Errorf("decodeRecord() error = %v, want errBadBody", err)
	}
}
