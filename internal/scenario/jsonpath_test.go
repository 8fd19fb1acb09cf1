package scenario

import (
	"strings"
	"testing"
)

func TestExtractJSONPath(t *testing.T) {
	body := []byte(`{
		"token": "eyJhbGciOiJIUzI1NiJ9.x.y",
		"username": "mluukkai",
		"name": "Matti Luukkainen",
		"likes": 2099,
		"ratio": 0.5,
		"admin": false,
		"deleted": null,
		"blogs": [{"title": "first"}, {"title": "second", "tags": ["a", "b"]}],
		"meta": {"owner": {"id": "user_000001"}}
	}`)

	tests := []struct {
		path    string
		want    string
		wantErr string
	}{
		{"$.token", "eyJhbGciOiJIUzI1NiJ9.x.y", ""},
		{"$.name", "Matti Luukkainen", ""},
		{"$.likes", "2099", ""},
		{"$.ratio", "0.5", ""},
		{"$.admin", "false", ""},
		{"$.deleted", "null", ""},
		{"$.blogs[1].title", "second", ""},
		{"$.blogs[1].tags[0]", "a", ""},
		{"$.blogs[0]", `{"title":"first"}`, ""},
		{"$.meta.owner.id", "user_000001", ""},
		{"$.missing", "", "no match"},
		{"$.blogs[5].title", "", "no match"},
		{"$.token.deeper", "", "no match"},
		{"$.blogs[x]", "", "invalid array index"},
		{"token", "", "must start with $"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ExtractJSONPath(body, tt.path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONPathInvalidBody(t *testing.T) {
	if _, err := ExtractJSONPath([]byte("<html>"), "$.token"); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}

func TestSplitPathSegments(t *testing.T) {
	got := splitPathSegments("a.b[0].c")
	want := []string{"a", "b[0]", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}
