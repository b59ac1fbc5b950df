package query

import "testing"

func TestFilter_Match(t *testing.T) {
	web := map[string]string{"name": "web-prod-01", "type": "host", "region": "ap-northeast-1", "env": "prod"}
	db := map[string]string{"name": "orders-db", "type": "database", "region": "us-east-1", "env": "prod"}

	tests := []struct {
		query   string
		wantWeb bool
		wantDB  bool
	}{
		{"", true, true},
		{"type:host", true, false},
		{"TYPE:Host", true, false},
		{"type:host AND region:ap*", true, false},
		{"type:host OR type:database", true, true},
		{"env:prod AND NOT type:host", false, true},
		{"region:us*", false, true},
		{"web", true, false},
		{"orders*", false, true},
		{"owner:sre", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f, err := Compile(tt.query)
			if err != nil {
				t.Fatalf("Compile(%q) error = %v", tt.query, err)
			}
			if got := f.Match(web); got != tt.wantWeb {
				t.Errorf("Match(web) = %v, want %v", got, tt.wantWeb)
			}
			if got := f.Match(db); got != tt.wantDB {
				t.Errorf("Match(db) = %v, want %v", got, tt.wantDB)
			}
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	for _, q := range []string{"type:(host"} {
		if _, err := Compile(q); err == nil {
			t.Errorf("Compile(%q) expected error", q)
		}
	}
}

func TestWildcardToRegex(t *testing.T) {
	tests := map[string]string{
		"ap-*":    "ap-.*",
		"a.b":     `a\.b`,
		"web-0?":  "web-0.",
		"(x)|[y]": `\(x\)\|\[y\]`,
	}
	for in, want := range tests {
		if got := wildcardToRegex(in); got != want {
			t.Errorf("wildcardToRegex(%q) = %q, want %q", in, got, want)
		}
	}
}
