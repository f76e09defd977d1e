package config

import "testing"

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"prod":       "production",
		"PRODUCTION": "production",
		"staging":    "staging",
		"local":      "local",
		"dev":        "dev",
		"":           "dev",
		"garbage":    "dev",
	}
	for raw, want := range cases {
		if got := normalizeEnv(raw); got != want {
			t.Errorf("normalizeEnv(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeScope(t *testing.T) {
	cases := map[string]SimilarityScope{
		"global": ScopeGlobal,
		"role":   ScopeRole,
		"RUN":    ScopeRun,
		"":       ScopeGlobal,
		"bogus":  ScopeGlobal,
	}
	for raw, want := range cases {
		if got := normalizeScope(raw); got != want {
			t.Errorf("normalizeScope(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://localhost:5173 , https://app.example.com ,, ")
	if len(got) != 2 || got[0] != "http://localhost:5173" || got[1] != "https://app.example.com" {
		t.Errorf("splitList = %v", got)
	}
}

func TestGetEnvIntRejectsNonPositive(t *testing.T) {
	t.Setenv("X_TEST_INT", "-3")
	if got := getEnvInt("X_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt negative = %d, want default 7", got)
	}
	t.Setenv("X_TEST_INT", "12")
	if got := getEnvInt("X_TEST_INT", 7); got != 12 {
		t.Errorf("getEnvInt = %d, want 12", got)
	}
}
