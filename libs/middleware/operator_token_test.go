package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsOperatorToken(t *testing.T) {
	tokens := []string{"FOO"}

	if isOperatorToken(tokens, "") != false {
		t.Error("Expected empty token to be invalid")
	}
	if isOperatorToken([]string{}, "") != false {
		t.Error("Expected empty token to be invalid against empty list")
	}
	if isOperatorToken(tokens, "FOO") != true {
		t.Error("Expected configured token to be valid")
	}
	if isOperatorToken(tokens, "BAR") != false {
		t.Error("Expected unknown token to be invalid")
	}

	tokens = []string{"FOO", "BAR"}
	if isOperatorToken(tokens, "FOO") != true {
		t.Error("Expected first configured token to be valid")
	}
	if isOperatorToken(tokens, "BAR") != true {
		t.Error("Expected second configured token to be valid")
	}
	if isOperatorToken(tokens, "XXX") != false {
		t.Error("Expected unknown token to be invalid")
	}
}

func TestOperatorAuthorizedOnly(t *testing.T) {
	saved := OperatorTokens
	defer func() { OperatorTokens = saved }()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := BearerToken(OperatorAuthorizedOnly(next))

	// no tokens configured, everything passes
	OperatorTokens = []string{}
	rw := httptest.NewRecorder()
	guarded.ServeHTTP(rw, httptest.NewRequest("POST", "/close-batch", nil))
	if rw.Code != http.StatusOK {
		t.Errorf("Expected open guard to pass, got %d", rw.Code)
	}

	OperatorTokens = []string{"SECRET"}

	rw = httptest.NewRecorder()
	guarded.ServeHTTP(rw, httptest.NewRequest("POST", "/close-batch", nil))
	if rw.Code != http.StatusForbidden {
		t.Errorf("Expected missing token to be forbidden, got %d", rw.Code)
	}

	rw = httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/close-batch", nil)
	r.Header.Set("Authorization", "Bearer WRONG")
	guarded.ServeHTTP(rw, r)
	if rw.Code != http.StatusForbidden {
		t.Errorf("Expected wrong token to be forbidden, got %d", rw.Code)
	}

	rw = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/close-batch", nil)
	r.Header.Set("Authorization", "Bearer SECRET")
	guarded.ServeHTTP(rw, r)
	if rw.Code != http.StatusOK {
		t.Errorf("Expected configured token to pass, got %d", rw.Code)
	}
}

func TestSplitTokens(t *testing.T) {
	if got := splitTokens(""); len(got) != 0 {
		t.Errorf("Expected no tokens from empty env, got %v", got)
	}
	if got := splitTokens("a, b ,"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected trimmed tokens, got %v", got)
	}
}
