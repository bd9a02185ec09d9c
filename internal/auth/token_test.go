package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lessonloop/gateway/internal/config"
)

func TestIssueAndParseToken(t *testing.T) {
	token, errIssue := IssueToken("test-secret", time.Hour, "42", "ada")
	if errIssue != nil {
		t.Fatalf("issue token: %v", errIssue)
	}

	claims, errParse := ParseToken("test-secret", token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if claims.UserID != "42" || claims.Username != "ada" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	if _, errIssue := IssueToken("   ", time.Hour, "42", "ada"); errIssue == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, errIssue := IssueToken("secret-a", time.Hour, "42", "ada")
	if errIssue != nil {
		t.Fatalf("issue token: %v", errIssue)
	}
	if _, errParse := ParseToken("secret-b", token); errParse != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", errParse)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, errIssue := IssueToken("test-secret", -time.Minute, "42", "ada")
	if errIssue != nil {
		t.Fatalf("issue token: %v", errIssue)
	}
	if _, errParse := ParseToken("test-secret", token); errParse != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", errParse)
	}
}

func TestParseTokenRejectsEmptyUserID(t *testing.T) {
	token, errIssue := IssueToken("test-secret", time.Hour, "", "ada")
	if errIssue != nil {
		t.Fatalf("issue token: %v", errIssue)
	}
	if _, errParse := ParseToken("test-secret", token); errParse != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty uid, got %v", errParse)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, errParse := ParseToken("test-secret", "not-a-token"); errParse != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", errParse)
	}
}

func resolveIdentity(t *testing.T, jwtCfg config.JWTConfig, devCfg config.DevConfig, authorization string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Middleware(jwtCfg, devCfg))

	var resolved string
	engine.GET("/whoami", func(c *gin.Context) {
		resolved = UserID(c)
		c.Status(http.StatusOK)
	})

	request := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	engine.ServeHTTP(httptest.NewRecorder(), request)
	return resolved
}

func TestMiddlewareResolvesBearerToken(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}
	token, errIssue := IssueToken(jwtCfg.Secret, jwtCfg.Expiry, "42", "ada")
	if errIssue != nil {
		t.Fatalf("issue token: %v", errIssue)
	}

	if got := resolveIdentity(t, jwtCfg, config.DevConfig{}, "Bearer "+token); got != "42" {
		t.Fatalf("expected user 42, got %q", got)
	}
}

func TestMiddlewareInvalidTokenLeavesUnauthenticated(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "test-secret"}
	if got := resolveIdentity(t, jwtCfg, config.DevConfig{}, "Bearer bogus"); got != "" {
		t.Fatalf("expected empty identity, got %q", got)
	}
	if got := resolveIdentity(t, jwtCfg, config.DevConfig{}, ""); got != "" {
		t.Fatalf("expected empty identity without header, got %q", got)
	}
}

func TestMiddlewareDevUserFallback(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "test-secret"}
	devCfg := config.DevConfig{UserID: "dev-1"}

	if got := resolveIdentity(t, jwtCfg, devCfg, ""); got != "dev-1" {
		t.Fatalf("expected dev fallback, got %q", got)
	}

	// A valid token still wins over the dev identity.
	token, errIssue := IssueToken(jwtCfg.Secret, time.Hour, "42", "ada")
	if errIssue != nil {
		t.Fatalf("issue token: %v", errIssue)
	}
	if got := resolveIdentity(t, jwtCfg, devCfg, "Bearer "+token); got != "42" {
		t.Fatalf("expected token identity over dev fallback, got %q", got)
	}
}
