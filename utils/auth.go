package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/kataras/iris/v12"
)

var bgContext = context.Background()

// SessionCookieName is the identity provider's session cookie.
const SessionCookieName = "st_session"

const sessionCacheTTL = 60 * time.Second

var authClient = &http.Client{Timeout: 10 * time.Second}

// Identity is the profile the identity provider attaches to a verified
// session.
type Identity struct {
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// AuthMiddleware verifies the caller's bearer token or session cookie
// against the identity provider and stores the subject id in the request
// context, same shape the downstream handlers always read.
func AuthMiddleware(ctx iris.Context) {
	token := extractSessionToken(ctx)
	if token == "" {
		JSONError(ctx, iris.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}

	identity, err := VerifySession(token)
	if err != nil {
		JSONError(ctx, iris.StatusUnauthorized, "unauthorized", "invalid or expired session")
		return
	}

	ctx.Values().Set("userID", identity.Subject)
	ctx.Values().Set("identity", identity)
	ctx.Next()
}

func extractSessionToken(ctx iris.Context) string {
	if header := ctx.GetHeader("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
	}
	return ctx.GetCookie(SessionCookieName)
}

// VerifySession asks the identity provider to verify a session token.
// Positive answers are cached in Redis for a minute, keyed by token hash.
func VerifySession(token string) (*Identity, error) {
	cacheKey := "session:" + HashToken(token)

	if storage.Redis != nil {
		if cached, err := storage.Redis.Get(bgContext, cacheKey).Result(); err == nil {
			var identity Identity
			if json.Unmarshal([]byte(cached), &identity) == nil {
				return &identity, nil
			}
		}
	}

	payload, _ := json.Marshal(map[string]string{"token": token})
	req, err := http.NewRequest(http.MethodPost, os.Getenv("AUTH_API_URL")+"/v1/sessions/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Server-Key", os.Getenv("AUTH_SERVER_KEY"))

	resp, err := authClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.New("session rejected by identity provider")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, err
	}
	if identity.Subject == "" {
		return nil, errors.New("identity provider returned no subject")
	}

	if storage.Redis != nil {
		if encoded, err := json.Marshal(identity); err == nil {
			storage.Redis.Set(bgContext, cacheKey, encoded, sessionCacheTTL)
		}
	}

	return &identity, nil
}

// CurrentIdentity returns the verified identity set by AuthMiddleware.
func CurrentIdentity(ctx iris.Context) *Identity {
	if identity, ok := ctx.Values().Get("identity").(*Identity); ok {
		return identity
	}
	return nil
}
