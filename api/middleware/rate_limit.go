package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/thriftline/thriftline-backend/api/responses"
	"github.com/thriftline/thriftline-backend/pkg/config"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
)

// RateLimiterStore is the counter surface the limiters need.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy bounds attempts for a single auth endpoint, counted
// per client IP and per normalized email.
type AuthRateLimitPolicy struct {
	Scope      string
	Window     time.Duration
	IPLimit    int64
	EmailLimit int64
}

// LoginRateLimitPolicy derives the login policy from configuration.
func LoginRateLimitPolicy(cfg config.RateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Scope:      "auth:login",
		Window:     cfg.LoginWindow,
		IPLimit:    int64(cfg.LoginIPLimit),
		EmailLimit: int64(cfg.LoginEmailLimit),
	}
}

// RegisterRateLimitPolicy derives the register policy from configuration.
func RegisterRateLimitPolicy(cfg config.RateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Scope:      "auth:register",
		Window:     cfg.RegisterWindow,
		IPLimit:    int64(cfg.RegisterIPLimit),
		EmailLimit: int64(cfg.RegisterEmailLimit),
	}
}

// AuthRateLimit throttles credential endpoints before they reach the handler.
// Counters are keyed by client IP and, when the body carries one, by email so
// a single account cannot be hammered from rotating addresses.
func AuthRateLimit(store RateLimiterStore, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if ip != "" && policy.IPLimit > 0 {
				allowed, _, err := store.FixedWindowAllow(r.Context(), policy.Scope+":ip:"+hashValue(ip), policy.IPLimit, policy.Window)
				if err != nil {
					logError(r.Context(), logg, "rate limit check", err)
				} else if !allowed {
					respondRateLimited(r.Context(), logg, w)
					return
				}
			}

			email := extractEmail(r)
			if email != "" && policy.EmailLimit > 0 {
				allowed, _, err := store.FixedWindowAllow(r.Context(), policy.Scope+":email:"+hashValue(email), policy.EmailLimit, policy.Window)
				if err != nil {
					logError(r.Context(), logg, "rate limit check", err)
				} else if !allowed {
					respondRateLimited(r.Context(), logg, w)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies a fixed-window request budget to authenticated traffic,
// keyed by user id with a client IP fallback.
func RateLimit(store RateLimiterStore, cfg config.RateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || cfg.PrivateLimit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			subject := UserIDFromContext(r.Context())
			if subject == "" {
				subject = hashValue(clientIP(r))
			}

			allowed, _, err := store.FixedWindowAllow(r.Context(), "private:"+subject, int64(cfg.PrivateLimit), cfg.PrivateWindow)
			if err != nil {
				logError(r.Context(), logg, "rate limit check", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				respondRateLimited(r.Context(), logg, w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractEmail peeks at the JSON body for an email field and restores the
// body for the handler. Malformed bodies fall through to validation.
func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return normalizeEmail(probe.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashValue(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
