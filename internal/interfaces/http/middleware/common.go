package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns the default CORS configuration. AllowOrigins is
// empty: no cross-origin request is honored until origins are configured
// explicitly.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID", "Accept", "Origin", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS returns a CORS middleware with the default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// corsHeaders carries the header values precomputed from a CORSConfig so the
// per-request path only does map lookups and header writes.
type corsHeaders struct {
	methods     string
	headers     string
	expose      string
	maxAge      string
	credentials bool
	wildcard    bool
	origins     map[string]struct{}
}

func precomputeCORS(cfg CORSConfig) corsHeaders {
	h := corsHeaders{
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
		origins:     make(map[string]struct{}, len(cfg.AllowOrigins)),
	}
	if cfg.MaxAge > 0 {
		h.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			h.wildcard = true
		}
		h.origins[o] = struct{}{}
	}
	return h
}

// resolveOrigin returns the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not allowed.
func (h *corsHeaders) resolveOrigin(origin string) string {
	if len(h.origins) == 0 {
		return ""
	}
	if h.wildcard {
		return "*"
	}
	if _, ok := h.origins[origin]; ok {
		return origin
	}
	return ""
}

func (h *corsHeaders) write(w http.Header, allowedOrigin string) {
	w.Set("Access-Control-Allow-Origin", allowedOrigin)
	// Browsers reject credentials combined with a wildcard origin, so the
	// credentials header is only set for explicit origins.
	if h.credentials && allowedOrigin != "*" {
		w.Set("Access-Control-Allow-Credentials", "true")
	}
	w.Set("Access-Control-Allow-Methods", h.methods)
	w.Set("Access-Control-Allow-Headers", h.headers)
	if h.expose != "" {
		w.Set("Access-Control-Expose-Headers", h.expose)
	}
	if h.maxAge != "" {
		w.Set("Access-Control-Max-Age", h.maxAge)
	}
}

// CORSWithConfig returns a CORS middleware with custom configuration
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	pre := precomputeCORS(cfg)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowed := pre.resolveOrigin(origin)

		// Preflight requests are answered with 204 regardless; CORS headers
		// are attached only when the origin clears the whitelist.
		if c.Request.Method == http.MethodOptions {
			if allowed != "" {
				pre.write(c.Writer.Header(), allowed)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if allowed != "" {
			pre.write(c.Writer.Header(), allowed)
		}
		c.Next()
	}
}

// RequestID tags every request with a unique ID, honoring a caller-supplied
// X-Request-ID so IDs can flow through from upstream proxies
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// SecurityConfig holds configuration for the security response headers
type SecurityConfig struct {
	HSTSEnabled           bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	CSPEnabled   bool
	CSPDirective string

	PermissionsPolicyEnabled   bool
	PermissionsPolicyDirective string
}

// DefaultSecurityConfig returns the default security-header settings. HSTS is
// off because it only makes sense once the deployment terminates TLS; CSP and
// Permissions-Policy ship restrictive defaults.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSEnabled:           false,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		HSTSPreload:           false,

		CSPEnabled:   true,
		CSPDirective: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:; connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",

		PermissionsPolicyEnabled:   true,
		PermissionsPolicyDirective: "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
	}
}

// Secure adds security headers using the default configuration
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig adds security headers to every response
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	headers := [][2]string{
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "1; mode=block"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
	}

	if cfg.CSPEnabled && cfg.CSPDirective != "" {
		headers = append(headers, [2]string{"Content-Security-Policy", cfg.CSPDirective})
	}
	if cfg.HSTSEnabled {
		var b strings.Builder
		b.WriteString("max-age=")
		b.WriteString(strconv.Itoa(cfg.HSTSMaxAge))
		if cfg.HSTSIncludeSubdomains {
			b.WriteString("; includeSubDomains")
		}
		if cfg.HSTSPreload {
			b.WriteString("; preload")
		}
		headers = append(headers, [2]string{"Strict-Transport-Security", b.String()})
	}
	if cfg.PermissionsPolicyEnabled && cfg.PermissionsPolicyDirective != "" {
		headers = append(headers, [2]string{"Permissions-Policy", cfg.PermissionsPolicyDirective})
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range headers {
			h.Set(kv[0], kv[1])
		}
		c.Next()
	}
}
