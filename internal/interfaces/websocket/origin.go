package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"go-broadcast-relay/internal/infrastructure/logger"
)

// originPolicy decides which browser origins may open a WebSocket.
// Requests without an Origin header come from non-browser clients and are allowed.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	logger   logger.Logger
}

func newOriginPolicy(origins []string, logger logger.Logger) *originPolicy {
	p := &originPolicy{
		allowed: make(map[string]struct{}),
		logger:  logger,
	}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warnf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (p *originPolicy) check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}

	normalized, ok := normalizeOrigin(header)
	if ok {
		if _, exists := p.allowed[normalized]; exists {
			return true
		}
	}

	p.logger.Warnf("Blocked WebSocket connection from disallowed origin: %q", header)
	return false
}
