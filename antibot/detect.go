package antibot

import (
	"net/http"
	"strings"
)

// Indicator keywords are matched case-insensitively against raw body
// content.
var challengeIndicators = []string{
	"captcha", "recaptcha", "hcaptcha", "cloudflare",
	"please verify", "security check", "robot verification",
	"prove you're human",
}

var rateLimitIndicators = []string{
	"rate limit", "too many requests", "slow down", "exceeded",
	"throttled", "temporarily blocked",
}

// LooksLikeChallenge reports whether body reads like a bot challenge or
// verification wall rather than ordinary content. Pure and stateless.
func LooksLikeChallenge(body string) bool {
	return containsAny(body, challengeIndicators)
}

// LooksRateLimited reports whether a response indicates rate limiting:
// status 429, or telltale body content. Pure and stateless.
func LooksRateLimited(body string, statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return containsAny(body, rateLimitIndicators)
}

func containsAny(body string, indicators []string) bool {
	lower := strings.ToLower(body)
	for _, indicator := range indicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
