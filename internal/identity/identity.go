// Package identity resolves the free-text usernames used as session keys.
//
// Usernames are unauthenticated correlation keys, not identities. Callers that
// send no username at all collapse onto one shared anonymous session; whether
// that is intentional is an open product question, so the behaviour sits behind
// an explicit Policy instead of an ambient default.
package identity

import (
	"regexp"
	"strings"
)

// DefaultAnonymousName is the session key used when a request carries no username.
const DefaultAnonymousName = "guest"

// maxUsernameLen caps stored session keys; anything longer is truncated.
const maxUsernameLen = 128

var controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Policy decides how requests without a usable username are keyed.
type Policy struct {
	// AnonymousName is the shared session key for anonymous callers.
	AnonymousName string
}

// DefaultPolicy returns the historical behaviour: all anonymous callers share
// the "guest" session.
func DefaultPolicy() Policy {
	return Policy{AnonymousName: DefaultAnonymousName}
}

// Resolve normalizes a raw username into a session key. Blank or
// whitespace-only usernames resolve to the policy's anonymous name.
func (p Policy) Resolve(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		if p.AnonymousName != "" {
			return p.AnonymousName
		}
		return DefaultAnonymousName
	}
	name = controlPattern.ReplaceAllString(name, "")
	if name == "" {
		return p.Resolve("")
	}
	if len(name) > maxUsernameLen {
		name = name[:maxUsernameLen]
	}
	return name
}

// IsAnonymous reports whether key is the shared anonymous session key.
func (p Policy) IsAnonymous(key string) bool {
	anon := p.AnonymousName
	if anon == "" {
		anon = DefaultAnonymousName
	}
	return key == anon
}
