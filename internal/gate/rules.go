package gate

import "strings"

// Class is the access class of a request path.
type Class int

const (
	// ClassUser needs any valid token. Paths with no matching rule get it.
	ClassUser Class = iota
	ClassPublic
	ClassAdmin
)

func (c Class) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassAdmin:
		return "admin"
	default:
		return "user"
	}
}

// Rule binds a path prefix to a class.
type Rule struct {
	Prefix string
	Class  Class
}

// Matches reports whether path falls under the rule. The root prefix "/"
// matches only the root itself; any other prefix matches the exact path or
// the prefix followed by "/".
func (r Rule) Matches(path string) bool {
	p := strings.TrimSuffix(r.Prefix, "/")
	if p == "" {
		return path == "/"
	}
	return path == p || strings.HasPrefix(path, p+"/")
}

// Rules is evaluated top to bottom; the first match wins.
type Rules []Rule

// Classify returns the class of the first matching rule, or ClassUser.
func (rs Rules) Classify(path string) Class {
	if path == "" {
		path = "/"
	}
	for _, r := range rs {
		if r.Matches(path) {
			return r.Class
		}
	}
	return ClassUser
}

// DefaultRules is the allow-list of the chat playground plus the admin area.
func DefaultRules() Rules {
	return Rules{
		{Prefix: "/", Class: ClassPublic},
		{Prefix: "/_next", Class: ClassPublic},
		{Prefix: "/static", Class: ClassPublic},
		{Prefix: "/favicon.ico", Class: ClassPublic},
		{Prefix: "/health", Class: ClassPublic},
		{Prefix: "/metrics", Class: ClassPublic},
		{Prefix: "/swagger", Class: ClassPublic},
		{Prefix: "/api/auth/login", Class: ClassPublic},
		{Prefix: "/api/auth/register", Class: ClassPublic},
		{Prefix: "/api/auth/logout", Class: ClassPublic},
		{Prefix: "/api/admin", Class: ClassAdmin},
	}
}
