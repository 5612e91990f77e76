// Package gate decides, per request, whether a path may be served and under
// which identity. It has no HTTP framework dependency; the handlers package
// turns a Decision into a response.
package gate

import (
	"net/http"
	"strings"

	"chat_playground/internal/models"
)

// State is the outcome of one gate evaluation.
type State int

const (
	PublicPass State = iota
	Unauthenticated
	InvalidToken
	AdminRequiredDenied
	AuthenticatedPass
)

func (s State) String() string {
	switch s {
	case PublicPass:
		return "public_pass"
	case Unauthenticated:
		return "unauthenticated"
	case InvalidToken:
		return "invalid_token"
	case AdminRequiredDenied:
		return "admin_required_denied"
	case AuthenticatedPass:
		return "authenticated_pass"
	default:
		return "unknown"
	}
}

// Allowed reports whether the request may reach a handler.
func (s State) Allowed() bool {
	return s == PublicPass || s == AuthenticatedPass
}

// Status is the HTTP status of a denial, or 0 when the request passes.
func (s State) Status() int {
	switch s {
	case Unauthenticated, InvalidToken:
		return http.StatusUnauthorized
	case AdminRequiredDenied:
		return http.StatusForbidden
	default:
		return 0
	}
}

// Message is the JSON error text of a denial.
func (s State) Message() string {
	switch s {
	case Unauthenticated:
		return "Unauthorized"
	case InvalidToken:
		return "Invalid token"
	case AdminRequiredDenied:
		return "Unauthorized - Admin access required"
	default:
		return ""
	}
}

// Verifier checks a token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (models.Identity, error)
}

// Decision is the full result of Decide.
type Decision struct {
	State    State
	Class    Class
	Identity models.Identity
	// ViaBearer is true when the token came from the Authorization header.
	ViaBearer bool
	// Err is the verification failure for InvalidToken.
	Err error
}

// Gate holds the rules and the verifier.
type Gate struct {
	rules    Rules
	verifier Verifier
}

func New(rules Rules, verifier Verifier) *Gate {
	return &Gate{rules: rules, verifier: verifier}
}

// Decide evaluates one request. authorization is the raw Authorization header
// and cookie the value of the token cookie; either may be empty.
func (g *Gate) Decide(path, authorization, cookie string) Decision {
	class := g.rules.Classify(path)
	if class == ClassPublic {
		return Decision{State: PublicPass, Class: class}
	}

	token, viaBearer := BearerToken(authorization)
	if !viaBearer {
		token = strings.TrimSpace(cookie)
	}
	if token == "" {
		return Decision{State: Unauthenticated, Class: class}
	}

	id, err := g.verifier.Verify(token)
	if err != nil {
		return Decision{State: InvalidToken, Class: class, ViaBearer: viaBearer, Err: err}
	}

	if class == ClassAdmin && !id.IsAdmin {
		return Decision{State: AdminRequiredDenied, Class: class, Identity: id, ViaBearer: viaBearer}
	}
	return Decision{State: AuthenticatedPass, Class: class, Identity: id, ViaBearer: viaBearer}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// ok is false for other schemes and for a blank token.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const scheme = "bearer "
	if len(header) < len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(scheme):])
	return token, token != ""
}
