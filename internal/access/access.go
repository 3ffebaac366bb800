// Package access holds the authorization predicates evaluated before a
// handler runs.
package access

import (
	"fmt"
	"strings"

	"github.com/hafizmfadli/go-catalog/internal/data"
)

// Code classifies a denial.
type Code int

const (
	// Allowed means the predicate passed.
	Allowed Code = iota
	// Unauthenticated means the caller presented no valid credentials.
	Unauthenticated
	// Forbidden means the caller is known but lacks the capability.
	Forbidden
)

// Decision is the outcome of a Predicate.
type Decision struct {
	Allowed bool
	Code    Code
	Reason  string
}

// Allow is the passing Decision.
var Allow = Decision{Allowed: true, Code: Allowed}

// Deny returns a failing Decision.
func Deny(code Code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

// Predicate decides whether caller may proceed.
type Predicate func(caller *data.Caller) Decision

// Authenticated passes for any non-anonymous caller.
func Authenticated() Predicate {
	return func(caller *data.Caller) Decision {
		if caller == nil || caller.IsAnonymous() {
			return Deny(Unauthenticated, "you must be authenticated to access this resource")
		}
		return Allow
	}
}

// HasRole passes for authenticated callers holding one of roles.
func HasRole(roles ...data.Role) Predicate {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	reason := fmt.Sprintf("this resource requires one of the roles: %s", strings.Join(names, ", "))

	return All(Authenticated(), func(caller *data.Caller) Decision {
		for _, r := range roles {
			if caller.Role == r {
				return Allow
			}
		}
		return Deny(Forbidden, reason)
	})
}

// All passes when every predicate passes, returning the first denial
// otherwise.
func All(preds ...Predicate) Predicate {
	return func(caller *data.Caller) Decision {
		for _, p := range preds {
			if d := p(caller); !d.Allowed {
				return d
			}
		}
		return Allow
	}
}
