package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hafizmfadli/go-catalog/internal/access"
	"github.com/hafizmfadli/go-catalog/internal/data"
	"golang.org/x/time/rate"
)

// recoverPanic turns a panic in any later handler into a 500 response
// instead of a dropped connection.
func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Runs as Go unwinds the stack after a panic.
		defer func() {
			if err := recover(); err != nil {
				// Makes net/http close the connection after the response.
				w.Header().Set("Connection", "close")
				// recover returns any, so normalize it into an error.
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimit keeps one token bucket per client IP, configured by the limiter
// settings. Clients idle for three minutes are forgotten.
func (app *application) rateLimit(next http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	// Sweep stale clients once a minute. Only needed when limiting is on.
	if app.config.limiter.enabled {
		go func() {
			for {
				time.Sleep(time.Minute)

				// No limiter checks run while the sweep holds the lock.
				mu.Lock()
				for ip, c := range clients {
					if time.Since(c.lastSeen) > 3*time.Minute {
						delete(clients, ip)
					}
				}
				mu.Unlock()
			}
		}()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.limiter.enabled {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				app.serverErrorResponse(w, r, err)
				return
			}

			mu.Lock()

			// First request from this IP gets a fresh bucket.
			if _, found := clients[ip]; !found {
				clients[ip] = &client{
					limiter: rate.NewLimiter(rate.Limit(app.config.limiter.rps), app.config.limiter.burst),
				}
			}

			clients[ip].lastSeen = time.Now()

			if !clients[ip].limiter.Allow() {
				mu.Unlock()
				app.rateLimitExceededResponse(w, r)
				return
			}

			// Not deferred: downstream handlers must not run under the lock.
			mu.Unlock()
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token to a caller and stores it in the
// request context. No Authorization header means an anonymous caller; the
// per-route predicates decide whether that is acceptable.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Caches must key responses on the Authorization header.
		w.Header().Add("Vary", "Authorization")

		authorizationHeader := r.Header.Get("Authorization")
		if authorizationHeader == "" {
			r = app.contextSetCaller(r, data.AnonymousCaller)
			next.ServeHTTP(w, r)
			return
		}

		// Expect "Bearer <keyID>.<secret>".
		scheme, token, ok := strings.Cut(authorizationHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			app.requestLogger(r).PrintDebug("malformed authorization header", nil)
			app.invalidAuthenticationTokenResponse(w, r)
			return
		}

		caller, err := app.models.APIKeys.GetCaller(token)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.requestLogger(r).PrintDebug("api key rejected", nil)
				app.invalidAuthenticationTokenResponse(w, r)
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		r = app.contextSetCaller(r, caller)
		next.ServeHTTP(w, r)
	})
}

// require runs pred against the request's caller before next, answering 401
// or 403 with the predicate's reason on denial.
func (app *application) require(pred access.Predicate, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := app.contextGetCaller(r)
		decision := pred(caller)

		if decision.Code != access.Allowed {
			app.requestLogger(r).PrintDebug("request denied", map[string]string{
				"caller": caller.Name,
				"role":   string(caller.Role),
				"reason": decision.Reason,
			})
		}

		switch decision.Code {
		case access.Allowed:
			next.ServeHTTP(w, r)
		case access.Unauthenticated:
			app.authenticationRequiredResponse(w, r, decision.Reason)
		default:
			app.notPermittedResponse(w, r, decision.Reason)
		}
	}
}

// enableCORS allows cross-origin requests from the configured trusted
// origins, answering their preflight requests directly.
func (app *application) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Method")

		origin := r.Header.Get("Origin")

		// Untrusted or missing origins get no CORS headers at all.
		if origin != "" {
			for _, trusted := range app.config.cors.trustedOrigins {
				if origin != trusted {
					continue
				}

				w.Header().Set("Access-Control-Allow-Origin", origin)

				// A preflight carries Access-Control-Request-Method; answer
				// it here without reaching the router.
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, PATCH, DELETE")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.WriteHeader(http.StatusOK)
					return
				}
				break
			}
		}

		next.ServeHTTP(w, r)
	})
}
