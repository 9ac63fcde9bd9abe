package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-items/pkg/items"
)

// Token claims understood by ActorFromRequest.
const (
	ClaimUserID      = "user_id"
	ClaimSuper       = "super"
	ClaimRoles       = "roles"
	ClaimPermissions = "permissions"
	ClaimLanguage    = "lang"
)

type actorKey struct{}

// WithActor stores a fixed actor in ctx. It is used when authentication is
// disabled.
func WithActor(ctx context.Context, actor items.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromRequest resolves the acting user and the request language. A
// verified token wins over an actor stored with WithActor. The lang query
// parameter overrides the language of both.
func ActorFromRequest(r *http.Request) items.Actor {
	actor, _ := r.Context().Value(actorKey{}).(items.Actor)

	if token, claims, err := jwtauth.FromContext(r.Context()); err == nil && token != nil {
		actor = actorFromClaims(token.Subject(), claims)
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		actor.Language = lang
	}
	return actor
}

func actorFromClaims(subject string, claims map[string]interface{}) items.Actor {
	id, ok := claimInt(claims[ClaimUserID])
	if !ok {
		parsed, err := strconv.ParseInt(subject, 10, 64)
		if err != nil {
			return items.Actor{Language: claimString(claims[ClaimLanguage])}
		}
		id = parsed
	}
	super, _ := claims[ClaimSuper].(bool)
	return items.Actor{
		User: &items.User{
			ID:          id,
			Super:       super,
			Roles:       claimStrings(claims[ClaimRoles]),
			Permissions: claimStrings(claims[ClaimPermissions]),
		},
		Language: claimString(claims[ClaimLanguage]),
	}
}

func claimInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	}
	return 0, false
}

func claimString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func claimStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return strings.Split(list, ",")
	}
	return nil
}

// RequireUser rejects requests without an acting user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromRequest(r).Authenticated() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
