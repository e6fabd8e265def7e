package security

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context key the middleware fills in for downstream handlers.
const CtxUserIDKey = "user_id"

// Resolver matches the gateway's identity boundary; declared here so
// the middleware does not pull in the chat package.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

type Options struct {
	HeaderToken               string // default "authorization"
	EnableAuthorizationBearer bool   // accept "Authorization: Bearer xxx"
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               "authorization",
		EnableAuthorizationBearer: true,
	}
}

// Middleware extracts a bearer token, resolves it, and stores the
// user id in the request context. Requests without a valid token are
// rejected with 401.
func Middleware(resolver Resolver, opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))

		if token == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credential"})
			return
		}

		userID, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}
