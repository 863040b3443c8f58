package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/adwatch/internal/errors"
)

const ctxKeyClerkID = "clerkID"

// authenticate resolves the caller from the Authorization header and aborts
// with 401 when the bearer token is missing or invalid.
func (a *API) authenticate(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		abortError(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token")))
		return
	}

	sub, err := a.auth.Verify(token)
	if err != nil {
		abortError(c, err)
		return
	}

	c.Set(ctxKeyClerkID, sub)
	c.Next()
}

// requireAdmin loads the caller's user row on every request; an admin
// demoted mid-session loses access immediately.
func (a *API) requireAdmin(c *gin.Context) {
	isAdmin, err := a.user.IsAdmin(c.Request.Context(), clerkID(c))
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		abortError(c, err)
		return
	}

	if !isAdmin {
		abortError(c, errors.New(errors.CodePermissionDenied, errors.WithMessagef("admin access required")))
		return
	}

	c.Next()
}

func clerkID(c *gin.Context) string {
	return c.GetString(ctxKeyClerkID)
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}

func abortError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}
