package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ai-interviewer/interviewer/internal/auth"
	"github.com/ai-interviewer/interviewer/internal/store"
)

const userKey = "user"

func sessionCookie(c *gin.Context) string {
	v, err := c.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return v
}

func (s *Server) lookupUser(c *gin.Context) *store.User {
	u, err := s.auth.CurrentUser(c.Request.Context(), sessionCookie(c))
	if err != nil {
		log.Printf("[Web] Resolving session: %v", err)
		return nil
	}
	return u
}

// requireUser lets the request through only with a valid session, storing the
// user under userKey. Otherwise onMissing answers the request.
func (s *Server) requireUser(onMissing gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := s.lookupUser(c)
		if u == nil {
			onMissing(c)
			c.Abort()
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// guestOnly sends already signed-in users home.
func (s *Server) guestOnly(c *gin.Context) {
	if s.lookupUser(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		c.Abort()
		return
	}
	c.Next()
}

func redirectTo(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, path)
	}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, auth.Result{Success: false, Message: "Not signed in."})
}

func currentUser(c *gin.Context) *store.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*store.User)
	return u
}
