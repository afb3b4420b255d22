package web

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ai-interviewer/interviewer/internal/auth"
	"github.com/ai-interviewer/interviewer/internal/store"
)

func (s *Server) handleAuthPage(form string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"form": form})
	}
}

func (s *Server) handleSignUp(c *gin.Context) {
	var form signUpForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, auth.Result{Success: false, Message: formError(err)})
		return
	}

	res := s.auth.SignUp(c.Request.Context(), auth.SignUpParams{
		UID:   form.UID,
		Name:  form.Name,
		Email: form.Email,
	})
	if !res.Success {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSignIn(c *gin.Context) {
	var form signInForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, auth.Result{Success: false, Message: formError(err)})
		return
	}

	res, cookie := s.auth.SignIn(c.Request.Context(), auth.SignInParams{
		Email:   form.Email,
		IDToken: form.IDToken,
	})
	if !res.Success {
		c.JSON(http.StatusUnauthorized, res)
		return
	}
	http.SetCookie(c.Writer, auth.NewSessionCookie(cookie, s.cfg.IsProduction))
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSignOut(c *gin.Context) {
	s.auth.SignOut(c.Request.Context(), sessionCookie(c))
	http.SetCookie(c.Writer, auth.ClearedSessionCookie(s.cfg.IsProduction))
	c.JSON(http.StatusOK, auth.Result{Success: true, Message: "Signed out."})
}

func (s *Server) handleHome(c *gin.Context) {
	u := currentUser(c)
	ctx := c.Request.Context()

	mine, err := s.interviews.InterviewsByUser(ctx, u.ID)
	if err != nil {
		s.internalError(c, "loading interviews", err)
		return
	}
	latest, err := s.interviews.LatestInterviews(ctx, store.LatestParams{UserID: u.ID})
	if err != nil {
		s.internalError(c, "loading latest interviews", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             u,
		"interviews":       mine,
		"latestInterviews": latest,
	})
}

func (s *Server) handleInterviews(c *gin.Context) {
	u := currentUser(c)
	ivs, err := s.interviews.InterviewsByUser(c.Request.Context(), u.ID)
	if err != nil {
		s.internalError(c, "loading interviews", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviews": ivs})
}

func (s *Server) handleLatestInterviews(c *gin.Context) {
	u := currentUser(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	ivs, err := s.interviews.LatestInterviews(c.Request.Context(), store.LatestParams{UserID: u.ID, Limit: limit})
	if err != nil {
		s.internalError(c, "loading latest interviews", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviews": ivs})
}

func (s *Server) internalError(c *gin.Context, what string, err error) {
	log.Printf("[Web] Error %s: %v", what, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
