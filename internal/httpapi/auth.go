package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"intelliserver/internal/apperror"
	"intelliserver/internal/token"
)

const bearerPrefix = "Bearer "

// requireAuthToken validates a Bearer token against tokens, attaching the
// owning user id to the Echo context for handlers that need it. It
// implements the token flow named in spec.md §7 (MissingToken,
// InvalidToken, ExpiredToken kinds).
func (s *Server) requireAuthToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return apperror.New(apperror.KindMissingToken)
		}
		raw := strings.TrimPrefix(header, bearerPrefix)
		tok, err := token.FromBase64(raw)
		if err != nil {
			return apperror.New(apperror.KindInvalidToken)
		}
		userID, err := s.tokens.Validate(tok, token.IntentAuth)
		if err != nil {
			return err
		}
		c.Set("user_id", userID)
		return next(c)
	}
}

// errorHandler translates an apperror.Error (or any error) into the fixed
// status/message pair the client is allowed to see, for registration as
// Echo's HTTPErrorHandler.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := apperror.StatusCode(err)
	msg := apperror.Message(err)
	var herr *echo.HTTPError
	if ok := asEchoHTTPError(err, &herr); ok {
		status = herr.Code
		if s, ok := herr.Message.(string); ok {
			msg = s
		}
	}
	_ = c.JSON(status, map[string]string{"error": msg})
}

func asEchoHTTPError(err error, target **echo.HTTPError) bool {
	herr, ok := err.(*echo.HTTPError)
	if !ok {
		return false
	}
	*target = herr
	return true
}
