package api

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/eduverse/typehub/internal/errors"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type envelope struct {
	Status  string              `json:"status"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  []errors.FieldError `json:"errors,omitempty"`
}

func ok(c *gin.Context, code int, data any) {
	c.JSON(code, envelope{Status: statusSuccess, Data: data})
}

// fail writes err as an error envelope. Internal errors are logged with their
// cause, and their details are hidden in production.
func (a *API) fail(c *gin.Context, err error) {
	e := errors.Convert(err)

	msg := e.Message
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		msg = "internal server error"
		if !a.production {
			msg = err.Error()
		}
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), envelope{
		Status:  statusError,
		Message: msg,
		Errors:  e.Fields,
	})
}

// bind decodes the JSON body into req, writing a 400 with per-field errors
// when decoding or validation fails.
func (a *API) bind(c *gin.Context, req any) bool {
	return a.check(c, c.ShouldBindJSON(req))
}

func (a *API) bindQuery(c *gin.Context, req any) bool {
	return a.check(c, c.ShouldBindQuery(req))
}

func (a *API) check(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		a.fail(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request: %v", err),
			errors.WithCause(err),
		))
		return false
	}

	fields := make([]errors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errors.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}

	a.fail(c, errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("validation failed"),
		errors.WithFields(fields...),
	))
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, envelope{Status: statusError, Message: "route not found"})
}
