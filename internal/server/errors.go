package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/podslice/podslice/internal/analytics/domain"
	contentdomain "github.com/podslice/podslice/internal/content/domain"
	orgdomain "github.com/podslice/podslice/internal/organization/domain"
	payoutdomain "github.com/podslice/podslice/internal/payout/domain"
	payoutprovider "github.com/podslice/podslice/internal/providers/payout"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
	trackingdomain "github.com/podslice/podslice/internal/tracking/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var providerErr *payoutprovider.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_error",
			Message: providerErr.Message,
		}
	}

	var notActive *payoutdomain.AccountNotActiveError
	if errors.As(err, &notActive) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "account_not_active",
			Message: "payout account is " + strings.ToLower(notActive.Status),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isPayoutGateError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    err.Error(),
			Message: payoutGateMessage(err),
		}
	case errors.Is(err, payoutprovider.ErrNotConfigured):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_error",
			Message: "payout provider not configured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, trackingdomain.ErrInvalidContent),
		errors.Is(err, trackingdomain.ErrInvalidKind),
		errors.Is(err, trackingdomain.ErrInvalidDuration),
		errors.Is(err, analyticsdomain.ErrInvalidRange),
		errors.Is(err, analyticsdomain.ErrInvalidContent),
		errors.Is(err, royaltydomain.ErrInvalidPeriod),
		errors.Is(err, contentdomain.ErrInvalidPodcast),
		errors.Is(err, contentdomain.ErrInvalidTitle),
		errors.Is(err, contentdomain.ErrInvalidKind),
		errors.Is(err, orgdomain.ErrInvalidName),
		errors.Is(err, orgdomain.ErrInvalidSlug),
		errors.Is(err, payoutdomain.ErrInvalidLegalName),
		errors.Is(err, payoutdomain.ErrInvalidEmail),
		errors.Is(err, payoutdomain.ErrInvalidCountry),
		errors.Is(err, payoutdomain.ErrInvalidBankDetails),
		errors.Is(err, payoutdomain.ErrInvalidTaxID),
		errors.Is(err, payoutdomain.ErrInvalidJurisdiction),
		errors.Is(err, payoutdomain.ErrInvalidEntityType),
		errors.Is(err, payoutdomain.ErrAgreementRequired):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, orgdomain.ErrInvalidOrganization),
		errors.Is(err, contentdomain.ErrPodcastNotFound),
		errors.Is(err, contentdomain.ErrContentNotFound),
		errors.Is(err, trackingdomain.ErrContentNotFound),
		errors.Is(err, royaltydomain.ErrStatementNotFound),
		errors.Is(err, payoutdomain.ErrStatementNotFound),
		errors.Is(err, payoutdomain.ErrInvalidOrganization),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, orgdomain.ErrSlugTaken),
		errors.Is(err, royaltydomain.ErrStatementPaid),
		errors.Is(err, royaltydomain.ErrStatementProcessing),
		errors.Is(err, payoutdomain.ErrAlreadyPaid),
		errors.Is(err, payoutdomain.ErrPayoutInProgress),
		errors.Is(err, payoutdomain.ErrPayeeAlreadyRegistered):
		return true
	default:
		return false
	}
}

// Payout gate failures are well-formed requests rejected by onboarding or
// statement state, not client mistakes.
func isPayoutGateError(err error) bool {
	switch {
	case errors.Is(err, payoutdomain.ErrOnboardingIncomplete),
		errors.Is(err, payoutdomain.ErrTaxProfileMissing),
		errors.Is(err, payoutdomain.ErrAccountNotActive),
		errors.Is(err, payoutdomain.ErrZeroAmount):
		return true
	default:
		return false
	}
}

func payoutGateMessage(err error) string {
	switch {
	case errors.Is(err, payoutdomain.ErrOnboardingIncomplete):
		return "payee registration is required before payout"
	case errors.Is(err, payoutdomain.ErrTaxProfileMissing):
		return "a submitted tax profile is required before payout"
	case errors.Is(err, payoutdomain.ErrZeroAmount):
		return "statement amount must be positive"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "agreement_required":
		return "agreement must be accepted"
	default:
		return "invalid value"
	}
}
