package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	"github.com/asdwsxzc123/jiale-mrp/api/validators"
	"github.com/asdwsxzc123/jiale-mrp/internal/payments"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type paymentCreateRequest struct {
	CounterpartyID uuid.UUID        `json:"counterpartyId" validate:"required"`
	Date           *time.Time       `json:"date"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	ExchangeRate   *decimal.Decimal `json:"exchangeRate"`
	PaymentMethod  *string          `json:"paymentMethod"`
	Reference      *string          `json:"reference"`
	Description    *string          `json:"description"`
}

type paymentUpdateRequest struct {
	Date          *time.Time       `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod *string          `json:"paymentMethod"`
	Reference     *string          `json:"reference"`
	Description   *string          `json:"description"`
}

func PaymentList(domain enums.DocumentDomain, svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counterpartyID, err := validators.QueryUUID(r, "counterpartyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), payments.ListParams{
			Domain:         domain,
			CounterpartyID: counterpartyID,
			Params:         pagination.FromQuery(r.URL.Query()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// PaymentCreate records a payment and reduces the counterparty's outstanding balance.
func PaymentCreate(domain enums.DocumentDomain, svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Create(r.Context(), payments.CreateInput{
			Domain:         domain,
			CounterpartyID: payload.CounterpartyID,
			Date:           payload.Date,
			Amount:         payload.Amount,
			Currency:       enums.Currency(payload.Currency),
			ExchangeRate:   payload.ExchangeRate,
			PaymentMethod:  payload.PaymentMethod,
			Reference:      payload.Reference,
			Description:    payload.Description,
			CreatedBy:      middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func PaymentGet(domain enums.DocumentDomain, svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Get(r.Context(), domain, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func PaymentUpdate(domain enums.DocumentDomain, svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload paymentUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Update(r.Context(), payments.UpdateInput{
			Domain:        domain,
			ID:            id,
			Date:          payload.Date,
			Amount:        payload.Amount,
			PaymentMethod: payload.PaymentMethod,
			Reference:     payload.Reference,
			Description:   payload.Description,
			ActorUserID:   middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func PaymentDelete(domain enums.DocumentDomain, svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), domain, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
