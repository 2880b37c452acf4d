// Package paymentwebhook принимает события биллинг-провайдера.
//
// После проверки общего секрета обработчик всегда отвечает 200 {"received":true}:
// ошибки обработки фиксируются в логах и метриках, но наружу не выходят,
// иначе провайдер начнёт повторную доставку.
package paymentwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/metrics"
	"github.com/magabrotheeeer/course-access/internal/models"
)

const maxBodyBytes = 1 << 20

// Service обрабатывает событие биллинга. Ошибок не возвращает.
type Service interface {
	Process(ctx context.Context, ev models.BillingEvent)
}

// Handler принимает вебхуки биллинга.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
	secret  []byte // Общий секрет провайдера
}

// New создаёт Handler с общим секретом secret.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  []byte(secret),
	}
}

// Payload тело вебхука.
type Payload struct {
	Event struct {
		Type           string `json:"type" example:"INITIAL_PURCHASE"`
		AppUserID      string `json:"app_user_id" example:"8f14e45f-ceea-467f-a9a8-0f6b1b0a4a11"`
		ExpirationAtMs *int64 `json:"expiration_at_ms,omitempty" example:"1767225600000"`
		ProductID      string `json:"product_id,omitempty" example:"prod_123"`
	} `json:"event"`
}

// Ack фиксированный ответ на принятый вебхук.
type Ack struct {
	Received bool `json:"received" example:"true"`
}

// BillingEvent переводит тело вебхука в доменное событие.
func (p Payload) BillingEvent() models.BillingEvent {
	ev := models.BillingEvent{
		Type:      models.ParseEventType(p.Event.Type),
		RawType:   p.Event.Type,
		AppUserID: strings.TrimSpace(p.Event.AppUserID),
		ProductID: p.Event.ProductID,
	}
	if p.Event.ExpirationAtMs != nil {
		exp := time.UnixMilli(*p.Event.ExpirationAtMs).UTC()
		ev.ExpiresAt = &exp
	}
	return ev
}

// authorized сравнивает заголовок Authorization с секретом: допускается
// голый секрет или форма "Bearer <secret>".
func (h *Handler) authorized(header string) bool {
	if len(h.secret) == 0 || header == "" {
		return false
	}
	got := []byte(header)
	bare := subtle.ConstantTimeCompare(got, h.secret)
	bearer := subtle.ConstantTimeCompare(got, append([]byte("Bearer "), h.secret...))
	return bare|bearer == 1
}

// ServeHTTP godoc
// @Summary Вебхук биллинг-провайдера
// @Description Применяет событие подписки или разовой покупки. После аутентификации всегда отвечает 200.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param Authorization header string true "Общий секрет или Bearer <secret>"
// @Param request body Payload true "Событие биллинга"
// @Success 200 {object} Ack "Событие принято"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if !h.authorized(r.Header.Get("Authorization")) {
		log.Warn("invalid or missing webhook secret")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	h.handle(log, w, r)
	render.JSON(w, r, Ack{Received: true})
}

func (h *Handler) handle(log *slog.Logger, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		metrics.BillingEvents.WithLabelValues(string(models.EventUnrecognized), metrics.OutcomeRejected).Inc()
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		metrics.BillingEvents.WithLabelValues(string(models.EventUnrecognized), metrics.OutcomeRejected).Inc()
		return
	}

	h.service.Process(context.WithoutCancel(r.Context()), payload.BillingEvent())
}
