package handler

import (
	"errors"
	"net/http"

	"order-bot/project/domain"
	"order-bot/project/dto"
	"order-bot/project/service"

	"github.com/rs/zerolog/hlog"
)

// AddOrderHandler は Mini App から注文を追加します
type AddOrderHandler struct {
	auth   InitDataAuthenticator
	orders service.OrderService
}

// NewAddOrderHandler は注文追加ハンドラーを作成します
func NewAddOrderHandler(auth InitDataAuthenticator, orders service.OrderService) *AddOrderHandler {
	return &AddOrderHandler{
		auth:   auth,
		orders: orders,
	}
}

// ServeHTTP は /api/add-order エンドポイント
func (h *AddOrderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req dto.AddOrderRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.InitData == "" {
		writeError(w, http.StatusBadRequest, errMissingInitData)
		return
	}
	if !req.HasData() {
		writeError(w, http.StatusBadRequest, errMissingData)
		return
	}

	session, ok := authenticate(w, r, h.auth, req.InitData)
	if !ok {
		return
	}

	orders, err := req.DecodeOrders()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.Add(r.Context(), service.SourceWeb, orders); err != nil {
		if errors.Is(err, domain.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", userID(session)).Msg("order append failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AddOrderResponse{Success: true, Added: len(orders)})
}
