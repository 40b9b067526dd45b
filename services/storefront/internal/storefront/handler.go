package storefront

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	tabs   *TabStore
	logger aqm.Logger
	config *aqm.Config
	tlm    *telemetry.HTTP
}

func NewHandler(tabs *TabStore, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		tabs:   tabs,
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tabs", func(r chi.Router) {
		r.Post("/", h.OpenTab)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.CloseTab)
			r.Get("/view", h.GetView)
			r.Get("/events", h.StreamViews)
			r.Put("/cards", h.UpdateCards)
			r.Put("/lang", h.SetLang)
			r.Post("/notifications", h.Notify)
			r.Post("/orders/{orderID}/rate", h.RateOrder)
			r.Post("/rating/star", h.SelectStar)
			r.Post("/rating/comment", h.SetComment)
			r.Post("/rating/submit", h.Submit)
			r.Post("/rating/skip", h.Skip)
			r.Post("/rating/close", h.CloseModal)
		})
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

type openTabResponse struct {
	TabID     string           `json:"tab_id"`
	Table     string           `json:"table,omitempty"`
	URL       string           `json:"url"`
	Lang      string           `json:"lang"`
	Dir       string           `json:"dir"`
	ExpiresAt time.Time        `json:"expires_at"`
	View      rating.ModalView `json:"view"`
}

func (h *Handler) OpenTab(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenTab")
	defer finish()
	log := h.log(r)

	var req OpenTabRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Lang == "" {
		req.Lang = r.Header.Get("Accept-Language")
	}

	tab, err := h.tabs.Open(req)
	if err != nil {
		if errors.Is(err, ErrInvalidURL) {
			aqm.RespondError(w, http.StatusBadRequest, "Invalid tab URL")
			return
		}
		log.Errorf("cannot open tab: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not open tab")
		return
	}

	locale := rating.LocaleFor(req.Lang)
	aqm.Respond(w, http.StatusCreated, openTabResponse{
		TabID:     tab.ID,
		Table:     tab.Table,
		URL:       tab.URL,
		Lang:      locale.Lang,
		Dir:       locale.Direction(),
		ExpiresAt: tab.ExpiresAt(),
		View:      tab.Controller().View(),
	}, nil)
}

func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseTab")
	defer finish()

	if !h.tabs.Close(chi.URLParam(r, "id")) {
		aqm.RespondError(w, http.StatusNotFound, "Tab not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetView")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) UpdateCards(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateCards")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	var payload struct {
		Cards map[string]string `json:"cards"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	tab.Cards().Replace(payload.Cards)
	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"cards": len(payload.Cards),
	}, nil)
}

func (h *Handler) SetLang(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetLang")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	var payload struct {
		Lang string `json:"lang"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	tab.Controller().SetLocale(rating.LocaleFor(payload.Lang))
	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Notify")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	var n rating.Notification
	if !h.decode(w, r, &n) {
		return
	}

	aqm.Respond(w, http.StatusAccepted, map[string]interface{}{
		"accepted": tab.Notify(n),
	}, nil)
}

func (h *Handler) RateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RateOrder")
	defer finish()
	log := h.log(r)

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	started, err := tab.Controller().RequestRating(r.Context(), orderID)
	if err != nil {
		log.Info("rating request failed", "tab_id", tab.ID, "order_id", orderID, "error", err)
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"started": started,
		"view":    tab.Controller().View(),
	}, nil)
}

func (h *Handler) SelectStar(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SelectStar")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	var payload struct {
		Rating int `json:"rating"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	if err := tab.Controller().SelectStar(payload.Rating); err != nil {
		h.respondRatingError(w, err)
		return
	}

	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) SetComment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetComment")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	var payload struct {
		Comment string `json:"comment"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	if err := tab.Controller().SetComment(payload.Comment); err != nil {
		h.respondRatingError(w, err)
		return
	}

	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Submit")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	if err := tab.Controller().Submit(r.Context()); err != nil {
		h.respondRatingError(w, err)
		return
	}

	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Skip")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	if err := tab.Controller().Skip(r.Context()); err != nil {
		h.respondRatingError(w, err)
		return
	}

	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) CloseModal(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseModal")
	defer finish()

	tab, ok := h.tab(w, r)
	if !ok {
		return
	}

	tab.Controller().Close()
	aqm.Respond(w, http.StatusOK, tab.Controller().View(), nil)
}

func (h *Handler) tab(w http.ResponseWriter, r *http.Request) (*Tab, bool) {
	tab, err := h.tabs.Get(chi.URLParam(r, "id"))
	if err != nil {
		aqm.RespondError(w, http.StatusNotFound, "Tab not found")
		return nil, false
	}
	return tab, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

func (h *Handler) respondRatingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rating.ErrInvalidRating):
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rating.ErrNoRating):
		aqm.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, rating.ErrNoSession), errors.Is(err, rating.ErrNotPresenting):
		aqm.RespondError(w, http.StatusConflict, err.Error())
	default:
		aqm.RespondError(w, http.StatusInternalServerError, "Could not update rating")
	}
}
