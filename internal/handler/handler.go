package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kargopost/orderwizard/internal/auth"
	"github.com/kargopost/orderwizard/internal/contacts"
	"github.com/kargopost/orderwizard/internal/gzip"
	"github.com/kargopost/orderwizard/internal/handler/config"
	"github.com/kargopost/orderwizard/internal/logger"
	"github.com/kargopost/orderwizard/internal/model"
	"github.com/kargopost/orderwizard/internal/refdata"
	"github.com/kargopost/orderwizard/internal/store"
	"github.com/kargopost/orderwizard/internal/submit"
	"github.com/kargopost/orderwizard/internal/validation"
	"github.com/kargopost/orderwizard/internal/wizard"
)

func Serve(cfg config.Config, auth auth.Auth, wiz *wizard.Wizard, refs refdata.Client, journal store.Journal, zaplog *zap.Logger) error {
	h := newHandler(wiz, refs, journal, zaplog)
	router := h.newRouter(auth, zaplog)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	return srv.ListenAndServe()
}

type handler struct {
	wizard  *wizard.Wizard
	refs    refdata.Client
	journal store.Journal
	zaplog  *zap.Logger
}

func newHandler(wiz *wizard.Wizard, refs refdata.Client, journal store.Journal, zaplog *zap.Logger) *handler {
	return &handler{
		wizard:  wiz,
		refs:    refs,
		journal: journal,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter(auth auth.Auth, zaplog *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	chain := func(hf http.HandlerFunc) http.HandlerFunc {
		return gzip.GzipMiddleware(logger.RequestLogMdlw(auth.Middleware(hf), zaplog))
	}

	mux.HandleFunc("POST /api/staff/login", gzip.GzipMiddleware(logger.RequestLogMdlw(auth.Login, zaplog)))

	mux.HandleFunc("POST /api/wizard", chain(h.OpenSession))
	mux.HandleFunc("GET /api/wizard/{id}", chain(h.GetState))
	mux.HandleFunc("DELETE /api/wizard/{id}", chain(h.CancelSession))
	mux.HandleFunc("POST /api/wizard/{id}/steps/{step}", chain(h.SubmitStep))
	mux.HandleFunc("POST /api/wizard/{id}/back", chain(h.Back))
	mux.HandleFunc("POST /api/wizard/{id}/party/{role}/contact", chain(h.AttachContact))
	mux.HandleFunc("POST /api/wizard/{id}/party/{role}/country", chain(h.SetCountry))
	mux.HandleFunc("POST /api/wizard/{id}/dimensions", chain(h.SetDimensions))
	mux.HandleFunc("GET /api/wizard/{id}/lookups", chain(h.GetLookups))
	mux.HandleFunc("GET /api/wizard/{id}/summary", chain(h.GetSummary))
	mux.HandleFunc("POST /api/wizard/{id}/submit", chain(h.Submit))

	mux.HandleFunc("GET /api/journal", chain(h.GetJournal))

	return mux
}

// httpStatus maps wizard and collaborator errors to response codes.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrMetricsPending):
		return http.StatusConflict
	case errors.Is(err, contacts.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

type openSessionJSONRequest struct {
	Seed *model.Draft `json:"seed,omitempty"`
}

type openSessionJSONResponse struct {
	ID   string     `json:"id"`
	Step model.Step `json:"step"`
}

func (h *handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionJSONRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	operator := r.Header.Get(auth.HeaderStaffCodeKey)
	session := h.wizard.Open(operator, req.Seed)

	writeJSON(w, http.StatusCreated, openSessionJSONResponse{
		ID:   session.ID,
		Step: model.StepApplication,
	})
}

func (h *handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.wizard.State(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.Cancel(r.PathValue("id")); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type applicationStepJSONRequest struct {
	model.Application
	Labels map[string]string `json:"labels,omitempty"`
}

type partyStepJSONRequest struct {
	model.Party
	Labels map[string]string `json:"labels,omitempty"`
}

type orderStepJSONRequest struct {
	Order    model.OrderDetails `json:"order"`
	Receiver *model.Party       `json:"receiver,omitempty"`
	Labels   map[string]string  `json:"labels,omitempty"`
}

type stepJSONResponse struct {
	Step   model.Step        `json:"step"`
	Errors map[string]string `json:"errors,omitempty"`
}

// SubmitStep validates one step and advances on success. Request bodies may
// carry a labels object with display names the client resolved from its
// loaded lists; they only feed the confirmation summary.
func (h *handler) SubmitStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	step := model.Step(r.PathValue("step"))

	var (
		res    validation.Result
		labels map[string]string
		err    error
	)

	switch step {
	case model.StepApplication:
		var req applicationStepJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		labels = req.Labels
		res, err = h.wizard.SubmitApplication(id, req.Application)
	case model.StepSender:
		var req partyStepJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		labels = req.Labels
		res, err = h.wizard.SubmitSender(id, req.Party)
	case model.StepOrder:
		var req orderStepJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		labels = req.Labels
		res, err = h.wizard.SubmitOrder(r.Context(), id, req.Order, req.Receiver)
	default:
		http.Error(w, "unknown step", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	if len(labels) > 0 {
		_ = h.wizard.SetLabels(id, step, labels)
	}

	if !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, stepJSONResponse{Step: step, Errors: res.Errors})
		return
	}

	state, err := h.wizard.State(id)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, stepJSONResponse{Step: state.Step})
}

type backJSONResponse struct {
	Step model.Step `json:"step"`
}

func (h *handler) Back(w http.ResponseWriter, r *http.Request) {
	step, err := h.wizard.Back(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, backJSONResponse{Step: step})
}

type contactJSONRequest struct {
	ContactID string `json:"contact_id"`
}

func (h *handler) AttachContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	role, ok := parseRole(r.PathValue("role"))
	if !ok {
		http.Error(w, "unknown party role", http.StatusBadRequest)
		return
	}

	var req contactJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.wizard.AttachContact(r.Context(), id, role, req.ContactID); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	state, err := h.wizard.State(id)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, state.Draft.Party(role))
}

type countryJSONRequest struct {
	CountryID int64 `json:"country_id"`
}

type countryJSONResponse struct {
	Cities  []refdata.Ref `json:"cities"`
	Applied bool          `json:"applied"`
}

// SetCountry changes a party's country and fetches the matching city list.
// If the country changes again before the fetch returns, the stale list is
// discarded and the client is told so.
func (h *handler) SetCountry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	role, ok := parseRole(r.PathValue("role"))
	if !ok {
		http.Error(w, "unknown party role", http.StatusBadRequest)
		return
	}

	var req countryJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	gen, err := h.wizard.SetCountry(id, role, req.CountryID)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	cities, err := h.refs.Cities(r.Context(), req.CountryID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	applied, err := h.wizard.OfferCities(id, role, gen, cities)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, countryJSONResponse{Cities: cities, Applied: applied})
}

type dimensionsJSONResponse struct {
	Derived *model.DerivedMetrics `json:"derived"`
}

func (h *handler) SetDimensions(w http.ResponseWriter, r *http.Request) {
	var dims model.Dimensions
	if err := json.NewDecoder(r.Body).Decode(&dims); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	derived, err := h.wizard.SetDimensions(r.Context(), r.PathValue("id"), dims)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, dimensionsJSONResponse{Derived: derived})
}

// GetLookups gathers the reference lists the active step needs. A fetch
// failure is a step-level error: the client shows it and retries manually.
func (h *handler) GetLookups(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	state, err := h.wizard.State(id)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	lookups, err := h.refs.StepLookups(r.Context(), state.Step)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, lookups)
}

func (h *handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.wizard.Summary(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type submitJSONRequest struct {
	Mode submit.Mode `json:"mode"`
}

type submitJSONResponse struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

func (h *handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mode != submit.ModeConfirm && req.Mode != submit.ModeDraft {
		http.Error(w, "mode must be confirm or draft", http.StatusBadRequest)
		return
	}

	result, err := h.wizard.Submit(r.Context(), r.PathValue("id"), req.Mode)
	if err != nil {
		var svcErr *submit.Error
		if errors.As(err, &svcErr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": svcErr.Message})
			return
		}
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, submitJSONResponse{
		ID:             result.ID,
		TrackingNumber: result.TrackingNumber,
	})
}

type journalEntryJSONResponse struct {
	TrackingNumber string    `json:"tracking_number"`
	RemoteID       string    `json:"remote_id"`
	Mode           string    `json:"mode"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetJournal lists the orders the current operator has submitted, newest
// first. Payload bodies stay in the journal; the listing carries only the
// identifying fields.
func (h *handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	operator := r.Header.Get(auth.HeaderStaffCodeKey)

	entries, err := h.journal.ByOperator(r.Context(), operator)
	if err != nil {
		h.zaplog.Error("journal lookup failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]journalEntryJSONResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, journalEntryJSONResponse{
			TrackingNumber: entry.TrackingNumber,
			RemoteID:       entry.RemoteID,
			Mode:           entry.Mode,
			CreatedAt:      entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseRole(raw string) (model.PartyRole, bool) {
	switch model.PartyRole(raw) {
	case model.RoleSender:
		return model.RoleSender, true
	case model.RoleReceiver:
		return model.RoleReceiver, true
	default:
		return "", false
	}
}
