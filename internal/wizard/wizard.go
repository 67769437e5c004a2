// Package wizard drives the order creation workflow: a session per
// operator walks Application -> Sender -> Order -> Confirm, accumulating
// one draft. The wizard is the sole mutator of the draft; steps hand it
// validated updates and collaborator results are applied through it.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kargopost/orderwizard/internal/audit"
	"github.com/kargopost/orderwizard/internal/contacts"
	"github.com/kargopost/orderwizard/internal/model"
	"github.com/kargopost/orderwizard/internal/refdata"
	"github.com/kargopost/orderwizard/internal/store"
	"github.com/kargopost/orderwizard/internal/submit"
	"github.com/kargopost/orderwizard/internal/validation"
	"github.com/kargopost/orderwizard/internal/wizard/config"
)

var (
	ErrSessionNotFound    = errors.New("wizard session not found")
	ErrWrongStep          = errors.New("operation not allowed at this step")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrMetricsPending     = errors.New("derived metrics not computed yet")
)

// Внешние участники мастера

type MetricsClient interface {
	Compute(ctx context.Context, dims model.Dimensions) (model.DerivedMetrics, error)
}

type ContactResolver interface {
	Contact(ctx context.Context, contactID string) (contacts.PartyFields, error)
}

type Submitter interface {
	CreateOrder(ctx context.Context, payload submit.Payload) (submit.Result, error)
	CreateDraftOrder(ctx context.Context, payload submit.Payload) (submit.Result, error)
}

// Session - одна проводка мастера. Черновик не переживает сессию.
type Session struct {
	ID       string
	Operator string

	mu          sync.Mutex
	step        model.Step
	store       *DraftStore
	cityGen     map[model.PartyRole]uint64
	cityChoices map[model.PartyRole][]refdata.Ref
	derivedFor  model.Dimensions
	submitting  bool
	touchedAt   time.Time
}

type Wizard struct {
	cfg       config.Config
	metrics   MetricsClient
	contacts  ContactResolver
	submitter Submitter
	journal   store.Journal
	audit     *audit.Publisher
	zaplog    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(cfg config.Config,
	metrics MetricsClient,
	resolver ContactResolver,
	submitter Submitter,
	journal store.Journal,
	auditpub *audit.Publisher,
	zaplog *zap.Logger,
) *Wizard {
	return &Wizard{
		cfg:       cfg,
		metrics:   metrics,
		contacts:  resolver,
		submitter: submitter,
		journal:   journal,
		audit:     auditpub,
		zaplog:    zaplog,
		sessions:  map[string]*Session{},
	}
}

// Open starts a session with an empty draft, or seeds it from an existing
// record when the operator resumes an edit.
func (w *Wizard) Open(operator string, seed *model.Draft) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		Operator:    operator,
		step:        model.StepApplication,
		store:       NewDraftStore(seed),
		cityGen:     map[model.PartyRole]uint64{},
		cityChoices: map[model.PartyRole][]refdata.Ref{},
		touchedAt:   time.Now(),
	}

	w.mu.Lock()
	w.sessions[s.ID] = s
	w.mu.Unlock()

	return s
}

func (w *Wizard) session(id string) (*Session, error) {
	w.mu.RLock()
	s, ok := w.sessions[id]
	w.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (w *Wizard) drop(id string) {
	w.mu.Lock()
	delete(w.sessions, id)
	w.mu.Unlock()
}

// Cancel abandons the session. The draft is discarded without a trace.
// A session whose submission is in flight cannot be cancelled: the remote
// order may already exist.
func (w *Wizard) Cancel(id string) error {
	s, err := w.session(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	s.store.ResetAll()
	s.mu.Unlock()

	w.drop(id)
	return nil
}

// StartJanitor sweeps idle sessions until the context is canceled.
func (w *Wizard) StartJanitor(ctx context.Context) {
	ttl := w.cfg.SessionTTL
	if ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(-ttl)
				w.mu.Lock()
				for id, s := range w.sessions {
					s.mu.Lock()
					idle := s.touchedAt.Before(deadline) && !s.submitting
					s.mu.Unlock()
					if idle {
						delete(w.sessions, id)
						w.zaplog.Info("dropped idle wizard session", zap.String("session", id))
					}
				}
				w.mu.Unlock()
			}
		}
	}()
}

// State - снимок сессии для клиента
type State struct {
	ID     string                            `json:"id"`
	Step   model.Step                        `json:"step"`
	Draft  model.Draft                       `json:"draft"`
	Labels map[model.Step]map[string]string  `json:"labels"`
	Cities map[model.PartyRole][]refdata.Ref `json:"cities,omitempty"`
}

func (w *Wizard) State(id string) (State, error) {
	s, err := w.session(id)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	cities := make(map[model.PartyRole][]refdata.Ref, len(s.cityChoices))
	for role, refs := range s.cityChoices {
		cities[role] = refs
	}

	return State{
		ID:     s.ID,
		Step:   s.step,
		Draft:  s.store.Draft(),
		Labels: s.store.Labels(),
		Cities: cities,
	}, nil
}

// SubmitApplication validates and merges the application step. Advancement
// happens only on a valid result; an invalid result is returned to the
// client with field-scoped errors and the draft stays as it was.
func (w *Wizard) SubmitApplication(id string, app model.Application) (validation.Result, error) {
	s, err := w.session(id)
	if err != nil {
		return validation.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	if s.step != model.StepApplication {
		return validation.Result{}, ErrWrongStep
	}

	app.NormalizeShape()
	res := validation.Application(app)
	if !res.Valid {
		return res, nil
	}

	s.store.MergeApplication(app)
	s.step = model.StepSender
	return res, nil
}

// SubmitSender validates and merges the sender step.
func (w *Wizard) SubmitSender(id string, p model.Party) (validation.Result, error) {
	s, err := w.session(id)
	if err != nil {
		return validation.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	if s.step != model.StepSender {
		return validation.Result{}, ErrWrongStep
	}

	p.NormalizeShape()
	res := validation.Party(p)
	s.checkCity(model.RoleSender, p, &res)
	if !res.Valid {
		return res, nil
	}

	s.store.MergeParty(model.RoleSender, p)
	s.step = model.StepOrder
	return res, nil
}

// SubmitOrder validates and merges the shipment parameters, with the
// receiver as an optional part of the same step.
func (w *Wizard) SubmitOrder(ctx context.Context, id string, o model.OrderDetails, receiver *model.Party) (validation.Result, error) {
	s, err := w.session(id)
	if err != nil {
		return validation.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	if s.step != model.StepOrder {
		return validation.Result{}, ErrWrongStep
	}

	res := validation.Order(o)
	if receiver != nil && !receiver.IsZero() {
		receiver.NormalizeShape()
		receiverRes := validation.Party(*receiver)
		s.checkCity(model.RoleReceiver, *receiver, &receiverRes)
		for field, message := range receiverRes.Errors {
			res.Fail("receiver."+field, message)
		}
	}
	if !res.Valid {
		return res, nil
	}

	s.store.MergeOrder(o)
	if receiver != nil && !receiver.IsZero() {
		s.store.MergeParty(model.RoleReceiver, *receiver)
	}
	w.recompute(ctx, s)
	s.step = model.StepConfirm
	return res, nil
}

// checkCity enforces that the chosen city belongs to the city list offered
// for the party's current country.
func (s *Session) checkCity(role model.PartyRole, p model.Party, res *validation.Result) {
	choices := s.cityChoices[role]
	if choices == nil || p.CityID == 0 {
		return
	}
	if _, ok := refdata.Name(choices, p.CityID); !ok {
		res.Fail("city_id", "city does not belong to the selected country")
	}
}

// Back moves to the previous step. Data entered on steps ahead is kept.
func (w *Wizard) Back(id string) (model.Step, error) {
	s, err := w.session(id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	switch s.step {
	case model.StepSender:
		s.step = model.StepApplication
	case model.StepOrder:
		s.step = model.StepSender
	case model.StepConfirm:
		s.step = model.StepOrder
	default:
		return s.step, ErrWrongStep
	}
	return s.step, nil
}

// SetDimensions applies a dimensional change and recomputes the derived
// block when the set is complete. A failed computation keeps the previous
// derived values: stale, never corrupted.
func (w *Wizard) SetDimensions(ctx context.Context, id string, dims model.Dimensions) (*model.DerivedMetrics, error) {
	s, err := w.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	s.store.draft.Order.Dimensions = dims
	w.recompute(ctx, s)
	return s.store.draft.Order.Derived, nil
}

// recompute runs the derived-metrics rule: it fires whenever the
// dimensional set {weight, width, length, height} is complete and differs
// from the set the current derived block was computed for. The computed
// triple overwrites the previous one unconditionally; a failed computation
// leaves it stale. Caller holds the session lock; it is released for the
// duration of the remote call so other session operations are not stuck
// behind a slow tariff service.
func (w *Wizard) recompute(ctx context.Context, s *Session) {
	dims := s.store.draft.Order.Dimensions
	if !dims.Complete() {
		return
	}
	if s.store.draft.Order.Derived != nil && s.derivedFor.Equal(dims) {
		return
	}

	s.mu.Unlock()
	derived, err := w.metrics.Compute(ctx, dims)
	s.mu.Lock()

	if err != nil {
		// расчетный блок остается прежним
		w.zaplog.Error("derived metrics computation failed",
			zap.String("session", s.ID),
			zap.Error(err))
		return
	}
	// габариты могли смениться, пока шел расчет
	if !s.store.draft.Order.Dimensions.Equal(dims) {
		return
	}
	s.store.draft.Order.Derived = &derived
	s.derivedFor = dims
}

// SetCountry changes a party's country. The previously chosen city is
// invalidated and any city lookup still in flight for the old country is
// superseded: only lists offered under the returned generation apply.
func (w *Wizard) SetCountry(id string, role model.PartyRole, countryID int64) (uint64, error) {
	s, err := w.session(id)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	p := s.store.draft.Party(role)
	if p.CountryID != countryID {
		p.CountryID = countryID
		p.CityID = 0
		s.cityGen[role]++
		s.cityChoices[role] = nil
	}
	return s.cityGen[role], nil
}

// OfferCities installs a fetched city list for the party, unless the
// country changed again while the lookup was in flight.
func (w *Wizard) OfferCities(id string, role model.PartyRole, gen uint64, cities []refdata.Ref) (bool, error) {
	s, err := w.session(id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.cityGen[role] {
		return false, nil
	}
	s.cityChoices[role] = cities
	return true, nil
}

// AttachContact resolves a saved contact and overwrites the party's
// identification fields with the contact's profile. Overwriting manual
// edits on (re)selection is intentional. An empty contactID detaches the
// contact and resets the managed fields to empty defaults.
func (w *Wizard) AttachContact(ctx context.Context, id string, role model.PartyRole, contactID string) error {
	s, err := w.session(id)
	if err != nil {
		return err
	}

	if contactID == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.touchedAt = time.Now()
		p := s.store.draft.Party(role)
		p.Type = model.PartyTypeIndividual
		p.Person = model.Person{}
		p.Company = model.Company{}
		p.Phone = ""
		p.CountryID = 0
		p.CityID = 0
		p.ContactID = ""
		s.cityGen[role]++
		s.cityChoices[role] = nil
		return nil
	}

	fields, err := w.contacts.Contact(ctx, contactID)
	if err != nil {
		// поля шага остаются как были
		w.zaplog.Warn("contact resolution failed",
			zap.String("session", id),
			zap.String("contact", contactID),
			zap.Error(err))
		return fmt.Errorf("resolve contact %s: %w", contactID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	p := s.store.draft.Party(role)
	if p.CountryID != fields.CountryID {
		s.cityGen[role]++
		s.cityChoices[role] = nil
	}
	p.Type = fields.Type
	p.Person = fields.Person
	p.Company = fields.Company
	p.Phone = fields.Phone
	p.CountryID = fields.CountryID
	p.CityID = fields.CityID
	p.ContactID = contactID
	p.NormalizeShape()
	// адресные поля (улица, дом, заметки) контакт не несет - не трогаем
	return nil
}

// SetLabels merges resolved display names into the label side table.
func (w *Wizard) SetLabels(id string, step model.Step, labels map[string]string) error {
	s, err := w.session(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for field, label := range labels {
		s.store.SetLabel(step, field, label)
	}
	return nil
}

// Summary - данные итогового шага
type Summary struct {
	Draft  model.Draft                      `json:"draft"`
	Labels map[model.Step]map[string]string `json:"labels"`
}

func (w *Wizard) Summary(id string) (Summary, error) {
	s, err := w.session(id)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()

	return Summary{
		Draft:  s.store.Draft(),
		Labels: s.store.Labels(),
	}, nil
}

// Submit runs a terminal action: mode confirm creates a live order, mode
// draft a pending one. Only one submission may be in flight per session;
// on success the draft is cleared and the session closed, on failure the
// session stays at the confirm step for a manual retry.
func (w *Wizard) Submit(ctx context.Context, id string, mode submit.Mode) (submit.Result, error) {
	s, err := w.session(id)
	if err != nil {
		return submit.Result{}, err
	}

	s.mu.Lock()
	if s.step != model.StepConfirm {
		s.mu.Unlock()
		return submit.Result{}, ErrWrongStep
	}
	if s.submitting {
		s.mu.Unlock()
		return submit.Result{}, ErrSubmissionInFlight
	}
	draft := s.store.Draft()
	if !draft.Order.Dimensions.Complete() ||
		draft.Order.Derived == nil ||
		!s.derivedFor.Equal(draft.Order.Dimensions) {
		s.mu.Unlock()
		return submit.Result{}, ErrMetricsPending
	}
	s.submitting = true
	s.touchedAt = time.Now()
	s.mu.Unlock()

	trackingNumber := submit.NewTrackingNumber()
	payload := submit.BuildPayload(draft, trackingNumber)

	var result submit.Result
	if mode == submit.ModeDraft {
		result, err = w.submitter.CreateDraftOrder(ctx, payload)
	} else {
		result, err = w.submitter.CreateOrder(ctx, payload)
	}
	if err != nil {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
		w.zaplog.Error("order submission failed",
			zap.String("session", id),
			zap.String("mode", string(mode)),
			zap.Error(err))
		return submit.Result{}, err
	}

	result.TrackingNumber = trackingNumber
	w.record(ctx, s, trackingNumber, result.ID, mode, payload)

	s.mu.Lock()
	s.step = model.StepSubmitted
	s.store.ResetAll()
	s.submitting = false
	s.mu.Unlock()

	w.drop(id)
	return result, nil
}

// record writes the journal row and publishes the audit event. Both are
// best effort: the remote order already exists.
func (w *Wizard) record(ctx context.Context, s *Session, trackingNumber, remoteID string, mode submit.Mode, payload submit.Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.zaplog.Error("marshal journal payload", zap.Error(err))
		body = nil
	}

	err = w.journal.Record(ctx, store.Entry{
		TrackingNumber: trackingNumber,
		RemoteID:       remoteID,
		Mode:           string(mode),
		Operator:       s.Operator,
		Payload:        body,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		w.zaplog.Error("journal submitted order", zap.Error(err))
	}

	err = w.audit.Publish(audit.SubmissionEvent{
		Timestamp:      time.Now(),
		TrackingNumber: trackingNumber,
		RemoteID:       remoteID,
		Mode:           string(mode),
		Operator:       s.Operator,
	})
	if err != nil {
		w.zaplog.Error("publish audit event", zap.Error(err))
	}
}
