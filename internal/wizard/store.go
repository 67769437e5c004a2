package wizard

import "github.com/kargopost/orderwizard/internal/model"

// DraftStore накапливает черновик по шагам. Каждый шаг заменяет свой
// под-объект черновика целиком: поля, не присланные шагом, не переживают
// слияние. Рядом с черновиком живет таблица подписей (имя страны, города,
// типа доставки) для итоговой сводки.
type DraftStore struct {
	draft  model.Draft
	labels map[model.Step]map[string]string
}

func NewDraftStore(seed *model.Draft) *DraftStore {
	s := &DraftStore{
		labels: map[model.Step]map[string]string{},
	}
	if seed != nil {
		s.draft = *seed
	}
	return s
}

// Draft returns a copy of the accumulated draft.
func (s *DraftStore) Draft() model.Draft {
	return s.draft
}

func (s *DraftStore) MergeApplication(a model.Application) {
	s.draft.Application = a
}

// MergeOrder replaces the shipment parameters wholesale. The derived block
// is not step input: the previous computation survives the merge as long as
// the dimensional block did not change.
func (s *DraftStore) MergeOrder(o model.OrderDetails) {
	previous := s.draft.Order
	o.Derived = nil
	if previous.Derived != nil && previous.Dimensions.Equal(o.Dimensions) {
		o.Derived = previous.Derived
	}
	s.draft.Order = o
}

func (s *DraftStore) MergeParty(role model.PartyRole, p model.Party) {
	*s.draft.Party(role) = p
}

func (s *DraftStore) ResetStep(step model.Step) {
	switch step {
	case model.StepApplication:
		s.draft.Application = model.Application{}
	case model.StepSender:
		s.draft.Sender = model.Party{}
	case model.StepOrder:
		s.draft.Order = model.OrderDetails{}
		s.draft.Receiver = model.Party{}
	}
	delete(s.labels, step)
}

func (s *DraftStore) ResetAll() {
	s.draft = model.Draft{}
	s.labels = map[model.Step]map[string]string{}
}

// SetLabel records a resolved display name for the confirmation summary.
// Labels are updated opportunistically and never validated.
func (s *DraftStore) SetLabel(step model.Step, field, label string) {
	if s.labels[step] == nil {
		s.labels[step] = map[string]string{}
	}
	s.labels[step][field] = label
}

// Labels returns a copy of the display-only label table.
func (s *DraftStore) Labels() map[model.Step]map[string]string {
	out := make(map[model.Step]map[string]string, len(s.labels))
	for step, fields := range s.labels {
		copied := make(map[string]string, len(fields))
		for field, label := range fields {
			copied[field] = label
		}
		out[step] = copied
	}
	return out
}
