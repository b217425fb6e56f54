package valueobject

import "github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"

type ShiftState string

const (
	ShiftOpen                   ShiftState = "open"
	ShiftAssigned               ShiftState = "assigned"
	ShiftCheckedIn              ShiftState = "checked_in"
	ShiftAwaitingClientComplete ShiftState = "awaiting_client_complete"
	ShiftAwaitingWorkerConfirm  ShiftState = "awaiting_worker_confirm"
	ShiftAwaitingRating         ShiftState = "awaiting_rating"
	ShiftCompleted              ShiftState = "completed"
	ShiftDisputed               ShiftState = "disputed"
	ShiftResolved               ShiftState = "resolved"
	ShiftRejected               ShiftState = "rejected"
	ShiftCancelled              ShiftState = "cancelled"
)

func (s ShiftState) IsValid() bool {
	switch s {
	case ShiftOpen, ShiftAssigned, ShiftCheckedIn, ShiftAwaitingClientComplete, ShiftAwaitingWorkerConfirm,
		ShiftAwaitingRating, ShiftCompleted, ShiftDisputed, ShiftResolved, ShiftRejected, ShiftCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, что смена больше не двигается по workflow.
func (s ShiftState) IsTerminal() bool {
	return s == ShiftCompleted || s == ShiftCancelled
}

// IsPostDispute сообщает, что смена вышла из спора и продолжает путь к completed.
func (s ShiftState) IsPostDispute() bool {
	return s == ShiftResolved || s == ShiftRejected
}

// EffectiveShiftState возвращает состояние, по которому проверяются переходы.
// После разрешения спора смена продолжает с того места, где её заморозили.
func EffectiveShiftState(state ShiftState, resume *ShiftState) ShiftState {
	if state.IsPostDispute() && resume != nil {
		return *resume
	}
	return state
}

// Actor роль участника, инициирующего переход.
type Actor string

const (
	ActorClient Actor = "client"
	ActorWorker Actor = "worker"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)

func (a Actor) IsValid() bool {
	switch a {
	case ActorClient, ActorWorker, ActorAdmin, ActorSystem:
		return true
	}
	return false
}

type ShiftEvent string

const (
	EventApprove        ShiftEvent = "approve"
	EventCheckIn        ShiftEvent = "check_in"
	EventCheckOut       ShiftEvent = "check_out"
	EventComplete       ShiftEvent = "complete"
	EventConfirm        ShiftEvent = "confirm"
	EventConfirmTimeout ShiftEvent = "confirm_timeout"
	EventFinalize       ShiftEvent = "finalize"
	EventDispute        ShiftEvent = "dispute"
	EventResolve        ShiftEvent = "resolve"
	EventReject         ShiftEvent = "reject"
	EventCancel         ShiftEvent = "cancel"
)

// TransitionFacts факты из хранилища, от которых зависит целевое состояние.
type TransitionFacts struct {
	QuotaMet       bool
	AllCheckedOut  bool
	AllConfirmed   bool
	EscrowRefunded bool
	ResumeState    *ShiftState
}

type transitionRule struct {
	from   []ShiftState
	actors []Actor
}

var shiftTransitions = map[ShiftEvent]transitionRule{
	EventApprove:        {from: []ShiftState{ShiftOpen}, actors: []Actor{ActorClient, ActorAdmin}},
	EventCheckIn:        {from: []ShiftState{ShiftAssigned, ShiftCheckedIn}, actors: []Actor{ActorWorker}},
	EventCheckOut:       {from: []ShiftState{ShiftCheckedIn}, actors: []Actor{ActorWorker}},
	EventComplete:       {from: []ShiftState{ShiftCheckedIn, ShiftAwaitingClientComplete}, actors: []Actor{ActorClient, ActorAdmin}},
	EventConfirm:        {from: []ShiftState{ShiftAwaitingWorkerConfirm}, actors: []Actor{ActorWorker}},
	EventConfirmTimeout: {from: []ShiftState{ShiftAwaitingWorkerConfirm}, actors: []Actor{ActorSystem}},
	EventFinalize:       {from: []ShiftState{ShiftAwaitingRating}, actors: []Actor{ActorSystem, ActorAdmin}},
	EventDispute: {
		from: []ShiftState{ShiftOpen, ShiftAssigned, ShiftCheckedIn, ShiftAwaitingClientComplete,
			ShiftAwaitingWorkerConfirm, ShiftAwaitingRating, ShiftCompleted, ShiftDisputed},
		actors: []Actor{ActorClient, ActorWorker},
	},
	EventResolve: {from: []ShiftState{ShiftDisputed}, actors: []Actor{ActorAdmin}},
	EventReject:  {from: []ShiftState{ShiftDisputed}, actors: []Actor{ActorAdmin}},
	EventCancel:  {from: []ShiftState{ShiftOpen, ShiftAssigned}, actors: []Actor{ActorClient, ActorAdmin}},
}

// NextShiftState чистая функция перехода: по текущему (эффективному) состоянию,
// событию, роли и фактам возвращает целевое состояние или INVALID_TRANSITION.
func NextShiftState(current ShiftState, event ShiftEvent, actor Actor, facts TransitionFacts) (ShiftState, error) {
	rule, ok := shiftTransitions[event]
	if !ok {
		return "", apperror.Newf(apperror.ErrCodeInvalidTransition, "неизвестное событие %s", event)
	}
	if !containsActor(rule.actors, actor) {
		return "", apperror.Newf(apperror.ErrCodeInvalidTransition, "роль %s не может выполнить %s", actor, event)
	}

	from := current
	// Финализация после возврата средств по спору допустима из любого незавершённого состояния.
	finalizeAfterRefund := event == EventFinalize && facts.EscrowRefunded && !current.IsTerminal() && current != ShiftDisputed
	if !containsState(rule.from, from) && !finalizeAfterRefund {
		return "", apperror.Newf(apperror.ErrCodeInvalidTransition, "событие %s недопустимо в состоянии %s", event, current)
	}

	switch event {
	case EventApprove:
		if facts.QuotaMet {
			return ShiftAssigned, nil
		}
		return ShiftOpen, nil
	case EventCheckIn:
		return ShiftCheckedIn, nil
	case EventCheckOut:
		if facts.AllCheckedOut {
			return ShiftAwaitingClientComplete, nil
		}
		return ShiftCheckedIn, nil
	case EventComplete:
		return ShiftAwaitingWorkerConfirm, nil
	case EventConfirm:
		if facts.AllConfirmed {
			return ShiftAwaitingRating, nil
		}
		return ShiftAwaitingWorkerConfirm, nil
	case EventConfirmTimeout:
		return ShiftAwaitingRating, nil
	case EventFinalize:
		return ShiftCompleted, nil
	case EventDispute:
		return ShiftDisputed, nil
	case EventResolve, EventReject:
		if facts.ResumeState != nil && *facts.ResumeState == ShiftCompleted {
			return ShiftCompleted, nil
		}
		if event == EventResolve {
			return ShiftResolved, nil
		}
		return ShiftRejected, nil
	case EventCancel:
		return ShiftCancelled, nil
	}
	return "", apperror.ErrInvalidTransition
}

func containsState(list []ShiftState, s ShiftState) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsActor(list []Actor, a Actor) bool {
	for _, item := range list {
		if item == a {
			return true
		}
	}
	return false
}

type AssignmentState string

const (
	AssignmentAssigned  AssignmentState = "assigned"
	AssignmentOnWay     AssignmentState = "on_way"
	AssignmentCheckedIn AssignmentState = "checked_in"
	AssignmentCompleted AssignmentState = "completed"
	AssignmentNoShow    AssignmentState = "no_show"
	AssignmentCancelled AssignmentState = "cancelled"
)

// IsActive сообщает, участвует ли назначение в подтверждении и выплате.
func (s AssignmentState) IsActive() bool {
	return s != AssignmentNoShow && s != AssignmentCancelled
}

func (s AssignmentState) CanTransitionTo(next AssignmentState) bool {
	transitions := map[AssignmentState][]AssignmentState{
		AssignmentAssigned:  {AssignmentOnWay, AssignmentCheckedIn, AssignmentNoShow, AssignmentCancelled},
		AssignmentOnWay:     {AssignmentCheckedIn, AssignmentNoShow, AssignmentCancelled},
		AssignmentCheckedIn: {AssignmentCompleted},
		AssignmentCompleted: {},
		AssignmentNoShow:    {},
		AssignmentCancelled: {},
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowReleased || s == EscrowRefunded
}

// CanTransitionTo допускает только движение вперёд: pending→held→{released|refunded}.
// pending→refunded означает аннулирование холда, по которому деньги ещё не заблокированы.
func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	switch s {
	case EscrowPending:
		return next == EscrowHeld || next == EscrowRefunded
	case EscrowHeld:
		return next == EscrowReleased || next == EscrowRefunded
	}
	return false
}

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeInReview DisputeStatus = "in_review"
	DisputeResolved DisputeStatus = "resolved"
	DisputeRejected DisputeStatus = "rejected"
)

func (s DisputeStatus) IsClosed() bool {
	return s == DisputeResolved || s == DisputeRejected
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	switch s {
	case DisputeOpen:
		return next == DisputeInReview || next == DisputeResolved || next == DisputeRejected
	case DisputeInReview:
		return next == DisputeResolved || next == DisputeRejected
	}
	return false
}

type DisputeReason string

const (
	ReasonNoShow  DisputeReason = "no_show"
	ReasonLate    DisputeReason = "late"
	ReasonDamage  DisputeReason = "damage"
	ReasonQuality DisputeReason = "quality"
	ReasonPayment DisputeReason = "payment"
	ReasonOther   DisputeReason = "other"
)

func (r DisputeReason) IsValid() bool {
	switch r {
	case ReasonNoShow, ReasonLate, ReasonDamage, ReasonQuality, ReasonPayment, ReasonOther:
		return true
	}
	return false
}

// NewDisputeReason возвращает INVALID_REASON для значений вне перечня.
func NewDisputeReason(reason string) (DisputeReason, error) {
	r := DisputeReason(reason)
	if !r.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeInvalidReason, "недопустимая причина спора %q", reason)
	}
	return r, nil
}

type DisputeOutcome string

const (
	OutcomeResolve DisputeOutcome = "resolve"
	OutcomeReject  DisputeOutcome = "reject"
)

func (o DisputeOutcome) IsValid() bool {
	return o == OutcomeResolve || o == OutcomeReject
}

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)
