package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/payment"
)

var baseTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentNotification struct {
	UserID uuid.UUID
	Event  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Event: event})
}

func (n *recordingNotifier) events(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s.Event)
		}
	}
	return out
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Hold(ctx context.Context, holdID uuid.UUID, amount int64) error {
	args := m.Called(ctx, holdID, amount)
	return args.Error(0)
}

func (m *mockGateway) Release(ctx context.Context, holdID uuid.UUID) error {
	args := m.Called(ctx, holdID)
	return args.Error(0)
}

func (m *mockGateway) Refund(ctx context.Context, holdID uuid.UUID) error {
	args := m.Called(ctx, holdID)
	return args.Error(0)
}

type testEnv struct {
	ctx      context.Context
	ledger   *memLedger
	gateway  PaymentGateway
	notifier *recordingNotifier
	clock    *testClock
	policy   config.Policy

	escrow   *EscrowService
	shifts   *ShiftService
	ratings  *RatingService
	disputes *DisputeService
	sweep    *SweepJobs

	admin Caller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithGateway(t, payment.NewSimulatedGateway())
}

func newTestEnvWithGateway(t *testing.T, gateway PaymentGateway) *testEnv {
	t.Helper()

	policy := config.DefaultPolicy()
	policy.MinPayRate = 100
	policy.AdapterTimeout = time.Second

	env := &testEnv{
		ctx:      context.Background(),
		ledger:   newMemLedger(),
		gateway:  gateway,
		notifier: &recordingNotifier{},
		clock:    &testClock{t: baseTime},
		policy:   policy,
		admin:    Caller{ID: uuid.New(), Role: valueobject.ActorAdmin},
	}

	env.escrow = NewEscrowService(env.ledger, gateway, policy.AdapterTimeout)
	env.escrow.now = env.clock.Now
	env.shifts = NewShiftService(env.ledger, env.escrow, env.notifier, policy)
	env.shifts.now = env.clock.Now
	env.ratings = NewRatingService(env.ledger, nil, env.notifier, env.shifts)
	env.ratings.now = env.clock.Now
	env.disputes = NewDisputeService(env.ledger, env.escrow, env.notifier, env.shifts, policy)
	env.disputes.now = env.clock.Now
	env.sweep = NewSweepJobs(env.ledger, env.shifts, env.escrow, policy)
	env.sweep.now = env.clock.Now
	return env
}

func newClient() Caller {
	return Caller{ID: uuid.New(), Role: valueobject.ActorClient}
}

func newWorker() Caller {
	return Caller{ID: uuid.New(), Role: valueobject.ActorWorker}
}

// createShift публикует смену клиента с комиссией 12%.
func (e *testEnv) createShift(t *testing.T, client Caller, workers int, rate int64) *models.Shift {
	t.Helper()
	shift, err := e.shifts.CreateShift(e.ctx, client, CreateShiftInput{
		Title:           "Разгрузка склада",
		Category:        "loading",
		Location:        "Москва, ул. Складская, 1",
		StartsAt:        baseTime.Add(time.Hour),
		EndsAt:          baseTime.Add(9 * time.Hour),
		RequiredWorkers: workers,
		PayRate:         rate,
	})
	require.NoError(t, err)
	require.True(t, shift.CommissionPercent.Equal(decimal.NewFromInt(12)))
	return shift
}

// staffShift набирает работников на смену и возвращает их назначения.
func (e *testEnv) staffShift(t *testing.T, client Caller, shift *models.Shift) ([]Caller, []*models.Assignment) {
	t.Helper()
	workers := make([]Caller, 0, shift.RequiredWorkers)
	assignments := make([]*models.Assignment, 0, shift.RequiredWorkers)
	for i := 0; i < shift.RequiredWorkers; i++ {
		w := newWorker()
		_, err := e.shifts.ApplyToShift(e.ctx, w, shift.ID, nil)
		require.NoError(t, err)
		res, err := e.shifts.ApproveApplication(e.ctx, client, shift.ID, w.ID)
		require.NoError(t, err)
		workers = append(workers, w)
		assignments = append(assignments, res.Assignment)
	}
	return workers, assignments
}

// workUntilConfirm доводит смену до awaiting_worker_confirm: все работники
// отмечаются, уходят, клиент отмечает выполнение.
func (e *testEnv) workUntilConfirm(t *testing.T, client Caller, shift *models.Shift, workers []Caller, assignments []*models.Assignment) {
	t.Helper()
	e.clock.Set(shift.StartsAt)
	for i, a := range assignments {
		_, err := e.shifts.CheckIn(e.ctx, workers[i], a.ID, models.CheckInEvidence{})
		require.NoError(t, err)
	}
	e.clock.Set(shift.EndsAt)
	for i, a := range assignments {
		_, err := e.shifts.CheckOut(e.ctx, workers[i], a.ID)
		require.NoError(t, err)
	}
	res, err := e.shifts.CompleteShift(e.ctx, client, shift.ID)
	require.NoError(t, err)
	require.Equal(t, valueobject.ShiftAwaitingWorkerConfirm, res.Shift.State)
}

// workUntilRating доводит смену до awaiting_rating.
func (e *testEnv) workUntilRating(t *testing.T, client Caller, shift *models.Shift) ([]Caller, []*models.Assignment) {
	t.Helper()
	workers, assignments := e.staffShift(t, client, shift)
	e.workUntilConfirm(t, client, shift, workers, assignments)
	for i, a := range assignments {
		_, err := e.shifts.ConfirmCompletion(e.ctx, workers[i], a.ID)
		require.NoError(t, err)
	}
	current, err := e.ledger.GetShift(e.ctx, shift.ID)
	require.NoError(t, err)
	require.Equal(t, valueobject.ShiftAwaitingRating, current.State)
	return workers, assignments
}

func (e *testEnv) shift(t *testing.T, id uuid.UUID) *models.Shift {
	t.Helper()
	s, err := e.ledger.GetShift(e.ctx, id)
	require.NoError(t, err)
	return s
}

func (e *testEnv) hold(t *testing.T, shiftID uuid.UUID) *models.EscrowHold {
	t.Helper()
	h, err := e.ledger.GetShiftEscrow(e.ctx, shiftID)
	require.NoError(t, err)
	return h
}

func (e *testEnv) assignment(t *testing.T, id uuid.UUID) *models.Assignment {
	t.Helper()
	a, err := e.ledger.GetAssignment(e.ctx, id)
	require.NoError(t, err)
	return a
}

// barrier задерживает коммиты, пока все n транзакций не дойдут до коммита.
func barrier(n int) func() {
	var wg sync.WaitGroup
	wg.Add(n)
	return func() {
		wg.Done()
		wg.Wait()
	}
}

func entriesOfType(entries []models.LedgerEntry, typ string) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
