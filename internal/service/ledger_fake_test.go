package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

// memStore строки хранилища. Используется и как зафиксированное состояние,
// и как набор изменений транзакции.
type memStore struct {
	shifts      map[uuid.UUID]models.Shift
	apps        map[uuid.UUID]models.Application
	assignments map[uuid.UUID]models.Assignment
	holds       map[uuid.UUID]models.EscrowHold
	holdSeq     map[uuid.UUID]int
	entries     []models.LedgerEntry
	ratings     map[uuid.UUID]models.Rating
	stats       map[uuid.UUID]models.UserRatingStat
	disputes    map[uuid.UUID]models.Dispute
	profiles    map[uuid.UUID]models.WorkerProfile
}

func newMemStore() *memStore {
	return &memStore{
		shifts:      map[uuid.UUID]models.Shift{},
		apps:        map[uuid.UUID]models.Application{},
		assignments: map[uuid.UUID]models.Assignment{},
		holds:       map[uuid.UUID]models.EscrowHold{},
		holdSeq:     map[uuid.UUID]int{},
		ratings:     map[uuid.UUID]models.Rating{},
		stats:       map[uuid.UUID]models.UserRatingStat{},
		disputes:    map[uuid.UUID]models.Dispute{},
		profiles:    map[uuid.UUID]models.WorkerProfile{},
	}
}

// memLedger хранилище в памяти с семантикой READ COMMITTED: чтения видят
// зафиксированные строки и собственные изменения транзакции, Update* проверяют
// версию при записи и ещё раз при коммите, Lock* держат построчную блокировку
// до конца транзакции.
type memLedger struct {
	*memTx

	mu       sync.Mutex
	c        *memStore
	seq      int
	keyLocks map[string]*sync.Mutex

	// beforeCommit вызывается перед проверкой и применением изменений.
	beforeCommit func()
	// beforeLock вызывается перед захватом построчной блокировки.
	beforeLock func(key string)
	// failOn заставляет метод транзакции вернуть ошибку.
	failOn map[string]error
}

func newMemLedger() *memLedger {
	l := &memLedger{c: newMemStore(), keyLocks: map[string]*sync.Mutex{}, failOn: map[string]error{}}
	l.memTx = l.begin()
	return l
}

func (l *memLedger) begin() *memTx {
	return &memTx{
		l:              l,
		w:              newMemStore(),
		shiftBase:      map[uuid.UUID]int64{},
		assignmentBase: map[uuid.UUID]int64{},
		disputeBase:    map[uuid.UUID]int64{},
		statBase:       map[uuid.UUID]int64{},
		holdBase:       map[uuid.UUID]valueobject.EscrowStatus{},
		held:           map[string]bool{},
	}
}

func (l *memLedger) WithTx(ctx context.Context, fn func(tx domainrepo.LedgerTx) error) error {
	tx := l.begin()
	defer tx.release()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (l *memLedger) keyLock(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.keyLocks[key]
	if !ok {
		m = &sync.Mutex{}
		l.keyLocks[key] = m
	}
	return m
}

func (l *memLedger) fail(method string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failOn[method]
}

// seed кладёт строки напрямую в зафиксированное состояние.
func (l *memLedger) seedShift(s models.Shift) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.shifts[s.ID] = s
}

func (l *memLedger) seedAssignment(a models.Assignment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.assignments[a.ID] = a
}

func (l *memLedger) seedHold(h models.EscrowHold) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.c.holds[h.ID] = h
	l.c.holdSeq[h.ID] = l.seq
}

func (l *memLedger) seedDispute(d models.Dispute) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.disputes[d.ID] = d
}

func (l *memLedger) ledgerEntries(shiftID uuid.UUID) []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range l.c.entries {
		if e.ShiftID == shiftID {
			out = append(out, e)
		}
	}
	return out
}

type memTx struct {
	l *memLedger
	w *memStore

	shiftBase      map[uuid.UUID]int64
	assignmentBase map[uuid.UUID]int64
	disputeBase    map[uuid.UUID]int64
	statBase       map[uuid.UUID]int64
	holdBase       map[uuid.UUID]valueobject.EscrowStatus
	newApps        []uuid.UUID
	newAssignments []uuid.UUID
	newHolds       []uuid.UUID
	newRatings     []uuid.UUID
	newDisputes    []uuid.UUID

	held  map[string]bool
	locks []*sync.Mutex
}

func (t *memTx) lock(key string) {
	if t.held[key] {
		return
	}
	if hook := t.l.beforeLock; hook != nil {
		hook(key)
	}
	m := t.l.keyLock(key)
	m.Lock()
	t.held[key] = true
	t.locks = append(t.locks, m)
}

func (t *memTx) release() {
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

func (t *memTx) commit() error {
	if hook := t.l.beforeCommit; hook != nil {
		hook()
	}

	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	c := t.l.c

	for id, v := range t.shiftBase {
		if c.shifts[id].Version != v {
			return domainrepo.ErrVersionConflict
		}
	}
	for id, v := range t.assignmentBase {
		if c.assignments[id].Version != v {
			return domainrepo.ErrVersionConflict
		}
	}
	for id, v := range t.disputeBase {
		if c.disputes[id].Version != v {
			return domainrepo.ErrVersionConflict
		}
	}
	for id, v := range t.statBase {
		if cur, ok := c.stats[id]; ok && cur.Version != v {
			return domainrepo.ErrVersionConflict
		}
	}
	for id, status := range t.holdBase {
		if c.holds[id].Status != status {
			return domainrepo.ErrVersionConflict
		}
	}

	for _, id := range t.newApps {
		app := t.w.apps[id]
		for _, other := range c.apps {
			if other.ShiftID == app.ShiftID && other.WorkerID == app.WorkerID {
				return domainrepo.ErrDuplicateApplication
			}
		}
	}
	for _, id := range t.newAssignments {
		a := t.w.assignments[id]
		for _, other := range c.assignments {
			if other.ShiftID == a.ShiftID && other.WorkerID == a.WorkerID && other.State != valueobject.AssignmentCancelled {
				return domainrepo.ErrDuplicateAssignment
			}
		}
	}
	for _, id := range t.newHolds {
		h := t.w.holds[id]
		for _, other := range c.holds {
			if other.ShiftID == h.ShiftID && !other.Status.IsTerminal() {
				return domainrepo.ErrActiveEscrowExists
			}
		}
	}
	for _, id := range t.newRatings {
		r := t.w.ratings[id]
		for _, other := range c.ratings {
			if other.ShiftID == r.ShiftID && other.FromUserID == r.FromUserID && other.ToUserID == r.ToUserID {
				return apperror.ErrDuplicateRating
			}
		}
	}
	for _, id := range t.newDisputes {
		d := t.w.disputes[id]
		for _, other := range c.disputes {
			if sameOpenDispute(other, d) {
				return domainrepo.ErrDuplicateOpenDispute
			}
		}
	}

	for id, v := range t.w.shifts {
		c.shifts[id] = v
	}
	for id, v := range t.w.apps {
		c.apps[id] = v
	}
	for id, v := range t.w.assignments {
		c.assignments[id] = v
	}
	for id, v := range t.w.holds {
		if _, ok := c.holdSeq[id]; !ok {
			t.l.seq++
			c.holdSeq[id] = t.l.seq
		}
		c.holds[id] = v
	}
	c.entries = append(c.entries, t.w.entries...)
	for id, v := range t.w.ratings {
		c.ratings[id] = v
	}
	for id, v := range t.w.stats {
		c.stats[id] = v
	}
	for id, v := range t.w.disputes {
		c.disputes[id] = v
	}
	for id, v := range t.w.profiles {
		c.profiles[id] = v
	}
	return nil
}

func sameOpenDispute(a, b models.Dispute) bool {
	if a.Status.IsClosed() || b.Status.IsClosed() || a.ID == b.ID {
		return false
	}
	sameShift := (a.ShiftID == nil && b.ShiftID == nil) ||
		(a.ShiftID != nil && b.ShiftID != nil && *a.ShiftID == *b.ShiftID)
	return sameShift && a.CreatedBy == b.CreatedBy && a.AgainstUserID == b.AgainstUserID
}

// view возвращает зафиксированное состояние, поверх которого наложены изменения транзакции.
func (t *memTx) view() *memStore {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	v := newMemStore()
	c := t.l.c
	for id, s := range c.shifts {
		v.shifts[id] = s
	}
	for id, s := range t.w.shifts {
		v.shifts[id] = s
	}
	for id, s := range c.apps {
		v.apps[id] = s
	}
	for id, s := range t.w.apps {
		v.apps[id] = s
	}
	for id, s := range c.assignments {
		v.assignments[id] = s
	}
	for id, s := range t.w.assignments {
		v.assignments[id] = s
	}
	for id, s := range c.holds {
		v.holds[id] = s
		v.holdSeq[id] = c.holdSeq[id]
	}
	next := t.l.seq
	for id, s := range t.w.holds {
		v.holds[id] = s
		if _, ok := v.holdSeq[id]; !ok {
			next++
			v.holdSeq[id] = next
		}
	}
	v.entries = append(append([]models.LedgerEntry{}, c.entries...), t.w.entries...)
	for id, s := range c.ratings {
		v.ratings[id] = s
	}
	for id, s := range t.w.ratings {
		v.ratings[id] = s
	}
	for id, s := range c.stats {
		v.stats[id] = s
	}
	for id, s := range t.w.stats {
		v.stats[id] = s
	}
	for id, s := range c.disputes {
		v.disputes[id] = s
	}
	for id, s := range t.w.disputes {
		v.disputes[id] = s
	}
	for id, s := range c.profiles {
		v.profiles[id] = s
	}
	for id, s := range t.w.profiles {
		v.profiles[id] = s
	}
	return v
}

func (t *memTx) GetShift(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	s, ok := t.view().shifts[id]
	if !ok {
		return nil, domainrepo.ErrShiftNotFound
	}
	return &s, nil
}

func (t *memTx) ListShiftsInState(ctx context.Context, state valueobject.ShiftState, changedBefore time.Time, limit int) ([]*models.Shift, error) {
	var out []*models.Shift
	for _, s := range t.view().shifts {
		s := s
		match := s.State == state || (s.State.IsPostDispute() && s.ResumeState != nil && *s.ResumeState == state)
		if match && !s.StateChangedAt.After(changedBefore) {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StateChangedAt.Before(out[j].StateChangedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) GetApplication(ctx context.Context, shiftID, workerID uuid.UUID) (*models.Application, error) {
	for _, a := range t.view().apps {
		if a.ShiftID == shiftID && a.WorkerID == workerID {
			a := a
			return &a, nil
		}
	}
	return nil, domainrepo.ErrApplicationNotFound
}

func (t *memTx) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, ok := t.view().assignments[id]
	if !ok {
		return nil, domainrepo.ErrAssignmentNotFound
	}
	return &a, nil
}

func (t *memTx) ListShiftAssignments(ctx context.Context, shiftID uuid.UUID) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range t.view().assignments {
		a := a
		if a.ShiftID == shiftID {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) GetShiftEscrow(ctx context.Context, shiftID uuid.UUID) (*models.EscrowHold, error) {
	v := t.view()
	var latest *models.EscrowHold
	latestSeq := -1
	for id, h := range v.holds {
		h := h
		if h.ShiftID == shiftID && v.holdSeq[id] > latestSeq {
			latest, latestSeq = &h, v.holdSeq[id]
		}
	}
	if latest == nil {
		return nil, domainrepo.ErrEscrowNotFound
	}
	return latest, nil
}

func (t *memTx) GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error) {
	h, ok := t.view().holds[id]
	if !ok {
		return nil, domainrepo.ErrEscrowNotFound
	}
	return &h, nil
}

func (t *memTx) ListPendingEscrows(ctx context.Context, createdBefore time.Time, limit int) ([]*models.EscrowHold, error) {
	var out []*models.EscrowHold
	for _, h := range t.view().holds {
		h := h
		if h.Status == valueobject.EscrowPending && !h.CreatedAt.After(createdBefore) {
			out = append(out, &h)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) ListLedgerEntries(ctx context.Context, shiftID uuid.UUID) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range t.view().entries {
		if e.ShiftID == shiftID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) ListShiftRatings(ctx context.Context, shiftID uuid.UUID) ([]*models.Rating, error) {
	var out []*models.Rating
	for _, r := range t.view().ratings {
		r := r
		if r.ShiftID == shiftID {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (t *memTx) ListUserRatings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Rating, error) {
	var out []*models.Rating
	for _, r := range t.view().ratings {
		r := r
		if r.ToUserID == userID {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) GetRatingStat(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error) {
	s, ok := t.view().stats[userID]
	if !ok {
		return nil, domainrepo.ErrStatNotFound
	}
	return &s, nil
}

func (t *memTx) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, ok := t.view().disputes[id]
	if !ok {
		return nil, domainrepo.ErrDisputeNotFound
	}
	return &d, nil
}

func (t *memTx) ListDisputes(ctx context.Context, filter domainrepo.DisputeFilter) ([]*models.Dispute, error) {
	var out []*models.Dispute
	for _, d := range t.view().disputes {
		d := d
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && d.CreatedBy != *filter.UserID && d.AgainstUserID != *filter.UserID {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) CountOpenShiftDisputes(ctx context.Context, shiftID uuid.UUID) (int, error) {
	n := 0
	for _, d := range t.view().disputes {
		if d.ShiftID != nil && *d.ShiftID == shiftID && !d.Status.IsClosed() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error) {
	p, ok := t.view().profiles[userID]
	if !ok {
		return nil, domainrepo.ErrProfileNotFound
	}
	return &p, nil
}

func (t *memTx) LockShift(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	t.lock("shift:" + id.String())
	return t.GetShift(ctx, id)
}

func (t *memTx) CreateShift(ctx context.Context, shift *models.Shift) error {
	if err := t.l.fail("CreateShift"); err != nil {
		return err
	}
	t.w.shifts[shift.ID] = *shift
	return nil
}

func (t *memTx) UpdateShift(ctx context.Context, shift *models.Shift, expectedVersion int64) error {
	if err := t.l.fail("UpdateShift"); err != nil {
		return err
	}
	cur, ok := t.view().shifts[shift.ID]
	if !ok || cur.Version != expectedVersion {
		return domainrepo.ErrVersionConflict
	}
	if _, ok := t.shiftBase[shift.ID]; !ok {
		t.shiftBase[shift.ID] = expectedVersion
	}
	shift.Version = expectedVersion + 1
	t.w.shifts[shift.ID] = *shift
	return nil
}

func (t *memTx) CreateApplication(ctx context.Context, app *models.Application) error {
	for _, other := range t.view().apps {
		if other.ShiftID == app.ShiftID && other.WorkerID == app.WorkerID {
			return domainrepo.ErrDuplicateApplication
		}
	}
	t.w.apps[app.ID] = *app
	t.newApps = append(t.newApps, app.ID)
	return nil
}

func (t *memTx) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status valueobject.ApplicationStatus) error {
	app, ok := t.view().apps[id]
	if !ok {
		return domainrepo.ErrApplicationNotFound
	}
	app.Status = status
	t.w.apps[id] = app
	return nil
}

func (t *memTx) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	for _, other := range t.view().assignments {
		if other.ShiftID == a.ShiftID && other.WorkerID == a.WorkerID && other.State != valueobject.AssignmentCancelled {
			return domainrepo.ErrDuplicateAssignment
		}
	}
	t.w.assignments[a.ID] = *a
	t.newAssignments = append(t.newAssignments, a.ID)
	return nil
}

func (t *memTx) UpdateAssignment(ctx context.Context, a *models.Assignment, expectedVersion int64) error {
	cur, ok := t.view().assignments[a.ID]
	if !ok || cur.Version != expectedVersion {
		return domainrepo.ErrVersionConflict
	}
	if _, ok := t.assignmentBase[a.ID]; !ok {
		t.assignmentBase[a.ID] = expectedVersion
	}
	a.Version = expectedVersion + 1
	t.w.assignments[a.ID] = *a
	return nil
}

func (t *memTx) CreateEscrow(ctx context.Context, hold *models.EscrowHold) error {
	if err := hold.Quote().Verify(); err != nil {
		return err
	}
	for _, other := range t.view().holds {
		if other.ShiftID == hold.ShiftID && !other.Status.IsTerminal() {
			return domainrepo.ErrActiveEscrowExists
		}
	}
	t.w.holds[hold.ID] = *hold
	t.newHolds = append(t.newHolds, hold.ID)
	return nil
}

func (t *memTx) TransitionEscrow(ctx context.Context, id uuid.UUID, from, to valueobject.EscrowStatus, at time.Time) error {
	if err := t.l.fail("TransitionEscrow"); err != nil {
		return err
	}
	h, ok := t.view().holds[id]
	if !ok {
		return domainrepo.ErrEscrowNotFound
	}
	if h.Status != from {
		return domainrepo.ErrVersionConflict
	}
	if _, ok := t.holdBase[id]; !ok {
		t.holdBase[id] = from
	}
	h.Status = to
	if to == valueobject.EscrowHeld {
		h.HeldAt = &at
	} else {
		h.ResolvedAt = &at
	}
	t.w.holds[id] = h
	return nil
}

func (t *memTx) AddLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	if err := t.l.fail("AddLedgerEntries"); err != nil {
		return err
	}
	t.w.entries = append(t.w.entries, entries...)
	return nil
}

func (t *memTx) InsertRating(ctx context.Context, r *models.Rating) (bool, error) {
	for _, other := range t.view().ratings {
		if other.ShiftID == r.ShiftID && other.FromUserID == r.FromUserID && other.ToUserID == r.ToUserID {
			return false, nil
		}
	}
	t.w.ratings[r.ID] = *r
	t.newRatings = append(t.newRatings, r.ID)
	return true, nil
}

func (t *memTx) LockRatingStat(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error) {
	t.lock("stat:" + userID.String())
	s, ok := t.view().stats[userID]
	if !ok {
		s = models.UserRatingStat{UserID: userID}
		t.w.stats[userID] = s
	}
	return &s, nil
}

func (t *memTx) SaveRatingStat(ctx context.Context, stat *models.UserRatingStat, expectedVersion int64) error {
	if err := t.l.fail("SaveRatingStat"); err != nil {
		return err
	}
	cur, ok := t.view().stats[stat.UserID]
	if !ok || cur.Version != expectedVersion {
		return domainrepo.ErrVersionConflict
	}
	if _, ok := t.statBase[stat.UserID]; !ok {
		t.statBase[stat.UserID] = expectedVersion
	}
	stat.Version = expectedVersion + 1
	t.w.stats[stat.UserID] = *stat
	return nil
}

func (t *memTx) CreateDispute(ctx context.Context, d *models.Dispute) error {
	for _, other := range t.view().disputes {
		if sameOpenDispute(other, *d) {
			return domainrepo.ErrDuplicateOpenDispute
		}
	}
	t.w.disputes[d.ID] = *d
	t.newDisputes = append(t.newDisputes, d.ID)
	return nil
}

func (t *memTx) UpdateDispute(ctx context.Context, d *models.Dispute, expectedVersion int64) error {
	cur, ok := t.view().disputes[d.ID]
	if !ok || cur.Version != expectedVersion {
		return domainrepo.ErrVersionConflict
	}
	if _, ok := t.disputeBase[d.ID]; !ok {
		t.disputeBase[d.ID] = expectedVersion
	}
	d.Version = expectedVersion + 1
	t.w.disputes[d.ID] = *d
	return nil
}

func (t *memTx) UpsertWorkerProfile(ctx context.Context, p *models.WorkerProfile) error {
	if err := t.l.fail("UpsertWorkerProfile"); err != nil {
		return err
	}
	t.w.profiles[p.UserID] = *p
	return nil
}

var (
	_ domainrepo.Ledger   = (*memLedger)(nil)
	_ domainrepo.LedgerTx = (*memTx)(nil)
)
