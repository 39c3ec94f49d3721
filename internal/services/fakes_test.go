package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
	_ "time/tzdata"

	"crewcall/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	mu          sync.Mutex
	byID        map[string]*domain.Event
	nextID      int
	createErr   error
	updateCalls int
	lockCalls   int

	// attendees, series and sheets back ListForUser when set.
	attendees *fakeAttendeeRepo
	series    *fakeSeriesRepo
	sheets    *fakeSheetRepo
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

// seed stores a copy of e under its own ID, or a generated one.
func (f *fakeEventRepo) seed(e *domain.Event) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", f.nextID)
		f.nextID++
	}
	cp := *e
	f.byID[e.ID] = &cp
	return e
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) live(id string) (*domain.Event, bool) {
	e, ok := f.byID[id]
	if !ok || e.DeletedAt != nil {
		return nil, false
	}
	return e, true
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	f.lockCalls++
	f.mu.Unlock()
	return f.GetByID(ctx, id)
}

func (f *fakeEventRepo) filter(keep func(*domain.Event) bool) []*domain.Event {
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if e.DeletedAt == nil && keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

func (f *fakeEventRepo) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(e *domain.Event) bool {
		if !filter.StartFrom.IsZero() && e.StartDate.Before(filter.StartFrom) {
			return false
		}
		return filter.StartTo.IsZero() || e.StartDate.Before(filter.StartTo)
	}), nil
}

func (f *fakeEventRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return f.filter(func(e *domain.Event) bool { return want[e.ID] }), nil
}

func (f *fakeEventRepo) ListBySeriesID(ctx context.Context, seriesID string) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(e *domain.Event) bool {
		return e.RecurringSeriesID != nil && *e.RecurringSeriesID == seriesID
	}), nil
}

func (f *fakeEventRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	related := make(map[string]bool)
	if f.attendees != nil {
		list, _ := f.attendees.ListByUserID(ctx, userID)
		for _, a := range list {
			related[a.EventID] = true
		}
	}
	if f.sheets != nil {
		list, _ := f.sheets.ListForUser(ctx, userID)
		for _, s := range list {
			related[s.EventID] = true
		}
	}
	inSeries := make(map[string]bool)
	if f.series != nil {
		f.series.mu.Lock()
		for seriesID, users := range f.series.attendees {
			if _, ok := users[userID]; ok {
				inSeries[seriesID] = true
			}
		}
		f.series.mu.Unlock()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(e *domain.Event) bool {
		return related[e.ID] || (e.RecurringSeriesID != nil && inSeries[*e.RecurringSeriesID])
	}), nil
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, upd domain.EventUpdate, actorID string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	e, ok := f.live(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Type != nil {
		e.Type = *upd.Type
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.StartDate != nil {
		e.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		e.EndDate = *upd.EndDate
	}
	if upd.IsPrivate != nil {
		e.IsPrivate = *upd.IsPrivate
	}
	if upd.IsTentative != nil {
		e.IsTentative = *upd.IsTentative
	}
	if upd.Host != nil {
		e.Host = *upd.Host
	}
	if upd.ExternalProjectID != nil {
		if *upd.ExternalProjectID == "" {
			e.ExternalProjectID = nil
		} else {
			e.ExternalProjectID = strPtr(*upd.ExternalProjectID)
		}
	}
	e.UpdatedBy = actorID
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) SetCancelled(ctx context.Context, id string, cancelled bool, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(id)
	if !ok {
		return domain.ErrNotFound
	}
	e.IsCancelled = cancelled
	e.UpdatedBy = actorID
	return nil
}

func (f *fakeEventRepo) SoftDelete(ctx context.Context, id, actorID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(id)
	if !ok {
		return domain.ErrNotFound
	}
	e.DeletedAt = &at
	e.DeletedBy = strPtr(actorID)
	return nil
}

// raw returns the stored row even if soft-deleted.
func (f *fakeEventRepo) raw(id string) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// fakeAttendeeRepo is an in-memory AttendeeRepository for tests.
type fakeAttendeeRepo struct {
	mu      sync.Mutex
	records map[[2]string]domain.AttendStatus
}

func newFakeAttendeeRepo() *fakeAttendeeRepo {
	return &fakeAttendeeRepo{records: make(map[[2]string]domain.AttendStatus)}
}

func (f *fakeAttendeeRepo) Upsert(ctx context.Context, eventID, userID string, status domain.AttendStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]string{eventID, userID}
	if status == domain.AttendStatusUnknown {
		delete(f.records, key)
		return nil
	}
	f.records[key] = status
	return nil
}

func (f *fakeAttendeeRepo) list(match func(key [2]string) bool) []*domain.Attendee {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Attendee, 0)
	for k, st := range f.records {
		if match(k) {
			out = append(out, &domain.Attendee{EventID: k[0], UserID: k[1], Status: st})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID == out[j].EventID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}

func (f *fakeAttendeeRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	return f.list(func(k [2]string) bool { return k[0] == eventID }), nil
}

func (f *fakeAttendeeRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Attendee, error) {
	return f.list(func(k [2]string) bool { return k[1] == userID }), nil
}

// fakeSeriesRepo is an in-memory RecurringSeriesRepository for tests.
type fakeSeriesRepo struct {
	mu        sync.Mutex
	nextID    int
	series    map[string]bool
	attendees map[string]map[string]domain.AttendStatus
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{
		nextID:    1,
		series:    make(map[string]bool),
		attendees: make(map[string]map[string]domain.AttendStatus),
	}
}

func (f *fakeSeriesRepo) Create(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("series-%d", f.nextID)
	f.nextID++
	f.series[id] = true
	return id, nil
}

func (f *fakeSeriesRepo) Exists(ctx context.Context, seriesID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series[seriesID], nil
}

func (f *fakeSeriesRepo) UpsertAttendee(ctx context.Context, seriesID, userID string, status domain.AttendStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.series[seriesID] {
		return domain.ErrNotFound
	}
	if f.attendees[seriesID] == nil {
		f.attendees[seriesID] = make(map[string]domain.AttendStatus)
	}
	if status == domain.AttendStatusUnknown {
		delete(f.attendees[seriesID], userID)
		return nil
	}
	f.attendees[seriesID][userID] = status
	return nil
}

func (f *fakeSeriesRepo) ListAttendees(ctx context.Context, seriesID string) ([]*domain.RecurringAttendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.RecurringAttendee, 0)
	for userID, st := range f.attendees[seriesID] {
		out = append(out, &domain.RecurringAttendee{SeriesID: seriesID, UserID: userID, Status: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// fakeSheetRepo is an in-memory SignupSheetRepository for tests. It hands out copies so that
// callers cannot mutate stored state except through the repository methods.
type fakeSheetRepo struct {
	mu        sync.Mutex
	sheets    map[string]*domain.SignupSheet
	nextSheet int
	nextCrew  int
	events    *fakeEventRepo

	// onRelease runs before ReleaseCrew's conditional write.
	onRelease func(f *fakeSheetRepo)
}

func newFakeSheetRepo(events *fakeEventRepo) *fakeSheetRepo {
	return &fakeSheetRepo{sheets: make(map[string]*domain.SignupSheet), nextSheet: 1, nextCrew: 1, events: events}
}

func copySheet(s *domain.SignupSheet, keep func(*domain.CrewSlot) bool) *domain.SignupSheet {
	cp := *s
	cp.Crews = make([]*domain.CrewSlot, 0, len(s.Crews))
	for _, c := range s.Crews {
		if keep == nil || keep(c) {
			cc := *c
			cp.Crews = append(cp.Crews, &cc)
		}
	}
	sort.Slice(cp.Crews, func(i, j int) bool { return cp.Crews[i].Ordering < cp.Crews[j].Ordering })
	return &cp
}

func (f *fakeSheetRepo) eventLive(eventID string) bool {
	if f.events == nil {
		return true
	}
	return f.events.raw(eventID) != nil && f.events.raw(eventID).DeletedAt == nil
}

// seed stores a sheet with its crews, assigning IDs where missing.
func (f *fakeSheetRepo) seed(s *domain.SignupSheet) *domain.SignupSheet {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = fmt.Sprintf("sheet-%d", f.nextSheet)
		f.nextSheet++
	}
	for i, c := range s.Crews {
		if c.ID == "" {
			c.ID = fmt.Sprintf("crew-%d", f.nextCrew)
			f.nextCrew++
		}
		c.SignupID = s.ID
		c.Ordering = i
	}
	f.sheets[s.ID] = copySheet(s, nil)
	return s
}

func (f *fakeSheetRepo) crew(sheetID, crewID string) *domain.CrewSlot {
	s, ok := f.sheets[sheetID]
	if !ok {
		return nil
	}
	for _, c := range s.Crews {
		if c.ID == crewID {
			return c
		}
	}
	return nil
}

// stored returns a copy of the stored crew.
func (f *fakeSheetRepo) stored(sheetID, crewID string) *domain.CrewSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.crew(sheetID, crewID)
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (f *fakeSheetRepo) CreateSheet(ctx context.Context, s *domain.SignupSheet) error {
	if !f.eventLive(s.EventID) {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = fmt.Sprintf("sheet-%d", f.nextSheet)
	f.nextSheet++
	f.sheets[s.ID] = copySheet(&domain.SignupSheet{
		ID: s.ID, EventID: s.EventID, Title: s.Title, Description: s.Description,
		ArrivalTime: s.ArrivalTime, StartTime: s.StartTime, EndTime: s.EndTime, UnlockDate: s.UnlockDate,
	}, nil)
	return nil
}

func (f *fakeSheetRepo) GetSheet(ctx context.Context, sheetID string) (*domain.SignupSheet, error) {
	f.mu.Lock()
	s, ok := f.sheets[sheetID]
	f.mu.Unlock()
	if !ok || !f.eventLive(s.EventID) {
		return nil, domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySheet(s, nil), nil
}

func (f *fakeSheetRepo) listWhere(match func(*domain.SignupSheet) bool, keep func(*domain.CrewSlot) bool) []*domain.SignupSheet {
	f.mu.Lock()
	all := make([]*domain.SignupSheet, 0, len(f.sheets))
	for _, s := range f.sheets {
		all = append(all, s)
	}
	f.mu.Unlock()

	out := make([]*domain.SignupSheet, 0)
	for _, s := range all {
		if !f.eventLive(s.EventID) {
			continue
		}
		f.mu.Lock()
		if match(s) {
			out = append(out, copySheet(s, keep))
		}
		f.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeSheetRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.SignupSheet, error) {
	return f.listWhere(func(s *domain.SignupSheet) bool { return s.EventID == eventID }, nil), nil
}

func (f *fakeSheetRepo) ListForUser(ctx context.Context, userID string) ([]*domain.SignupSheet, error) {
	mine := func(c *domain.CrewSlot) bool { return c.HeldBy(userID) }
	return f.listWhere(func(s *domain.SignupSheet) bool {
		for _, c := range s.Crews {
			if mine(c) {
				return true
			}
		}
		return false
	}, mine), nil
}

func (f *fakeSheetRepo) UpdateSheet(ctx context.Context, s *domain.SignupSheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sheets[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Title = s.Title
	stored.Description = s.Description
	stored.ArrivalTime = s.ArrivalTime
	stored.StartTime = s.StartTime
	stored.EndTime = s.EndTime
	stored.UnlockDate = s.UnlockDate
	return nil
}

func (f *fakeSheetRepo) DeleteSheet(ctx context.Context, sheetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sheets[sheetID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sheets, sheetID)
	return nil
}

func (f *fakeSheetRepo) CreateCrew(ctx context.Context, c *domain.CrewSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sheets[c.SignupID]
	if !ok {
		return domain.ErrNotFound
	}
	c.ID = fmt.Sprintf("crew-%d", f.nextCrew)
	f.nextCrew++
	cp := *c
	s.Crews = append(s.Crews, &cp)
	return nil
}

func (f *fakeSheetRepo) UpdateCrew(ctx context.Context, c *domain.CrewSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.crew(c.SignupID, c.ID)
	if stored == nil {
		return domain.ErrNotFound
	}
	*stored = *c
	return nil
}

func (f *fakeSheetRepo) DeleteCrewsExcept(ctx context.Context, sheetID string, keep []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sheets[sheetID]
	if !ok {
		return nil
	}
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	crews := s.Crews[:0]
	for _, c := range s.Crews {
		if kept[c.ID] {
			crews = append(crews, c)
		}
	}
	s.Crews = crews
	return nil
}

func (f *fakeSheetRepo) ClaimCrew(ctx context.Context, sheetID, crewID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.crew(sheetID, crewID)
	if c == nil || c.IsAssigned() || c.Locked {
		return false, nil
	}
	c.UserID = strPtr(userID)
	return true, nil
}

func (f *fakeSheetRepo) ReleaseCrew(ctx context.Context, sheetID, crewID, userID string) (bool, error) {
	if f.onRelease != nil {
		f.onRelease(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.crew(sheetID, crewID)
	if c == nil || !c.HeldBy(userID) {
		return false, nil
	}
	c.UserID = nil
	return true, nil
}

// assign overwrites a slot's occupant the way a manager edit would.
func (f *fakeSheetRepo) assign(sheetID, crewID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.crew(sheetID, crewID); c != nil {
		c.UserID = strPtr(userID)
		c.CustomCrewMemberName = nil
	}
}

// fakeVacancyRepo evaluates the vacancy rules over the sheet and event fakes.
type fakeVacancyRepo struct {
	events *fakeEventRepo
	sheets *fakeSheetRepo
}

func (f *fakeVacancyRepo) inWindow(e *domain.Event, q domain.VacancyQuery) bool {
	if e.IsCancelled || e.StartDate.Before(q.StartFrom) {
		return false
	}
	return q.StartTo.IsZero() || e.StartDate.Before(q.StartTo)
}

func (f *fakeVacancyRepo) ListVacantSheets(ctx context.Context, q domain.VacancyQuery) ([]*domain.SignupSheet, error) {
	out := make([]*domain.SignupSheet, 0)
	sheets := f.sheets.listWhere(func(s *domain.SignupSheet) bool {
		return s.UnlockDate == nil || !s.UnlockDate.After(q.Now)
	}, func(c *domain.CrewSlot) bool {
		if c.IsAssigned() || c.Locked {
			return false
		}
		return q.PositionID == nil || (c.PositionID != nil && *c.PositionID == *q.PositionID)
	})
	for _, s := range sheets {
		e, err := f.events.GetByID(ctx, s.EventID)
		if err != nil || !f.inWindow(e, q) || len(s.Crews) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeVacancyRepo) ListAttendeeEvents(ctx context.Context, q domain.VacancyQuery) ([]*domain.Event, error) {
	all, _ := f.events.List(ctx, domain.EventFilter{})
	out := make([]*domain.Event, 0)
	for _, e := range all {
		if !e.Type.UsesSignupSheets() && f.inWindow(e, q) {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeCaps is a configurable Capabilities oracle.
type fakeCaps struct {
	create      bool
	manage      bool
	manageSheet bool
	// deny refuses management of specific events even when manage is true.
	deny map[string]bool
	err  error
}

func allowAll() *fakeCaps {
	return &fakeCaps{create: true, manage: true, manageSheet: true}
}

func (f *fakeCaps) CanCreate(ctx context.Context, eventType domain.EventType, userID string) (bool, error) {
	return f.create, f.err
}

func (f *fakeCaps) CanManage(ctx context.Context, event *domain.Event, userID string) (bool, error) {
	return f.manage && !f.deny[event.ID], f.err
}

func (f *fakeCaps) CanManageSignUpSheet(ctx context.Context, event *domain.Event, sheet *domain.SignupSheet, userID string) (bool, error) {
	return f.manageSheet && !f.deny[event.ID], f.err
}

// fakeGateway records conflict-check calls.
type fakeGateway struct {
	changed     bool
	reserveErr  error
	commitErr   error
	reserves    int
	commits     int
	lastProject string
}

func (f *fakeGateway) CheckAndReserve(ctx context.Context, projectID string, start, end time.Time) (domain.ReserveResult, error) {
	f.reserves++
	f.lastProject = projectID
	if f.reserveErr != nil {
		return domain.ReserveResult{}, f.reserveErr
	}
	return domain.ReserveResult{Changed: f.changed}, nil
}

func (f *fakeGateway) Commit(ctx context.Context, projectID string, start, end time.Time) error {
	f.commits++
	f.lastProject = projectID
	return f.commitErr
}

// fakeTxr runs fn directly and counts outcomes.
type fakeTxr struct {
	calls     int
	rollbacks int
}

func (f *fakeTxr) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	return nil
}

// fakeNotifier records delivered messages.
type fakeNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[string][]string)}
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[userID] = append(f.sent[userID], message)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msgs := range f.sent {
		n += len(msgs)
	}
	return n
}
