package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/confhub/internal/entity"
)

// fakeStore - общее in-memory хранилище для тестов сервисного слоя.
// Все операции выполняются под одним мьютексом, имитируя транзакции базы.
type fakeStore struct {
	mu            sync.Mutex
	events        map[int64]*entity.Event
	tickets       map[int64]*entity.Ticket
	users         map[int64]*entity.User
	registrations map[int64]*entity.Registration
	sessions      map[int64]*entity.Session
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:        make(map[int64]*entity.Event),
		tickets:       make(map[int64]*entity.Ticket),
		users:         make(map[int64]*entity.User),
		registrations: make(map[int64]*entity.Registration),
		sessions:      make(map[int64]*entity.Session),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

// createdAt дает монотонно растущие метки, чтобы порядок листа ожидания
// был детерминированным
func (s *fakeStore) createdAt() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.nextID) * time.Second)
}

type fakeEventRepo struct{ s *fakeStore }

func (r *fakeEventRepo) Create(_ context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = r.s.id()
	r.s.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id int64) (*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return event, nil
}

func (r *fakeEventRepo) GetByIDWithStats(ctx context.Context, id int64) (*entity.EventWithStats, error) {
	event, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity.EventWithStats{Event: *event}, nil
}

func (r *fakeEventRepo) GetAll(_ context.Context) ([]*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	events := make([]*entity.Event, 0, len(r.s.events))
	for _, event := range r.s.events {
		events = append(events, event)
	}
	return events, nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[event.ID]; !ok {
		return entity.ErrEventNotFound
	}
	r.s.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.events, id)
	return nil
}

type fakeTicketRepo struct{ s *fakeStore }

func (r *fakeTicketRepo) Create(_ context.Context, ticket *entity.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = r.s.id()
	r.s.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*entity.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, entity.ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByEventID(_ context.Context, eventID int64) ([]*entity.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var tickets []*entity.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.EventID == eventID {
			tickets = append(tickets, ticket)
		}
	}
	return tickets, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *entity.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return entity.ErrTicketNotFound
	}
	r.s.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tickets, id)
	return nil
}

func (r *fakeTicketRepo) Reserve(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return false, entity.ErrTicketNotFound
	}
	if !ticket.IsActive || ticket.Sold >= ticket.Quantity {
		return false, nil
	}
	ticket.Sold++
	return true, nil
}

func (r *fakeTicketRepo) Release(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return entity.ErrTicketNotFound
	}
	if ticket.Sold > 0 {
		ticket.Sold--
	}
	return nil
}

func (r *fakeTicketRepo) CountWaitlisted(_ context.Context, id int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, reg := range r.s.registrations {
		if reg.TicketID == id && reg.Status == entity.RegistrationStatusWaitlisted {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return entity.ErrUserAlreadyExists
		}
	}
	user.ID = r.s.id()
	r.s.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (r *fakeUserRepo) GetAll(_ context.Context) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]*entity.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

type fakeRegistrationRepo struct{ s *fakeStore }

func (r *fakeRegistrationRepo) Create(_ context.Context, registration *entity.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.registrations {
		if existing.EventID == registration.EventID && existing.UserID == registration.UserID && existing.IsActive() {
			return fmt.Errorf("pq: duplicate key value violates unique constraint \"idx_registrations_active_user\"")
		}
	}
	registration.ID = r.s.id()
	registration.CreatedAt = r.s.createdAt()
	r.s.registrations[registration.ID] = registration
	return nil
}

func (r *fakeRegistrationRepo) GetByID(_ context.Context, id int64) (*entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, entity.ErrRegistrationNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *fakeRegistrationRepo) GetActiveByEventAndUser(_ context.Context, eventID, userID int64) (*entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.registrations {
		if reg.EventID == eventID && reg.UserID == userID && reg.IsActive() {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, entity.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) GetByEventID(_ context.Context, eventID int64, status entity.RegistrationStatus, limit, offset int) ([]*entity.Registration, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var regs []*entity.Registration
	for _, reg := range r.s.registrations {
		if reg.EventID != eventID {
			continue
		}
		if status != "" && reg.Status != status {
			continue
		}
		copied := *reg
		regs = append(regs, &copied)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })
	total := len(regs)
	if offset >= len(regs) {
		return nil, total, nil
	}
	regs = regs[offset:]
	if limit < len(regs) {
		regs = regs[:limit]
	}
	return regs, total, nil
}

func (r *fakeRegistrationRepo) GetByUserID(_ context.Context, userID int64) ([]*entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var regs []*entity.Registration
	for _, reg := range r.s.registrations {
		if reg.UserID == userID {
			copied := *reg
			regs = append(regs, &copied)
		}
	}
	return regs, nil
}

func (r *fakeRegistrationRepo) UpdateStatus(_ context.Context, id int64, status entity.RegistrationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return entity.ErrRegistrationNotFound
	}
	if !reg.CanTransitionTo(status) {
		return entity.ErrInvalidTransition
	}
	reg.Status = status
	return nil
}

func (r *fakeRegistrationRepo) UpdatePaymentStatus(_ context.Context, id int64, status entity.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return entity.ErrRegistrationNotFound
	}
	reg.PaymentStatus = status
	return nil
}

func (r *fakeRegistrationRepo) Checkin(_ context.Context, id int64, at time.Time) (*entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, entity.ErrRegistrationNotFound
	}
	reg.CheckedIn = true
	reg.CheckInTime = &at
	copied := *reg
	return &copied, nil
}

// CancelAndPromote повторяет транзакционную семантику хранилища:
// при отмене записи, державшей место, его получает старейшая запись
// из листа ожидания; иначе единица возвращается в инвентарь.
func (r *fakeRegistrationRepo) CancelAndPromote(_ context.Context, id int64) (*entity.Registration, *entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, nil, entity.ErrRegistrationNotFound
	}

	if reg.Status == entity.RegistrationStatusCancelled {
		copied := *reg
		return &copied, nil, nil
	}

	heldSeat := reg.HoldsSeat()
	reg.Status = entity.RegistrationStatusCancelled

	var promoted *entity.Registration
	if heldSeat {
		var oldest *entity.Registration
		for _, candidate := range r.s.registrations {
			if candidate.TicketID != reg.TicketID || candidate.Status != entity.RegistrationStatusWaitlisted {
				continue
			}
			if oldest == nil || candidate.CreatedAt.Before(oldest.CreatedAt) {
				oldest = candidate
			}
		}
		if oldest != nil {
			oldest.Status = entity.RegistrationStatusConfirmed
			copied := *oldest
			promoted = &copied
		} else if ticket, ok := r.s.tickets[reg.TicketID]; ok && ticket.Sold > 0 {
			ticket.Sold--
		}
	}

	cancelled := *reg
	return &cancelled, promoted, nil
}

func (r *fakeRegistrationRepo) PromoteOldestWaitlisted(_ context.Context, eventID, ticketID int64) (*entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var oldest *entity.Registration
	for _, candidate := range r.s.registrations {
		if candidate.EventID != eventID || candidate.TicketID != ticketID ||
			candidate.Status != entity.RegistrationStatusWaitlisted {
			continue
		}
		if oldest == nil || candidate.CreatedAt.Before(oldest.CreatedAt) {
			oldest = candidate
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.Status = entity.RegistrationStatusConfirmed
	copied := *oldest
	return &copied, nil
}

func (r *fakeRegistrationRepo) GetStalePending(_ context.Context, before time.Time) ([]*entity.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var regs []*entity.Registration
	for _, reg := range r.s.registrations {
		if reg.Status == entity.RegistrationStatusPending &&
			reg.PaymentStatus != entity.PaymentStatusPaid &&
			reg.CreatedAt.Before(before) {
			copied := *reg
			regs = append(regs, &copied)
		}
	}
	return regs, nil
}

type fakeSessionRepo struct{ s *fakeStore }

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session.ID = r.s.id()
	r.s.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id int64) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) GetByEventID(_ context.Context, eventID int64) ([]*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sessions []*entity.Session
	for _, session := range r.s.sessions {
		if session.EventID == eventID {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.ID]; !ok {
		return entity.ErrSessionNotFound
	}
	r.s.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r *fakeSessionRepo) Join(_ context.Context, sessionID, userID int64) (bool, *entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[sessionID]
	if !ok {
		return false, nil, entity.ErrSessionNotFound
	}

	for _, id := range session.Attendees {
		if id == userID {
			return false, nil, entity.ErrAlreadyJoined
		}
	}
	for _, id := range session.Waitlist {
		if id == userID {
			return false, nil, entity.ErrAlreadyJoined
		}
	}

	seated := len(session.Attendees) < session.Capacity
	if seated {
		session.Attendees = append(session.Attendees, userID)
		session.Registered = len(session.Attendees)
	} else {
		session.Waitlist = append(session.Waitlist, userID)
	}

	copied := *session
	return seated, &copied, nil
}

func (r *fakeSessionRepo) Leave(_ context.Context, sessionID, userID int64) (int64, *entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[sessionID]
	if !ok {
		return 0, nil, entity.ErrSessionNotFound
	}

	var promoted int64
	for i, id := range session.Attendees {
		if id != userID {
			continue
		}
		session.Attendees = append(session.Attendees[:i], session.Attendees[i+1:]...)
		if len(session.Waitlist) > 0 {
			promoted = session.Waitlist[0]
			session.Waitlist = session.Waitlist[1:]
			session.Attendees = append(session.Attendees, promoted)
		}
		session.Registered = len(session.Attendees)
		copied := *session
		return promoted, &copied, nil
	}

	for i, id := range session.Waitlist {
		if id == userID {
			session.Waitlist = append(session.Waitlist[:i], session.Waitlist[i+1:]...)
			break
		}
	}

	copied := *session
	return 0, &copied, nil
}

func (r *fakeSessionRepo) FindConflicts(_ context.Context, eventID int64, start, end time.Time, room string, speakerID *int64, excludeID int64) ([]*entity.Session, []*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var roomSessions, speakerSessions []*entity.Session
	for _, session := range r.s.sessions {
		if session.EventID != eventID || session.ID == excludeID || session.Status == entity.SessionStatusCancelled {
			continue
		}
		if !entity.Overlaps(start, end, session.StartTime, session.EndTime) {
			continue
		}
		copied := *session
		if room != "" && session.Room == room {
			roomSessions = append(roomSessions, &copied)
		}
		if speakerID != nil && session.SpeakerID != nil && *session.SpeakerID == *speakerID {
			speakerSessions = append(speakerSessions, &copied)
		}
	}
	return roomSessions, speakerSessions, nil
}

// fakePublisher собирает опубликованные задачи
type fakePublisher struct {
	mu    sync.Mutex
	tasks []*Task
}

func (p *fakePublisher) Publish(_ context.Context, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePublisher) published() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Task(nil), p.tasks...)
}

// fakeNotifier собирает разосланные снимки доступности
type fakeNotifier struct {
	mu      sync.Mutex
	updates []*entity.CapacityUpdate
}

func (n *fakeNotifier) Broadcast(update *entity.CapacityUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func (n *fakeNotifier) broadcasts() []*entity.CapacityUpdate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*entity.CapacityUpdate(nil), n.updates...)
}

// fakeCache - in-memory кэш доступности
type fakeCache struct {
	mu      sync.Mutex
	entries map[int64]*entity.TicketAvailability
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64]*entity.TicketAvailability)}
}

func (c *fakeCache) Get(_ context.Context, ticketID int64) (*entity.TicketAvailability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[ticketID], nil
}

func (c *fakeCache) Set(_ context.Context, availability *entity.TicketAvailability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[availability.TicketID] = availability
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ticketID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ticketID)
	return nil
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
