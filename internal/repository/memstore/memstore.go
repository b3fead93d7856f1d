// Package memstore is an in-process implementation of the repository
// contracts. It backs tests and runs the service when no Postgres DSN is set.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository"
)

// Store holds every record behind one mutex so that a ticket transition and
// its side effects commit as a unit.
type Store struct {
	mu            sync.Mutex
	tickets       map[string]*domain.Ticket
	ticketNumbers map[string]string
	equipment     map[string]*domain.Equipment
	codes         map[string]string
	reports       map[string]*domain.ServiceReport
	comments      map[string][]domain.Comment
	users         map[string]*domain.User
	notifications map[string]*domain.Notification
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets:       map[string]*domain.Ticket{},
		ticketNumbers: map[string]string{},
		equipment:     map[string]*domain.Equipment{},
		codes:         map[string]string{},
		reports:       map[string]*domain.ServiceReport{},
		comments:      map[string][]domain.Comment{},
		users:         map[string]*domain.User{},
		notifications: map[string]*domain.Notification{},
	}
}

// Tickets returns the TicketStore view.
func (s *Store) Tickets() repository.TicketStore { return ticketView{s} }

// Equipment returns the EquipmentRepository view.
func (s *Store) Equipment() repository.EquipmentRepository { return equipmentView{s} }

// Reports returns the ServiceReportRepository view.
func (s *Store) Reports() repository.ServiceReportRepository { return reportView{s} }

// Comments returns the CommentRepository view.
func (s *Store) Comments() repository.CommentRepository { return commentView{s} }

// Users returns the UserRepository view.
func (s *Store) Users() repository.UserRepository { return userView{s} }

// Notifications returns the NotificationRepository view.
func (s *Store) Notifications() repository.NotificationRepository { return notificationView{s} }

type ticketView struct{ s *Store }

func (v ticketView) LoadForUpdate(_ context.Context, ticketID string) (*domain.Ticket, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	ticket, ok := v.s.tickets[ticketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (v ticketView) CompareAndSwap(ctx context.Context, ticketID string, expected domain.TicketStatus, mutation repository.Mutation) (*domain.Ticket, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	current, ok := v.s.tickets[ticketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Status != expected {
		return nil, repository.ErrConflict
	}
	staged := current.Clone()
	if err := mutation.Apply(staged); err != nil {
		return nil, err
	}
	tx := newStagedTx(v.s, staged)
	if mutation.Effects != nil {
		if err := mutation.Effects(ctx, tx, staged); err != nil {
			return nil, err
		}
	}
	v.s.tickets[ticketID] = staged
	tx.commit()
	return staged.Clone(), nil
}

func (v ticketView) Insert(ctx context.Context, ticket *domain.Ticket, effects repository.Effects) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, exists := v.s.ticketNumbers[ticket.TicketNumber]; exists {
		return repository.ErrDuplicate
	}
	staged := ticket.Clone()
	tx := newStagedTx(v.s, staged)
	if effects != nil {
		if err := effects(ctx, tx, staged); err != nil {
			return err
		}
	}
	v.s.tickets[staged.ID] = staged
	v.s.ticketNumbers[staged.TicketNumber] = staged.ID
	tx.commit()
	return nil
}

func (v ticketView) TicketNumberExists(_ context.Context, ticketNumber string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	_, exists := v.s.ticketNumbers[ticketNumber]
	return exists, nil
}

// stagedTx buffers writes until the surrounding ticket change commits.
// Callers hold Store.mu.
type stagedTx struct {
	s         *Store
	ticket    *domain.Ticket
	equipment map[string]*domain.Equipment
	reports   map[string]*domain.ServiceReport
}

func newStagedTx(s *Store, ticket *domain.Ticket) *stagedTx {
	return &stagedTx{
		s:         s,
		ticket:    ticket,
		equipment: map[string]*domain.Equipment{},
		reports:   map[string]*domain.ServiceReport{},
	}
}

func (t *stagedTx) commit() {
	for id, e := range t.equipment {
		t.s.equipment[id] = e
	}
	for id, r := range t.reports {
		t.s.reports[id] = r
	}
}

func (t *stagedTx) GetEquipmentForUpdate(_ context.Context, id string) (*domain.Equipment, error) {
	if e, ok := t.equipment[id]; ok {
		return cloneEquipment(e), nil
	}
	e, ok := t.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEquipment(e), nil
}

func (t *stagedTx) CountHoldingTickets(_ context.Context, equipmentID string) (int, error) {
	count := 0
	for id, ticket := range t.s.tickets {
		if id == t.ticket.ID {
			continue
		}
		if ticket.EquipmentID == equipmentID && ticket.Status.HoldsEquipment() {
			count++
		}
	}
	if t.ticket.EquipmentID == equipmentID && t.ticket.Status.HoldsEquipment() {
		count++
	}
	return count, nil
}

func (t *stagedTx) UpdateEquipmentStatus(ctx context.Context, id string, status domain.EquipmentStatus, lastServiceDate *time.Time) error {
	e, err := t.GetEquipmentForUpdate(ctx, id)
	if err != nil {
		return err
	}
	e.Status = status
	if lastServiceDate != nil {
		at := *lastServiceDate
		e.LastServiceDate = &at
	}
	e.UpdatedAt = time.Now().UTC()
	t.equipment[id] = e
	return nil
}

func (t *stagedTx) InsertServiceReport(_ context.Context, report *domain.ServiceReport) error {
	t.reports[report.ID] = cloneReport(report)
	return nil
}

func (t *stagedTx) UpdateServiceReport(_ context.Context, report *domain.ServiceReport) error {
	if _, ok := t.reports[report.ID]; !ok {
		if _, ok := t.s.reports[report.ID]; !ok {
			return repository.ErrNotFound
		}
	}
	t.reports[report.ID] = cloneReport(report)
	return nil
}

func (t *stagedTx) PendingServiceReport(_ context.Context, ticketID string) (*domain.ServiceReport, error) {
	var pending *domain.ServiceReport
	consider := func(r *domain.ServiceReport) {
		if r.TicketID == ticketID && r.VerificationStatus == domain.VerificationPending {
			pending = r
		}
	}
	for id, r := range t.s.reports {
		if staged, ok := t.reports[id]; ok {
			consider(staged)
			continue
		}
		consider(r)
	}
	for id, r := range t.reports {
		if _, ok := t.s.reports[id]; !ok {
			consider(r)
		}
	}
	if pending == nil {
		return nil, repository.ErrNotFound
	}
	return cloneReport(pending), nil
}

type equipmentView struct{ s *Store }

func (v equipmentView) Create(_ context.Context, equipment *domain.Equipment) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	code := strings.ToUpper(equipment.Code)
	if _, exists := v.s.codes[code]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	equipment.CreatedAt = now
	equipment.UpdatedAt = now
	v.s.equipment[equipment.ID] = cloneEquipment(equipment)
	v.s.codes[code] = equipment.ID
	return nil
}

func (v equipmentView) GetByID(_ context.Context, id string) (*domain.Equipment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEquipment(e), nil
}

func (v equipmentView) GetByCode(ctx context.Context, code string) (*domain.Equipment, error) {
	v.s.mu.Lock()
	id, ok := v.s.codes[strings.ToUpper(code)]
	v.s.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v.GetByID(ctx, id)
}

func (v equipmentView) CodeExists(_ context.Context, code string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	_, exists := v.s.codes[strings.ToUpper(code)]
	return exists, nil
}

func (v equipmentView) OverrideStatus(_ context.Context, id string, status domain.EquipmentStatus) (*domain.Equipment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, ticket := range v.s.tickets {
		if ticket.EquipmentID == id && ticket.Status.HoldsEquipment() {
			return nil, repository.ErrEquipmentInUse
		}
	}
	updated := cloneEquipment(e)
	updated.Status = status
	updated.UpdatedAt = time.Now().UTC()
	v.s.equipment[id] = updated
	return cloneEquipment(updated), nil
}

func (v equipmentView) ListServiceDue(_ context.Context, cutoff time.Time) ([]domain.Equipment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	type scheduled struct {
		equipment domain.Equipment
		due       time.Time
	}
	var found []scheduled
	for _, e := range v.s.equipment {
		if e.Status != domain.EquipmentStatusActive {
			continue
		}
		due, ok := e.NextServiceDue()
		if !ok || due.After(cutoff) {
			continue
		}
		found = append(found, scheduled{equipment: *cloneEquipment(e), due: due})
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].due.Equal(found[j].due) {
			return found[i].due.Before(found[j].due)
		}
		return found[i].equipment.Code < found[j].equipment.Code
	})
	out := make([]domain.Equipment, 0, len(found))
	for _, f := range found {
		out = append(out, f.equipment)
	}
	return out, nil
}

type reportView struct{ s *Store }

func (v reportView) GetByID(_ context.Context, id string) (*domain.ServiceReport, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReport(r), nil
}

func (v reportView) ListByTicket(_ context.Context, ticketID string) ([]domain.ServiceReport, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []domain.ServiceReport
	for _, r := range v.s.reports {
		if r.TicketID == ticketID {
			out = append(out, *cloneReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

type commentView struct{ s *Store }

func (v commentView) Create(_ context.Context, comment *domain.Comment) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c := *comment
	c.Attachments = append([]string(nil), comment.Attachments...)
	v.s.comments[comment.TicketID] = append(v.s.comments[comment.TicketID], c)
	return nil
}

func (v commentView) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return append([]domain.Comment(nil), v.s.comments[ticketID]...), nil
}

type userView struct{ s *Store }

func (v userView) Create(_ context.Context, user *domain.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	u := *user
	v.s.users[user.ID] = &u
	return nil
}

func (v userView) GetByID(_ context.Context, id string) (*domain.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (v userView) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, u := range v.s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v userView) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []domain.User
	for _, u := range v.s.users {
		if u.Role == role && u.Active {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v userView) SetActive(_ context.Context, id string, active bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

type notificationView struct{ s *Store }

func (v notificationView) Create(_ context.Context, n *domain.Notification) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := *n
	v.s.notifications[n.ID] = &out
	return nil
}

func (v notificationView) ListByUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []domain.Notification
	for _, n := range v.s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v notificationView) MarkRead(_ context.Context, id, userID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.Read = true
	return nil
}

func cloneEquipment(e *domain.Equipment) *domain.Equipment {
	out := *e
	if e.LastServiceDate != nil {
		at := *e.LastServiceDate
		out.LastServiceDate = &at
	}
	if e.ServiceIntervalDays != nil {
		days := *e.ServiceIntervalDays
		out.ServiceIntervalDays = &days
	}
	return &out
}

func cloneReport(r *domain.ServiceReport) *domain.ServiceReport {
	out := *r
	out.PartsReplaced = append([]domain.PartReplaced(nil), r.PartsReplaced...)
	out.BeforePhotos = append([]string(nil), r.BeforePhotos...)
	out.AfterPhotos = append([]string(nil), r.AfterPhotos...)
	if r.VerifiedBy != nil {
		id := *r.VerifiedBy
		out.VerifiedBy = &id
	}
	if r.VerifiedAt != nil {
		at := *r.VerifiedAt
		out.VerifiedAt = &at
	}
	return &out
}
