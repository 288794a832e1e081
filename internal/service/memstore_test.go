package service

import (
	"context"
	"sync"
	"time"

	"github.com/dei-rnl/thesis-service/internal/models"
	"github.com/dei-rnl/thesis-service/internal/repository"
)

// memStore is an in-memory repository.Store used by the service tests.
// A single mutex serializes transactions, standing in for the row locks
// the Postgres store takes.
type memStore struct {
	mu       sync.Mutex
	people   map[string]models.Person
	theses   map[string]models.ThesisWorkflow
	defenses map[string]models.DefenseWorkflow

	// lockedDefenseReads counts FOR UPDATE style reads of defenses, so tests
	// can assert a transition took the locking path.
	lockedDefenseReads int
	// createDefenseErr, when set, is returned by the next defense Create.
	createDefenseErr error
}

func newMemStore() *memStore {
	return &memStore{
		people:   make(map[string]models.Person),
		theses:   make(map[string]models.ThesisWorkflow),
		defenses: make(map[string]models.DefenseWorkflow),
	}
}

func (s *memStore) People() repository.PersonRepository    { return &memPeople{s} }
func (s *memStore) Theses() repository.ThesisRepository    { return &memTheses{s} }
func (s *memStore) Defenses() repository.DefenseRepository { return &memDefenses{s} }

func (s *memStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&lockedStore{s})
}

// lockedStore is the view handed to a transaction body. The mutex is already
// held, so nested InTx calls just reuse it.
type lockedStore struct {
	s *memStore
}

func (l *lockedStore) People() repository.PersonRepository    { return &memPeople{l.s} }
func (l *lockedStore) Theses() repository.ThesisRepository    { return &memTheses{l.s} }
func (l *lockedStore) Defenses() repository.DefenseRepository { return &memDefenses{l.s} }

func (l *lockedStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(l)
}

type memPeople struct{ s *memStore }

func (r *memPeople) Create(ctx context.Context, person *models.Person) error {
	r.s.people[person.ID] = *person
	return nil
}

func (r *memPeople) GetByID(ctx context.Context, id string) (*models.Person, error) {
	if person, ok := r.s.people[id]; ok {
		p := person
		return &p, nil
	}
	return nil, nil
}

func (r *memPeople) GetByIDs(ctx context.Context, ids []string) ([]models.Person, error) {
	// One row per distinct id, matching the WHERE id = ANY($1) query.
	seen := make(map[string]struct{}, len(ids))
	var out []models.Person
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if person, ok := r.s.people[id]; ok {
			out = append(out, person)
		}
	}
	return out, nil
}

func (r *memPeople) GetByIstID(ctx context.Context, istID string) (*models.Person, error) {
	for _, person := range r.s.people {
		if person.IstID == istID {
			p := person
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPeople) GetByEmail(ctx context.Context, email string) (*models.Person, error) {
	for _, person := range r.s.people {
		if person.Email == email {
			p := person
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPeople) GetAll(ctx context.Context) ([]models.Person, error) {
	var out []models.Person
	for _, person := range r.s.people {
		out = append(out, person)
	}
	return out, nil
}

func (r *memPeople) GetByRole(ctx context.Context, role models.Role) ([]models.Person, error) {
	var out []models.Person
	for _, person := range r.s.people {
		if person.Role == role {
			out = append(out, person)
		}
	}
	return out, nil
}

func (r *memPeople) Update(ctx context.Context, person *models.Person) error {
	r.s.people[person.ID] = *person
	return nil
}

func (r *memPeople) Delete(ctx context.Context, id string) error {
	delete(r.s.people, id)
	return nil
}

func (r *memPeople) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := r.s.people[id]
	return ok, nil
}

type memTheses struct{ s *memStore }

func (r *memTheses) Create(ctx context.Context, thesis *models.ThesisWorkflow) error {
	r.s.theses[thesis.ID] = *thesis
	return nil
}

func (r *memTheses) GetByID(ctx context.Context, id string) (*models.ThesisWorkflow, error) {
	if thesis, ok := r.s.theses[id]; ok {
		t := thesis
		return &t, nil
	}
	return nil, nil
}

func (r *memTheses) GetByIDForUpdate(ctx context.Context, id string) (*models.ThesisWorkflow, error) {
	return r.GetByID(ctx, id)
}

func (r *memTheses) GetByStudentID(ctx context.Context, studentID string) (*models.ThesisWorkflow, error) {
	for _, thesis := range r.s.theses {
		if thesis.StudentID == studentID {
			t := thesis
			return &t, nil
		}
	}
	return nil, nil
}

func (r *memTheses) GetByStatus(ctx context.Context, status models.ThesisStatus) ([]models.ThesisWorkflow, error) {
	var out []models.ThesisWorkflow
	for _, thesis := range r.s.theses {
		if thesis.Status == status {
			out = append(out, thesis)
		}
	}
	return out, nil
}

func (r *memTheses) GetAll(ctx context.Context) ([]models.ThesisWorkflow, error) {
	var out []models.ThesisWorkflow
	for _, thesis := range r.s.theses {
		out = append(out, thesis)
	}
	return out, nil
}

func (r *memTheses) Update(ctx context.Context, thesis *models.ThesisWorkflow) error {
	r.s.theses[thesis.ID] = *thesis
	return nil
}

func (r *memTheses) Delete(ctx context.Context, id string) error {
	delete(r.s.theses, id)
	return nil
}

type memDefenses struct{ s *memStore }

func (r *memDefenses) Create(ctx context.Context, defense *models.DefenseWorkflow) error {
	if err := r.s.createDefenseErr; err != nil {
		r.s.createDefenseErr = nil
		return err
	}
	r.s.defenses[defense.ID] = *defense
	return nil
}

func (r *memDefenses) GetByID(ctx context.Context, id string) (*models.DefenseWorkflow, error) {
	if defense, ok := r.s.defenses[id]; ok {
		d := defense
		return &d, nil
	}
	return nil, nil
}

func (r *memDefenses) GetByIDForUpdate(ctx context.Context, id string) (*models.DefenseWorkflow, error) {
	r.s.lockedDefenseReads++
	return r.GetByID(ctx, id)
}

func (r *memDefenses) GetByThesisID(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error) {
	for _, defense := range r.s.defenses {
		if defense.ThesisID == thesisID {
			d := defense
			return &d, nil
		}
	}
	return nil, nil
}

func (r *memDefenses) GetByThesisIDForUpdate(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error) {
	r.s.lockedDefenseReads++
	return r.GetByThesisID(ctx, thesisID)
}

func (r *memDefenses) GetByStudentID(ctx context.Context, studentID string) (*models.DefenseWorkflow, error) {
	for _, defense := range r.s.defenses {
		if defense.StudentID == studentID {
			d := defense
			return &d, nil
		}
	}
	return nil, nil
}

func (r *memDefenses) GetByStatus(ctx context.Context, status models.DefenseStatus) ([]models.DefenseWorkflow, error) {
	var out []models.DefenseWorkflow
	for _, defense := range r.s.defenses {
		if defense.Status == status {
			out = append(out, defense)
		}
	}
	return out, nil
}

func (r *memDefenses) GetAll(ctx context.Context) ([]models.DefenseWorkflow, error) {
	var out []models.DefenseWorkflow
	for _, defense := range r.s.defenses {
		out = append(out, defense)
	}
	return out, nil
}

func (r *memDefenses) GetDueForReview(ctx context.Context, cutoff time.Time, status models.DefenseStatus) ([]models.DefenseWorkflow, error) {
	var out []models.DefenseWorkflow
	for _, defense := range r.s.defenses {
		if defense.Status == status && defense.DefenseDate != nil && defense.DefenseDate.Before(cutoff) {
			out = append(out, defense)
		}
	}
	return out, nil
}

func (r *memDefenses) Update(ctx context.Context, defense *models.DefenseWorkflow) error {
	r.s.defenses[defense.ID] = *defense
	return nil
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	completed []models.ThesisCompletedEvent
	scheduled []models.DefenseScheduledEvent
	graded    []models.DefenseGradedEvent
}

func (p *capturingPublisher) PublishThesisCompleted(ctx context.Context, event *models.ThesisCompletedEvent) error {
	p.completed = append(p.completed, *event)
	return nil
}

func (p *capturingPublisher) PublishDefenseScheduled(ctx context.Context, event *models.DefenseScheduledEvent) error {
	p.scheduled = append(p.scheduled, *event)
	return nil
}

func (p *capturingPublisher) PublishDefenseGraded(ctx context.Context, event *models.DefenseGradedEvent) error {
	p.graded = append(p.graded, *event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }
