package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
	"github.com/dei-rnl/thesis-service/internal/repository"
)

// PersonService is the person directory: identity and role for every actor.
// The workflow engines only read from it.
type PersonService interface {
	CreatePerson(ctx context.Context, req *models.CreatePersonRequest) (*models.Person, error)
	GetPersonByID(ctx context.Context, id string) (*models.Person, error)
	GetPersonByIstID(ctx context.Context, istID string) (*models.Person, error)
	GetPersonByIstIDAndRole(ctx context.Context, istID string, role models.Role) (*models.Person, error)
	GetAllPeople(ctx context.Context) ([]models.Person, error)
	GetPeopleByRole(ctx context.Context, role models.Role) ([]models.Person, error)
	UpdatePerson(ctx context.Context, id string, req *models.CreatePersonRequest) (*models.Person, error)
	DeletePerson(ctx context.Context, id string) error
}

type personService struct {
	store  repository.Store
	logger zerolog.Logger
}

func NewPersonService(store repository.Store, logger zerolog.Logger) PersonService {
	return &personService{
		store:  store,
		logger: logger,
	}
}

func (s *personService) CreatePerson(ctx context.Context, req *models.CreatePersonRequest) (*models.Person, error) {
	role, err := models.ParseRole(req.Type)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "person name must not be empty")
	}

	people := s.store.People()

	existing, err := people.GetByIstID(ctx, req.IstID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to check existing IST id")
	}
	if existing != nil {
		return nil, apperr.New(apperr.DuplicateIstID, req.IstID)
	}

	existing, err = people.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to check existing email")
	}
	if existing != nil {
		return nil, apperr.New(apperr.DuplicateEmail, req.Email)
	}

	person := &models.Person{
		ID:        uuid.New().String(),
		Name:      name,
		IstID:     req.IstID,
		Email:     req.Email,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := people.Create(ctx, person); err != nil {
		return nil, apperr.Internalf(err, "failed to create person")
	}

	s.logger.Info().
		Str("person_id", person.ID).
		Str("ist_id", person.IstID).
		Str("role", person.Role.String()).
		Msg("Person created")

	return person, nil
}

func (s *personService) GetPersonByID(ctx context.Context, id string) (*models.Person, error) {
	person, err := s.store.People().GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get person")
	}
	if person == nil {
		return nil, apperr.New(apperr.PersonNotFound, id)
	}

	return person, nil
}

func (s *personService) GetPersonByIstID(ctx context.Context, istID string) (*models.Person, error) {
	person, err := s.store.People().GetByIstID(ctx, istID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get person by IST id")
	}
	if person == nil {
		return nil, apperr.New(apperr.PersonNotFound, istID)
	}

	return person, nil
}

func (s *personService) GetPersonByIstIDAndRole(ctx context.Context, istID string, role models.Role) (*models.Person, error) {
	person, err := s.GetPersonByIstID(ctx, istID)
	if err != nil {
		return nil, err
	}

	if person.Role != role {
		return nil, apperr.New(apperr.RoleMismatch, istID, role)
	}

	return person, nil
}

func (s *personService) GetAllPeople(ctx context.Context) ([]models.Person, error) {
	people, err := s.store.People().GetAll(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get all people")
	}

	return people, nil
}

func (s *personService) GetPeopleByRole(ctx context.Context, role models.Role) ([]models.Person, error) {
	people, err := s.store.People().GetByRole(ctx, role)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get people by role")
	}

	return people, nil
}

func (s *personService) UpdatePerson(ctx context.Context, id string, req *models.CreatePersonRequest) (*models.Person, error) {
	people := s.store.People()

	person, err := people.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get person")
	}
	if person == nil {
		return nil, apperr.New(apperr.PersonNotFound, id)
	}

	if req.Email != person.Email {
		existing, err := people.GetByEmail(ctx, req.Email)
		if err != nil {
			return nil, apperr.Internalf(err, "failed to check email availability")
		}
		if existing != nil && existing.ID != id {
			return nil, apperr.New(apperr.DuplicateEmail, req.Email)
		}
	}

	person.Name = strings.TrimSpace(req.Name)
	person.Email = req.Email
	person.UpdatedAt = time.Now()

	if err := people.Update(ctx, person); err != nil {
		return nil, apperr.Internalf(err, "failed to update person")
	}

	return person, nil
}

func (s *personService) DeletePerson(ctx context.Context, id string) error {
	people := s.store.People()

	person, err := people.GetByID(ctx, id)
	if err != nil {
		return apperr.Internalf(err, "failed to get person")
	}
	if person == nil {
		return apperr.New(apperr.PersonNotFound, id)
	}

	if err := people.Delete(ctx, id); err != nil {
		return apperr.Internalf(err, "failed to delete person")
	}

	s.logger.Info().Str("person_id", id).Msg("Person deleted")
	return nil
}

// requireRole checks an operation's role gate. The core does not
// authenticate; it authorizes against the role value the caller supplies.
func requireRole(role models.Role, allowed ...models.Role) error {
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = a.String()
	}
	return apperr.New(apperr.Unauthorized, fmt.Sprintf("requires role %s", strings.Join(names, " or ")))
}
