package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
)

func newPersonService() (PersonService, *memStore) {
	store := newMemStore()
	return NewPersonService(store, zerolog.Nop()), store
}

func TestCreatePerson(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with a parsed role", func(t *testing.T) {
		svc, _ := newPersonService()

		person, err := svc.CreatePerson(ctx, &models.CreatePersonRequest{
			Name:  "  Ana Costa ",
			IstID: "ist100200",
			Email: "ana@tecnico.pt",
			Type:  "student",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Costa", person.Name)
		assert.Equal(t, models.RoleStudent, person.Role)
		assert.NotEmpty(t, person.ID)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		svc, _ := newPersonService()

		_, err := svc.CreatePerson(ctx, &models.CreatePersonRequest{
			Name:  "Ana",
			IstID: "ist1",
			Email: "ana@tecnico.pt",
			Type:  "PROVOST",
		})
		assert.True(t, apperr.Is(err, apperr.InvalidRole))
	})

	t.Run("IST id and email must be unique", func(t *testing.T) {
		svc, _ := newPersonService()

		_, err := svc.CreatePerson(ctx, &models.CreatePersonRequest{
			Name: "Ana", IstID: "ist1", Email: "ana@tecnico.pt", Type: "STUDENT",
		})
		require.NoError(t, err)

		_, err = svc.CreatePerson(ctx, &models.CreatePersonRequest{
			Name: "Rui", IstID: "ist1", Email: "rui@tecnico.pt", Type: "STUDENT",
		})
		assert.True(t, apperr.Is(err, apperr.DuplicateIstID))

		_, err = svc.CreatePerson(ctx, &models.CreatePersonRequest{
			Name: "Rui", IstID: "ist2", Email: "ana@tecnico.pt", Type: "STUDENT",
		})
		assert.True(t, apperr.Is(err, apperr.DuplicateEmail))
	})
}

func TestPersonLookups(t *testing.T) {
	ctx := context.Background()

	svc, _ := newPersonService()
	created, err := svc.CreatePerson(ctx, &models.CreatePersonRequest{
		Name: "Ana", IstID: "ist1", Email: "ana@tecnico.pt", Type: "TEACHER",
	})
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		person, err := svc.GetPersonByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.IstID, person.IstID)

		_, err = svc.GetPersonByID(ctx, uuid.New().String())
		assert.True(t, apperr.Is(err, apperr.PersonNotFound))
	})

	t.Run("by IST id and role", func(t *testing.T) {
		person, err := svc.GetPersonByIstIDAndRole(ctx, "ist1", models.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, created.ID, person.ID)

		_, err = svc.GetPersonByIstIDAndRole(ctx, "ist1", models.RoleStudent)
		assert.True(t, apperr.Is(err, apperr.RoleMismatch))
	})

	t.Run("by role", func(t *testing.T) {
		teachers, err := svc.GetPeopleByRole(ctx, models.RoleTeacher)
		require.NoError(t, err)
		assert.Len(t, teachers, 1)

		students, err := svc.GetPeopleByRole(ctx, models.RoleStudent)
		require.NoError(t, err)
		assert.Empty(t, students)
	})
}

func TestUpdateAndDeletePerson(t *testing.T) {
	ctx := context.Background()

	svc, _ := newPersonService()
	created, err := svc.CreatePerson(ctx, &models.CreatePersonRequest{
		Name: "Ana", IstID: "ist1", Email: "ana@tecnico.pt", Type: "STUDENT",
	})
	require.NoError(t, err)
	other, err := svc.CreatePerson(ctx, &models.CreatePersonRequest{
		Name: "Rui", IstID: "ist2", Email: "rui@tecnico.pt", Type: "STUDENT",
	})
	require.NoError(t, err)

	t.Run("update rejects taken email", func(t *testing.T) {
		_, err := svc.UpdatePerson(ctx, created.ID, &models.CreatePersonRequest{
			Name: "Ana", Email: other.Email,
		})
		assert.True(t, apperr.Is(err, apperr.DuplicateEmail))
	})

	t.Run("update changes name and email", func(t *testing.T) {
		person, err := svc.UpdatePerson(ctx, created.ID, &models.CreatePersonRequest{
			Name: "Ana Maria", Email: "ana.maria@tecnico.pt",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", person.Name)
		assert.Equal(t, "ana.maria@tecnico.pt", person.Email)
	})

	t.Run("delete removes the person", func(t *testing.T) {
		require.NoError(t, svc.DeletePerson(ctx, other.ID))

		_, err := svc.GetPersonByID(ctx, other.ID)
		assert.True(t, apperr.Is(err, apperr.PersonNotFound))

		err = svc.DeletePerson(ctx, other.ID)
		assert.True(t, apperr.Is(err, apperr.PersonNotFound))
	})
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, requireRole(models.RoleSC, models.RoleSC))
	assert.NoError(t, requireRole(models.RoleStaff, models.RoleCoordinator, models.RoleStaff))

	err := requireRole(models.RoleStudent, models.RoleCoordinator)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}
