package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
)

type defenseFixture struct {
	*thesisFixture
	defenses DefenseWorkflowService

	thesis  *models.ThesisWorkflow
	defense *models.DefenseWorkflow
}

// newDefenseFixture walks a thesis all the way to SUBMITTED_TO_FENIX so the
// auto-created defense workflow is ready to exercise.
func newDefenseFixture(t *testing.T) *defenseFixture {
	t.Helper()

	tf := newThesisFixture(t)
	f := &defenseFixture{
		thesisFixture: tf,
		defenses:      NewDefenseWorkflowService(tf.store, tf.publisher, zerolog.Nop()),
	}

	thesis := f.submit(t)
	f.thesis = f.advanceTo(t, thesis.ID, models.ThesisStatusSubmittedToFenix)

	defense, err := f.store.Defenses().GetByThesisID(context.Background(), thesis.ID)
	require.NoError(t, err)
	require.NotNil(t, defense)
	f.defense = defense

	return f
}

func (f *defenseFixture) schedule(t *testing.T) *models.DefenseWorkflow {
	t.Helper()

	date := time.Now().Add(30 * 24 * time.Hour)
	defense, err := f.defenses.ScheduleDefense(context.Background(), &models.ScheduleDefenseRequest{
		ThesisID:    f.thesis.ID,
		DefenseDate: date,
	}, models.RoleCoordinator)
	require.NoError(t, err)
	return defense
}

func TestScheduleDefense(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules the unscheduled defense", func(t *testing.T) {
		f := newDefenseFixture(t)

		defense := f.schedule(t)

		assert.Equal(t, f.defense.ID, defense.ID, "must reuse the spawned workflow")
		assert.Equal(t, models.DefenseStatusScheduled, defense.Status)
		require.NotNil(t, defense.DefenseDate)

		require.Len(t, f.publisher.scheduled, 1)
		assert.Equal(t, defense.ID, f.publisher.scheduled[0].DefenseID)
	})

	t.Run("requires the coordinator role", func(t *testing.T) {
		f := newDefenseFixture(t)

		_, err := f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    f.thesis.ID,
			DefenseDate: time.Now().Add(time.Hour),
		}, models.RoleStaff)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})

	t.Run("rejects past dates", func(t *testing.T) {
		f := newDefenseFixture(t)

		_, err := f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    f.thesis.ID,
			DefenseDate: time.Now().Add(-time.Minute),
		}, models.RoleCoordinator)
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("rejects thesis that has not reached Fenix", func(t *testing.T) {
		f := newDefenseFixture(t)
		_, err := f.svc.RevertToPreviousState(ctx, f.thesis.ID, models.RoleStaff)
		require.NoError(t, err)

		_, err = f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    f.thesis.ID,
			DefenseDate: time.Now().Add(time.Hour),
		}, models.RoleCoordinator)
		assert.True(t, apperr.Is(err, apperr.InvalidThesisState))
	})

	t.Run("promotion reads the workflow under lock", func(t *testing.T) {
		f := newDefenseFixture(t)

		before := f.store.lockedDefenseReads
		f.schedule(t)
		assert.Greater(t, f.store.lockedDefenseReads, before,
			"scheduling must lock the defense row before checking its status")
	})

	t.Run("insert race surfaces as the defense conflict", func(t *testing.T) {
		f := newDefenseFixture(t)

		// A concurrent transaction won the insert; ours trips the
		// unique(thesis_id) constraint.
		delete(f.store.defenses, f.defense.ID)
		f.store.createDefenseErr = &pq.Error{Code: "23505"}

		_, err := f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    f.thesis.ID,
			DefenseDate: time.Now().Add(time.Hour),
		}, models.RoleCoordinator)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.DefenseExists))
	})

	t.Run("other insert failures stay internal", func(t *testing.T) {
		f := newDefenseFixture(t)

		delete(f.store.defenses, f.defense.ID)
		f.store.createDefenseErr = errors.New("connection reset")

		_, err := f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    f.thesis.ID,
			DefenseDate: time.Now().Add(time.Hour),
		}, models.RoleCoordinator)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.Internal))
	})

	t.Run("a scheduled defense cannot be scheduled again", func(t *testing.T) {
		f := newDefenseFixture(t)
		f.schedule(t)

		_, err := f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    f.thesis.ID,
			DefenseDate: time.Now().Add(time.Hour),
		}, models.RoleCoordinator)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.DefenseExists))
	})

	t.Run("unknown thesis", func(t *testing.T) {
		f := newDefenseFixture(t)

		_, err := f.defenses.ScheduleDefense(ctx, &models.ScheduleDefenseRequest{
			ThesisID:    uuid.New().String(),
			DefenseDate: time.Now().Add(time.Hour),
		}, models.RoleCoordinator)
		assert.True(t, apperr.Is(err, apperr.ThesisNotFound))
	})
}

func TestUpdateDefenseSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules directly by defense id", func(t *testing.T) {
		f := newDefenseFixture(t)

		date := time.Now().Add(14 * 24 * time.Hour)
		defense, err := f.defenses.UpdateDefenseSchedule(ctx, f.defense.ID, date, models.RoleCoordinator)
		require.NoError(t, err)
		assert.Equal(t, models.DefenseStatusScheduled, defense.Status)
	})

	t.Run("only unscheduled defenses accept a date", func(t *testing.T) {
		f := newDefenseFixture(t)
		f.schedule(t)

		_, err := f.defenses.UpdateDefenseSchedule(ctx, f.defense.ID, time.Now().Add(time.Hour), models.RoleCoordinator)
		assert.True(t, apperr.Is(err, apperr.InvalidDefenseState))
	})
}

func TestAssignGradeAndSubmit(t *testing.T) {
	ctx := context.Background()

	underReview := func(t *testing.T) *defenseFixture {
		f := newDefenseFixture(t)
		f.schedule(t)
		_, err := f.defenses.SetUnderReview(ctx, f.defense.ID, models.RoleCoordinator)
		require.NoError(t, err)
		return f
	}

	t.Run("grades and submits", func(t *testing.T) {
		f := underReview(t)

		defense, err := f.defenses.AssignGradeAndSubmit(ctx, f.defense.ID, 17.5, models.RoleCoordinator)
		require.NoError(t, err)
		assert.Equal(t, models.DefenseStatusSubmittedToFenix, defense.Status)
		require.NotNil(t, defense.Grade)
		assert.Equal(t, 17.5, *defense.Grade)

		require.Len(t, f.publisher.graded, 1)
		assert.Equal(t, 17.5, f.publisher.graded[0].Grade)
	})

	t.Run("grade boundaries", func(t *testing.T) {
		for _, tc := range []struct {
			grade float64
			ok    bool
		}{
			{-0.01, false},
			{0.0, true},
			{20.0, true},
			{20.01, false},
			{15.55, true},
			{15.555, false},
		} {
			f := underReview(t)
			_, err := f.defenses.AssignGradeAndSubmit(ctx, f.defense.ID, tc.grade, models.RoleCoordinator)
			if tc.ok {
				assert.NoError(t, err, "grade %v", tc.grade)
			} else {
				assert.True(t, apperr.Is(err, apperr.Validation), "grade %v", tc.grade)
			}
		}
	})

	t.Run("grading requires under review", func(t *testing.T) {
		f := newDefenseFixture(t)
		f.schedule(t)

		_, err := f.defenses.AssignGradeAndSubmit(ctx, f.defense.ID, 12, models.RoleCoordinator)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.InvalidDefenseState))
	})

	t.Run("only the coordinator grades", func(t *testing.T) {
		f := underReview(t)

		_, err := f.defenses.AssignGradeAndSubmit(ctx, f.defense.ID, 12, models.RoleStaff)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})
}

func TestDefenseRevert(t *testing.T) {
	ctx := context.Background()

	t.Run("inverse walk retains grade and date", func(t *testing.T) {
		f := newDefenseFixture(t)
		f.schedule(t)
		_, err := f.defenses.SetUnderReview(ctx, f.defense.ID, models.RoleCoordinator)
		require.NoError(t, err)
		graded, err := f.defenses.AssignGradeAndSubmit(ctx, f.defense.ID, 16, models.RoleCoordinator)
		require.NoError(t, err)

		reverted, err := f.defenses.RevertToPreviousState(ctx, f.defense.ID, models.RoleCoordinator)
		require.NoError(t, err)
		assert.Equal(t, models.DefenseStatusUnderReview, reverted.Status)
		assert.Equal(t, graded.Grade, reverted.Grade)

		reverted, err = f.defenses.RevertToPreviousState(ctx, f.defense.ID, models.RoleCoordinator)
		require.NoError(t, err)
		assert.Equal(t, models.DefenseStatusScheduled, reverted.Status)
		assert.Equal(t, graded.DefenseDate, reverted.DefenseDate)
	})

	t.Run("scheduled and unscheduled states cannot revert", func(t *testing.T) {
		f := newDefenseFixture(t)

		_, err := f.defenses.RevertToPreviousState(ctx, f.defense.ID, models.RoleCoordinator)
		assert.True(t, apperr.Is(err, apperr.InvalidDefenseState))

		f.schedule(t)
		_, err = f.defenses.RevertToPreviousState(ctx, f.defense.ID, models.RoleCoordinator)
		assert.True(t, apperr.Is(err, apperr.InvalidDefenseState))
	})
}

func TestUpdateDefenseStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("moves past-date scheduled defenses under review", func(t *testing.T) {
		f := newDefenseFixture(t)

		// Backdate the scheduled defense as if its date has passed.
		f.schedule(t)
		past := time.Now().Add(-48 * time.Hour)
		f.defense.Status = models.DefenseStatusScheduled
		f.defense.DefenseDate = &past
		require.NoError(t, f.store.Defenses().Update(ctx, f.defense))

		updated, err := f.defenses.UpdateDefenseStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, updated)

		defense, err := f.defenses.GetDefenseByID(ctx, f.defense.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DefenseStatusUnderReview, defense.Status)
	})

	t.Run("sweep is idempotent", func(t *testing.T) {
		f := newDefenseFixture(t)
		f.schedule(t)
		past := time.Now().Add(-time.Hour)
		f.defense.Status = models.DefenseStatusScheduled
		f.defense.DefenseDate = &past
		require.NoError(t, f.store.Defenses().Update(ctx, f.defense))

		updated, err := f.defenses.UpdateDefenseStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, updated)

		updated, err = f.defenses.UpdateDefenseStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, updated)
	})

	t.Run("future defenses are left alone", func(t *testing.T) {
		f := newDefenseFixture(t)
		f.schedule(t)

		updated, err := f.defenses.UpdateDefenseStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, updated)

		defense, err := f.defenses.GetDefenseByID(ctx, f.defense.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DefenseStatusScheduled, defense.Status)
	})
}

func TestDefenseGetters(t *testing.T) {
	ctx := context.Background()

	f := newDefenseFixture(t)

	byThesis, err := f.defenses.GetDefenseByThesis(ctx, f.thesis.ID)
	require.NoError(t, err)
	assert.Equal(t, f.defense.ID, byThesis.ID)

	byStudent, err := f.defenses.GetDefenseByStudent(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, f.defense.ID, byStudent.ID)

	unscheduled, err := f.defenses.GetDefensesByStatus(ctx, models.DefenseStatusUnscheduled)
	require.NoError(t, err)
	assert.Len(t, unscheduled, 1)

	_, err = f.defenses.GetDefenseByID(ctx, uuid.New().String())
	assert.True(t, apperr.Is(err, apperr.DefenseNotFound))
}
