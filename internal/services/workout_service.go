package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// Advisory lock namespaces so sequence counters on different parent tables
// never contend on the same key.
const (
	lockNamespaceWorkoutSets  = 1
	lockNamespaceSetReps      = 2
	lockNamespaceProgramDays  = 3
	lockNamespaceDayExercises = 4
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RepEvent is pushed to the live feed after a rep lands.
type RepEvent struct {
	WorkoutID int64
	Set       models.Set
	Rep       models.Rep
}

type liveFeed interface {
	PublishRep(athleteID int64, coachID *int64, event RepEvent)
}

type WorkoutService struct {
	db          *pgxpool.Pool
	workoutRepo *repository.WorkoutRepository
	setRepo     *repository.SetRepository
	repRepo     *repository.RepRepository
	userRepo    userReader
	feed        liveFeed
}

func NewWorkoutService(
	db *pgxpool.Pool,
	workoutRepo *repository.WorkoutRepository,
	setRepo *repository.SetRepository,
	repRepo *repository.RepRepository,
	userRepo userReader,
	feed liveFeed,
) *WorkoutService {
	return &WorkoutService{
		db:          db,
		workoutRepo: workoutRepo,
		setRepo:     setRepo,
		repRepo:     repRepo,
		userRepo:    userRepo,
		feed:        feed,
	}
}

func (s *WorkoutService) StartWorkout(
	ctx context.Context,
	principal models.Principal,
	notes *string,
) (*models.Workout, error) {
	if notes != nil && strings.TrimSpace(*notes) == "" {
		return nil, ErrInvalidInput
	}
	return s.workoutRepo.Create(ctx, principal.ID, notes)
}

func (s *WorkoutService) ListWorkouts(
	ctx context.Context,
	principal models.Principal,
) ([]models.Workout, error) {
	return s.workoutRepo.ListByUserID(ctx, principal.ID)
}

// ListAthleteWorkouts is the coach's read-only view of an athlete's
// history; the athlete must be linked to this coach.
func (s *WorkoutService) ListAthleteWorkouts(
	ctx context.Context,
	principal models.Principal,
	athleteID int64,
) ([]models.Workout, error) {
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	if !CanManageAthlete(principal, athlete) {
		return nil, pgx.ErrNoRows
	}
	return s.workoutRepo.ListByUserID(ctx, athleteID)
}

func (s *WorkoutService) GetWorkout(
	ctx context.Context,
	principal models.Principal,
	workoutID int64,
) (*models.WorkoutDetail, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if workout.UserID != principal.ID {
		owner, err := s.userRepo.GetByID(ctx, workout.UserID)
		if err != nil {
			return nil, err
		}
		if !CanViewWorkout(principal, workout, owner) {
			// Hidden resources read as absent, not forbidden.
			return nil, pgx.ErrNoRows
		}
	}

	sets, err := s.setRepo.ListByWorkoutID(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	detail := &models.WorkoutDetail{Workout: *workout, Sets: make([]models.SetDetail, 0, len(sets))}
	for _, set := range sets {
		reps, err := s.repRepo.ListBySetID(ctx, set.ID)
		if err != nil {
			return nil, err
		}
		detail.Sets = append(detail.Sets, models.SetDetail{Set: set, Reps: reps})
	}
	return detail, nil
}

func (s *WorkoutService) CompleteWorkout(
	ctx context.Context,
	principal models.Principal,
	workoutID int64,
) (*models.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if !CanEditWorkout(principal, workout) {
		return nil, pgx.ErrNoRows
	}

	completed, err := s.workoutRepo.Complete(ctx, workoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return completed, nil
}

func (s *WorkoutService) DeleteWorkout(
	ctx context.Context,
	principal models.Principal,
	workoutID int64,
) error {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		return err
	}
	if !CanEditWorkout(principal, workout) {
		return pgx.ErrNoRows
	}
	return s.workoutRepo.Delete(ctx, workoutID)
}

type AddSetInput struct {
	Exercise string
	Weight   *float64
}

func (s *WorkoutService) AddSet(
	ctx context.Context,
	principal models.Principal,
	workoutID int64,
	input AddSetInput,
) (*models.Set, error) {
	exercise := strings.TrimSpace(input.Exercise)
	if exercise == "" {
		return nil, ErrInvalidInput
	}
	if input.Weight != nil && *input.Weight < 0 {
		return nil, ErrInvalidInput
	}

	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if !CanEditWorkout(principal, workout) {
		return nil, pgx.ErrNoRows
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceWorkoutSets, workoutID); err != nil {
		return nil, err
	}

	set, err := repository.NewSetRepository(tx).Create(ctx, repository.CreateSetInput{
		WorkoutID: workoutID,
		Exercise:  exercise,
		Weight:    input.Weight,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *WorkoutService) DeleteSet(
	ctx context.Context,
	principal models.Principal,
	setID int64,
) error {
	set, err := s.setRepo.GetByID(ctx, setID)
	if err != nil {
		return err
	}
	workout, err := s.workoutRepo.GetByID(ctx, set.WorkoutID)
	if err != nil {
		return err
	}
	if !CanEditWorkout(principal, workout) {
		return pgx.ErrNoRows
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceWorkoutSets, set.WorkoutID); err != nil {
		return err
	}

	txSetRepo := repository.NewSetRepository(tx)
	if err := txSetRepo.Delete(ctx, setID); err != nil {
		return err
	}
	if err := txSetRepo.CloseNumberGap(ctx, set.WorkoutID, set.SetNumber); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type AddRepInput struct {
	Depth       *float64
	TimeSeconds *float64
	Velocity    *float64
}

// AddRep inserts the rep and recomputes the set's aggregates in one
// transaction, so the stored aggregates are never stale relative to the
// rep collection.
func (s *WorkoutService) AddRep(
	ctx context.Context,
	principal models.Principal,
	setID int64,
	input AddRepInput,
) (*models.Rep, error) {
	if input.Depth != nil && *input.Depth < 0 {
		return nil, ErrInvalidInput
	}
	if input.TimeSeconds != nil && *input.TimeSeconds <= 0 {
		return nil, ErrInvalidInput
	}
	if input.Velocity != nil && *input.Velocity < 0 {
		return nil, ErrInvalidInput
	}

	set, err := s.setRepo.GetByID(ctx, setID)
	if err != nil {
		return nil, err
	}
	workout, err := s.workoutRepo.GetByID(ctx, set.WorkoutID)
	if err != nil {
		return nil, err
	}
	if !CanEditWorkout(principal, workout) {
		return nil, pgx.ErrNoRows
	}

	velocity := input.Velocity
	if computed := SpeedScore(input.Depth, input.TimeSeconds); computed != nil {
		velocity = computed
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceSetReps, setID); err != nil {
		return nil, err
	}

	txRepRepo := repository.NewRepRepository(tx)
	txSetRepo := repository.NewSetRepository(tx)

	rep, err := txRepRepo.Create(ctx, repository.CreateRepInput{
		SetID:       setID,
		Depth:       input.Depth,
		TimeSeconds: input.TimeSeconds,
		Velocity:    velocity,
		Quality:     ClassifyDepth(input.Depth),
	})
	if err != nil {
		return nil, err
	}

	updatedSet, err := s.recomputeSet(ctx, txSetRepo, txRepRepo, setID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.publishRep(ctx, workout, updatedSet, rep)
	}
	return rep, nil
}

func (s *WorkoutService) DeleteRep(
	ctx context.Context,
	principal models.Principal,
	repID int64,
) error {
	rep, err := s.repRepo.GetByID(ctx, repID)
	if err != nil {
		return err
	}
	set, err := s.setRepo.GetByID(ctx, rep.SetID)
	if err != nil {
		return err
	}
	workout, err := s.workoutRepo.GetByID(ctx, set.WorkoutID)
	if err != nil {
		return err
	}
	if !CanEditWorkout(principal, workout) {
		return pgx.ErrNoRows
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", lockNamespaceSetReps, rep.SetID); err != nil {
		return err
	}

	txRepRepo := repository.NewRepRepository(tx)
	txSetRepo := repository.NewSetRepository(tx)

	if err := txRepRepo.Delete(ctx, repID); err != nil {
		return err
	}
	if err := txRepRepo.CloseNumberGap(ctx, rep.SetID, rep.RepNumber); err != nil {
		return err
	}
	if _, err := s.recomputeSet(ctx, txSetRepo, txRepRepo, rep.SetID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *WorkoutService) recomputeSet(
	ctx context.Context,
	setRepo *repository.SetRepository,
	repRepo *repository.RepRepository,
	setID int64,
) (*models.Set, error) {
	reps, err := repRepo.ListBySetID(ctx, setID)
	if err != nil {
		return nil, err
	}
	if err := setRepo.UpdateAggregates(ctx, setID, RecomputeAggregates(reps)); err != nil {
		return nil, err
	}
	return setRepo.GetByID(ctx, setID)
}

func (s *WorkoutService) publishRep(
	ctx context.Context,
	workout *models.Workout,
	set *models.Set,
	rep *models.Rep,
) {
	var coachID *int64
	owner, err := s.userRepo.GetByID(ctx, workout.UserID)
	if err == nil {
		coachID = owner.CoachID
	}
	s.feed.PublishRep(workout.UserID, coachID, RepEvent{
		WorkoutID: workout.ID,
		Set:       *set,
		Rep:       *rep,
	})
}
