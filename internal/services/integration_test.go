package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/velolift/VeloLiftBack/internal/billing"
	"github.com/velolift/VeloLiftBack/internal/models"
	"github.com/velolift/VeloLiftBack/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

type noopFeed struct{}

func (noopFeed) PublishRep(int64, *int64, RepEvent) {}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationWorkoutService(pool *pgxpool.Pool) *WorkoutService {
	return NewWorkoutService(
		pool,
		repository.NewWorkoutRepository(pool),
		repository.NewSetRepository(pool),
		repository.NewRepRepository(pool),
		repository.NewUserRepository(pool),
		noopFeed{},
	)
}

func createTestAthlete(t *testing.T, ctx context.Context, pool *pgxpool.Pool) *models.User {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("velolift-test-%s@example.com", uuid.NewString()),
		PasswordHash: "test-hash",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	subscriptionType := models.SubscriptionLifetime
	if err := userRepo.UpdateSubscriptionState(ctx, user.ID, true, &subscriptionType, nil); err != nil {
		t.Fatalf("UpdateSubscriptionState: %v", err)
	}
	user.Subscribed = true
	return user
}

func createTestCoach(t *testing.T, ctx context.Context, pool *pgxpool.Pool) *models.User {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	coach := createTestAthlete(t, ctx, pool)
	if err := userRepo.PromoteToCoach(ctx, coach.ID); err != nil {
		t.Fatalf("PromoteToCoach: %v", err)
	}
	coach.IsCoach = true
	return coach
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()
	for _, id := range userIDs {
		if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
			t.Errorf("cleanup user %d: %v", id, err)
		}
	}
}

func TestWorkoutServiceRepFlowKeepsAggregatesFresh(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationWorkoutService(pool)

	athlete := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, athlete.ID) })
	principal := athlete.Principal()

	workout, err := service.StartWorkout(ctx, principal, nil)
	if err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	set, err := service.AddSet(ctx, principal, workout.ID, AddSetInput{Exercise: "back squat"})
	if err != nil {
		t.Fatalf("AddSet: %v", err)
	}

	depth := 14.0
	for _, velocity := range []float64{10, 8} {
		v := velocity
		if _, err := service.AddRep(ctx, principal, set.ID, AddRepInput{Depth: &depth, Velocity: &v}); err != nil {
			t.Fatalf("AddRep(%v): %v", v, err)
		}
	}

	detail, err := service.GetWorkout(ctx, principal, workout.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if len(detail.Sets) != 1 {
		t.Fatalf("expected 1 set, got %d", len(detail.Sets))
	}
	agg := detail.Sets[0].Set
	if agg.RepsCompleted != 2 {
		t.Fatalf("expected 2 reps completed, got %d", agg.RepsCompleted)
	}
	if agg.AvgVelocity == nil || *agg.AvgVelocity != 9 {
		t.Fatalf("expected avg velocity 9, got %v", agg.AvgVelocity)
	}
	if agg.FatigueDrop == nil || *agg.FatigueDrop != 20 {
		t.Fatalf("expected 20%% fatigue drop, got %v", agg.FatigueDrop)
	}

	// Deleting every rep must clear the aggregates back to "no data".
	for _, r := range detail.Sets[0].Reps {
		if err := service.DeleteRep(ctx, principal, r.ID); err != nil {
			t.Fatalf("DeleteRep: %v", err)
		}
	}
	detail, err = service.GetWorkout(ctx, principal, workout.ID)
	if err != nil {
		t.Fatalf("GetWorkout after deletes: %v", err)
	}
	agg = detail.Sets[0].Set
	if agg.RepsCompleted != 0 || agg.AvgVelocity != nil || agg.FatigueDrop != nil || agg.AvgDepth != nil {
		t.Fatalf("expected cleared aggregates, got %+v", agg)
	}
}

func TestWorkoutServiceSetNumbersStayContiguous(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationWorkoutService(pool)

	athlete := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, athlete.ID) })
	principal := athlete.Principal()

	workout, err := service.StartWorkout(ctx, principal, nil)
	if err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}

	var sets []*models.Set
	for _, exercise := range []string{"squat", "bench", "deadlift"} {
		set, err := service.AddSet(ctx, principal, workout.ID, AddSetInput{Exercise: exercise})
		if err != nil {
			t.Fatalf("AddSet(%s): %v", exercise, err)
		}
		sets = append(sets, set)
	}
	if sets[2].SetNumber != 3 {
		t.Fatalf("expected third set numbered 3, got %d", sets[2].SetNumber)
	}

	if err := service.DeleteSet(ctx, principal, sets[1].ID); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}

	detail, err := service.GetWorkout(ctx, principal, workout.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if len(detail.Sets) != 2 {
		t.Fatalf("expected 2 sets, got %d", len(detail.Sets))
	}
	for i, s := range detail.Sets {
		if s.SetNumber != i+1 {
			t.Fatalf("expected contiguous numbering, position %d has set_number %d", i, s.SetNumber)
		}
	}
}

func TestWorkoutServiceCompleteIsSingleShot(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationWorkoutService(pool)

	athlete := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, athlete.ID) })
	principal := athlete.Principal()

	workout, err := service.StartWorkout(ctx, principal, nil)
	if err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	if _, err := service.CompleteWorkout(ctx, principal, workout.ID); err != nil {
		t.Fatalf("CompleteWorkout: %v", err)
	}
	if _, err := service.CompleteWorkout(ctx, principal, workout.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on second complete, got %v", err)
	}
}

func TestInviteServiceRedeemIsSingleUse(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := NewInviteService(pool, repository.NewInviteRepository(pool), repository.NewUserRepository(pool))

	coach := createTestCoach(t, ctx, pool)
	first := createTestAthlete(t, ctx, pool)
	second := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coach.ID, first.ID, second.ID) })

	invite, err := service.CreateInvite(ctx, coach.Principal(), first.Email)
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	accepted, err := service.RedeemInvite(ctx, first.Principal(), invite.Token)
	if err != nil {
		t.Fatalf("RedeemInvite: %v", err)
	}
	if accepted.Status != models.InviteStatusAccepted {
		t.Fatalf("expected accepted invite, got %q", accepted.Status)
	}

	userRepo := repository.NewUserRepository(pool)
	linked, err := userRepo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if linked.CoachID == nil || *linked.CoachID != coach.ID {
		t.Fatalf("expected athlete linked to coach %d, got %v", coach.ID, linked.CoachID)
	}

	if _, err := service.RedeemInvite(ctx, second.Principal(), invite.Token); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid on second redeem, got %v", err)
	}
}

func TestInviteServiceRejectsRedeemByDifferentAccount(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	inviteRepo := repository.NewInviteRepository(pool)
	service := NewInviteService(pool, inviteRepo, repository.NewUserRepository(pool))

	coach := createTestCoach(t, ctx, pool)
	invited := createTestAthlete(t, ctx, pool)
	interloper := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coach.ID, invited.ID, interloper.ID) })

	invite, err := service.CreateInvite(ctx, coach.Principal(), invited.Email)
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	if _, err := service.RedeemInvite(ctx, interloper.Principal(), invite.Token); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid for a different account's email, got %v", err)
	}

	untouched, err := inviteRepo.GetByToken(ctx, invite.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if untouched.Status != models.InviteStatusPending {
		t.Fatalf("expected invite still pending, got %q", untouched.Status)
	}

	stranger, err := repository.NewUserRepository(pool).GetByID(ctx, interloper.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stranger.CoachID != nil {
		t.Fatal("expected no coach link for the wrong account")
	}
}

func TestInviteServiceExpiredInviteFlipsOnRedeem(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	inviteRepo := repository.NewInviteRepository(pool)
	service := NewInviteService(pool, inviteRepo, repository.NewUserRepository(pool))

	coach := createTestCoach(t, ctx, pool)
	athlete := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, coach.ID, athlete.ID) })

	stale, err := inviteRepo.Create(ctx, coach.ID, athlete.Email, uuid.NewString(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := service.RedeemInvite(ctx, athlete.Principal(), stale.Token); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("expected ErrInviteInvalid for stale invite, got %v", err)
	}

	flipped, err := inviteRepo.GetByToken(ctx, stale.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if flipped.Status != models.InviteStatusExpired {
		t.Fatalf("expected expired status persisted, got %q", flipped.Status)
	}
}

func TestSubscriptionServiceCheckoutUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	userRepo := repository.NewUserRepository(pool)
	service := NewSubscriptionService(userRepo, nil, "", "")

	email := fmt.Sprintf("velolift-test-%s@example.com", uuid.NewString())
	session := &billing.CheckoutSession{ID: "cs_test", PaymentStatus: "paid", Customer: "cus_test"}
	session.CustomerDetails.Email = email

	// One-time purchase: no subscription ID, so no provider round-trip.
	if err := service.HandleCheckoutCompleted(ctx, session); err != nil {
		t.Fatalf("HandleCheckoutCompleted: %v", err)
	}
	if err := service.HandleCheckoutCompleted(ctx, session); err != nil {
		t.Fatalf("HandleCheckoutCompleted replay: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one user row after replayed checkout, got %d", count)
	}

	user, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, user.ID) })

	if !user.Subscribed {
		t.Fatal("expected subscribed user")
	}
	if user.SubscriptionType == nil || *user.SubscriptionType != models.SubscriptionLifetime {
		t.Fatalf("expected lifetime subscription, got %v", user.SubscriptionType)
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID != "cus_test" {
		t.Fatalf("expected stored customer id, got %v", user.StripeCustomerID)
	}
}

func TestSubscriptionServiceDeletedEventStampsEndDate(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	userRepo := repository.NewUserRepository(pool)
	service := NewSubscriptionService(userRepo, nil, "", "")

	email := fmt.Sprintf("velolift-test-%s@example.com", uuid.NewString())
	customerID := "cus_" + uuid.NewString()
	user, err := userRepo.UpsertSubscribed(ctx, email, models.SubscriptionMonthly, &customerID)
	if err != nil {
		t.Fatalf("UpsertSubscribed: %v", err)
	}
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, user.ID) })

	before := time.Now().Add(-time.Second)
	if err := service.HandleSubscriptionDeleted(ctx, &billing.Subscription{ID: "sub_1", Status: "canceled", Customer: customerID}); err != nil {
		t.Fatalf("HandleSubscriptionDeleted: %v", err)
	}

	revoked, err := userRepo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if revoked.Subscribed {
		t.Fatal("expected revoked subscription")
	}
	if revoked.SubscriptionEndDate == nil {
		t.Fatal("expected subscription_end_date stamped on revocation")
	}
	if revoked.SubscriptionEndDate.Before(before) {
		t.Fatalf("expected end date at the event time, got %v", revoked.SubscriptionEndDate)
	}
}

func TestSubscriptionServiceRedeemCoachCode(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	userRepo := repository.NewUserRepository(pool)
	service := NewSubscriptionService(userRepo, nil, "lift-access", "coach-access")

	user := createTestAthlete(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, user.ID) })

	if _, err := service.RedeemCode(ctx, user.ID, "wrong"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for bad code, got %v", err)
	}

	promoted, err := service.RedeemCode(ctx, user.ID, "coach-access")
	if err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}
	if !promoted.IsCoach {
		t.Fatal("expected coach flag after redeeming coach code")
	}
	if promoted.CoachID != nil {
		t.Fatal("a promoted coach must not keep a coach link")
	}
}
