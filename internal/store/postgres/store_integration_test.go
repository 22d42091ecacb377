package postgres

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/store"
	"qms/clinic-queue/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerDSN  string
	containerErr  error
	containerOnce sync.Once
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestInsertTicketRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	first, err := st.InsertTicket(ctx, store.CreateTicketInput{Number: 1, Date: testDay})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, first.Status)
	assert.Equal(t, testDay, first.Date)

	_, err = st.InsertTicket(ctx, store.CreateTicketInput{Number: 1, Date: testDay})
	assert.ErrorIs(t, err, store.ErrDuplicateNumber)

	_, err = st.InsertTicket(ctx, store.CreateTicketInput{Number: 1, Date: testDay.AddDate(0, 0, 1)})
	require.NoError(t, err)

	maxNumber, err := st.MaxNumber(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, maxNumber)

	empty, err := st.MaxNumber(ctx, testDay.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestCallNextConcurrency(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)
	for number := 1; number <= 2; number++ {
		_, err := st.InsertTicket(ctx, store.CreateTicketInput{Number: number, Date: testDay})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make(chan models.Ticket, 3)
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, ok, err := st.CallNext(ctx, store.TransitionInput{Date: testDay, ActorID: "staff"})
			if err != nil {
				errs <- err
				return
			}
			if ok {
				results <- ticket
			}
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("call next error: %v", err)
	}
	seen := map[int]bool{}
	for ticket := range results {
		assert.Equal(t, models.StatusCalled, ticket.Status)
		assert.False(t, seen[ticket.Number], "ticket %d called twice", ticket.Number)
		seen[ticket.Number] = true
	}
	assert.Len(t, seen, 2)
}

func TestCompleteCurrentWaitsForConcurrentComplete(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)
	for number := 1; number <= 2; number++ {
		_, err := st.InsertTicket(ctx, store.CreateTicketInput{Number: number, Date: testDay})
		require.NoError(t, err)
	}
	_, ok, err := st.CallNext(ctx, store.TransitionInput{Date: testDay, OccurredAt: testDay.Add(9 * time.Hour)})
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := st.CallNext(ctx, store.TransitionInput{Date: testDay, OccurredAt: testDay.Add(10 * time.Hour)})
	require.NoError(t, err)
	require.True(t, ok)

	tx, err := st.pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	_, err = tx.Exec(ctx, `UPDATE tickets SET status = 'completed', completed_at = NOW() WHERE id = $1`, second.TicketID)
	require.NoError(t, err)

	type result struct {
		ticket models.Ticket
		ok     bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		ticket, ok, err := st.CompleteCurrent(ctx, store.TransitionInput{Date: testDay, ActorID: "staff-2"})
		done <- result{ticket: ticket, ok: ok, err: err}
	}()

	select {
	case res := <-done:
		t.Fatalf("complete did not wait for the locked ticket: %+v", res)
	case <-time.After(200 * time.Millisecond):
	}
	require.NoError(t, tx.Commit(ctx))

	res := <-done
	require.NoError(t, res.err)
	assert.False(t, res.ok, "completed %d instead of finding nothing", res.ticket.Number)

	current, ok, err := st.CurrentlyCalled(ctx, testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, current.Number)
}

func TestLifecycleAndCounts(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)
	for number := 1; number <= 3; number++ {
		_, err := st.InsertTicket(ctx, store.CreateTicketInput{Number: number, Date: testDay})
		require.NoError(t, err)
	}

	_, ok, err := st.CompleteCurrent(ctx, store.TransitionInput{Date: testDay})
	require.NoError(t, err)
	assert.False(t, ok)

	called, ok, err := st.CallNext(ctx, store.TransitionInput{Date: testDay, ActorID: "nurse", OccurredAt: testDay.Add(9 * time.Hour)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, called.Number)
	require.NotNil(t, called.CalledAt)

	current, ok, err := st.CurrentlyCalled(ctx, testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, called.TicketID, current.TicketID)

	completed, ok, err := st.CompleteCurrent(ctx, store.TransitionInput{Date: testDay, ActorID: "nurse", OccurredAt: testDay.Add(10 * time.Hour)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedBy)
	assert.Equal(t, "nurse", *completed.CompletedBy)

	waiting, err := st.ListWaiting(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, 2, waiting[0].Number)
	assert.Equal(t, 3, waiting[1].Number)

	done, err := st.ListCompleted(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, done, 1)

	counts, err := st.CountByDate(ctx, testDay, testDay.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, models.DayCount{Date: testDay, Waiting: 2, Completed: 1}, counts[0])
}

func TestStaffLoginAndSession(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	staff, err := st.CreateStaff(ctx, store.CreateStaffInput{Email: "Desk@Clinic.test", Name: "Front Desk", Password: "pa55"})
	require.NoError(t, err)
	assert.Equal(t, "desk@clinic.test", staff.Email)

	_, err = st.CreateStaff(ctx, store.CreateStaffInput{Email: "DESK@clinic.test", Password: "x"})
	assert.ErrorIs(t, err, store.ErrStaffExists)

	_, _, err = st.Login(ctx, "desk@clinic.test", "nope", time.Hour)
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	session, _, err := st.Login(ctx, "desk@clinic.test", "pa55", time.Hour)
	require.NoError(t, err)

	_, found, err := st.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, staff.StaffID, found.StaffID)

	_, _, err = st.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	_, _, err = st.GetSession(ctx, "not-a-session")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func setupTestStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()
	dsn := testDSN(t)

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := execAdmin(ctx, dsn, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		_ = execAdmin(context.Background(), dsn, "DROP SCHEMA "+schema+" CASCADE")
	})
	return NewStore(pool)
}

// testDSN prefers TEST_DB_DSN and falls back to a throwaway container when
// TEST_DB_CONTAINER is set.
func testDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("TEST_DB_CONTAINER") == "" {
		t.Skip("TEST_DB_DSN or TEST_DB_CONTAINER is required for integration tests")
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		var container *tcpostgres.PostgresContainer
		container, containerErr = tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
			tcpostgres.WithDatabase("clinic"),
			tcpostgres.WithUsername("clinic"),
			tcpostgres.WithPassword("clinic"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if containerErr != nil {
			return
		}
		containerDSN, containerErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("postgres container unavailable: %v", containerErr)
	}
	return containerDSN
}

func execAdmin(ctx context.Context, dsn, statement string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, statement)
	return err
}
