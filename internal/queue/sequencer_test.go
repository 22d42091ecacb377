package queue

import (
	"context"
	"errors"
	"testing"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"
	"qms/clinic-queue/internal/store"
	"qms/clinic-queue/internal/store/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueNumbersSequentially(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for want := 1; want <= 5; want++ {
		ticket, err := f.svc.Issue(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, want, ticket.Number)
		assert.Equal(t, models.StatusWaiting, ticket.Status)
		assert.Nil(t, ticket.CalledAt)
		assert.Nil(t, ticket.CompletedAt)
		assert.Nil(t, ticket.CalledBy)
		assert.Nil(t, ticket.CompletedBy)
	}
	assert.Len(t, f.notifier.types(), 5)
	assert.Equal(t, notify.EventTicketIssued, f.notifier.types()[0])
}

func TestIssueNumbersPerDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.Issue(ctx, today)
	require.NoError(t, err)
	second, err := f.svc.Issue(ctx, today)
	require.NoError(t, err)
	tomorrow, err := f.svc.Issue(ctx, today.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 1, tomorrow.Number)
}

func TestIssueRetriesOnceOnDuplicate(t *testing.T) {
	mem := memory.NewStore()
	dup := &duplicateStore{TicketStore: mem, failures: 1}
	f := newFixtureWithStore(t, dup, mem)

	ticket, err := f.svc.Issue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Number)
	assert.Equal(t, 2, dup.inserts)

	var warned bool
	for _, entry := range f.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestIssueSecondDuplicateIsStorageError(t *testing.T) {
	mem := memory.NewStore()
	dup := &duplicateStore{TicketStore: mem, failures: 2}
	f := newFixtureWithStore(t, dup, mem)

	_, err := f.svc.Issue(context.Background(), today)
	require.Error(t, err)
	var storageErr *store.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "issue", storageErr.Op)
	assert.ErrorIs(t, err, store.ErrDuplicateNumber)
	assert.Equal(t, 2, dup.inserts)
	assert.Empty(t, f.notifier.types())
}

func TestIssueStorageFailure(t *testing.T) {
	f := newFixtureWithStore(t, brokenStore{}, nil)

	_, err := f.svc.Issue(context.Background(), today)
	var storageErr *store.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.ErrorIs(t, err, errBackend)
}

func TestIssueSucceedsWhenNotifyFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("redis down")

	ticket, err := f.svc.Issue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Number)
}
