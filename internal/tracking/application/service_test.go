package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/vigil/internal/tracking/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEntryRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]domain.TimeEntry
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: make(map[uuid.UUID]domain.TimeEntry)}
}

func (r *memEntryRepo) Save(ctx context.Context, entry *domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = *entry
	return nil
}

func (r *memEntryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrTimeEntryNotFound
	}
	return &e, nil
}

func (r *memEntryRepo) ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TimeEntry
	for _, e := range r.entries {
		if e.IsRunning() {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

type published struct {
	routingKey string
	body       []byte
}

type recordingPublisher struct {
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{routingKey: routingKey, body: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func decodePayload(t *testing.T, msg published) domain.TimeEntryEvent {
	t.Helper()
	env, err := eventbus.Decode(msg.routingKey, msg.body)
	require.NoError(t, err)
	var evt domain.TimeEntryEvent
	require.NoError(t, json.Unmarshal(env.Payload, &evt))
	return evt
}

func TestService_StartAndStop(t *testing.T) {
	repo := newMemEntryRepo()
	pub := &recordingPublisher{}
	svc := NewService(repo, pub, nil)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	userID, companyID := uuid.New(), uuid.New()
	entry, err := svc.Start(ctx, userID, companyID)
	require.NoError(t, err)
	assert.True(t, entry.IsRunning())

	running, err := svc.ListRunning(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, running, 1)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, domain.RoutingKeyTimeEntryStarted, pub.msgs[0].routingKey)
	evt := decodePayload(t, pub.msgs[0])
	assert.Equal(t, entry.ID, evt.TimeEntryID)
	assert.Equal(t, userID, evt.UserID)
	assert.Equal(t, companyID, evt.CompanyID)
	assert.True(t, fixed.Equal(evt.OccurredAt))

	stopped, err := svc.Stop(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsRunning())
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, domain.RoutingKeyTimeEntryStopped, pub.msgs[1].routingKey)

	_, err = svc.Stop(ctx, entry.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyStopped)

	_, err = svc.Stop(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTimeEntryNotFound)
}

func TestService_PublishFailureKeepsEntry(t *testing.T) {
	repo := newMemEntryRepo()
	boom := errors.New("broker down")
	svc := NewService(repo, &recordingPublisher{err: boom}, nil)

	entry, err := svc.Start(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, boom)
	require.NotNil(t, entry)

	saved, err := repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.True(t, saved.IsRunning())
}
