package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pricescout/crawler/internal/domain"
	"pricescout/crawler/internal/domain/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows     []domain.PersistedProduct
	applied  [][]domain.PriceUpdate
	applyErr error
}

func (s *fakeStore) ListByChannel(ctx context.Context, channel string) ([]domain.PersistedProduct, error) {
	var out []domain.PersistedProduct
	for _, r := range s.rows {
		if r.Channel == channel {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) ApplyPriceUpdates(ctx context.Context, updates []domain.PriceUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = append(s.applied, updates)
	return nil
}

func (s *fakeStore) Migrate(ctx context.Context) error { return nil }

func (s *fakeStore) Close() error { return nil }

type fakeSource struct {
	channel  string
	tree     *domain.CategoryTree
	listings map[string][]domain.CatalogItem
	failures map[string]error
	onFetch  func(key string)
}

func (s *fakeSource) Channel() string { return s.channel }

func (s *fakeSource) Authenticate(ctx context.Context) error { return nil }

func (s *fakeSource) LeafKey(path domain.CategoryPath) string {
	return path.Level3.ID
}

func (s *fakeSource) CategoryTree(ctx context.Context) (*domain.CategoryTree, error) {
	return s.tree, nil
}

func (s *fakeSource) FetchPage(ctx context.Context, key string, offset int) (*domain.ListingPage, error) {
	if s.onFetch != nil {
		s.onFetch(key)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}
	if err, ok := s.failures[key]; ok {
		return nil, err
	}
	items := s.listings[key]
	return &domain.ListingPage{Items: items, Total: len(items)}, nil
}

type fakePricer struct {
	tokens map[string]string
	onCall func(pid string)
}

func (p *fakePricer) DetailPrice(ctx context.Context, pid string) (string, error) {
	if p.onCall != nil {
		p.onCall(pid)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("request cancelled: %w", err)
	}
	token, ok := p.tokens[pid]
	if !ok {
		return "", fmt.Errorf("%w: status 404", domain.ErrNetwork)
	}
	return token, nil
}

type fakePublisher struct {
	tasks []*task.PriceChangeTask
	err   error
}

func (p *fakePublisher) AddTask(ctx context.Context, t task.Task) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.tasks = append(p.tasks, t.(*task.PriceChangeTask))
	return "1-0", nil
}

func leafTree(ids ...string) *domain.CategoryTree {
	l2 := &domain.CategoryNode{ID: "20", Name: "L2", Level: 2}
	for _, id := range ids {
		l2.Children = append(l2.Children, &domain.CategoryNode{ID: id, Name: "L3 " + id, Level: 3})
	}
	return &domain.CategoryTree{Roots: []*domain.CategoryNode{
		{ID: "10", Name: "L1", Level: 1, Children: []*domain.CategoryNode{l2}},
	}}
}

func TestReconcileListing_UpdatesMatchedRowsOnly(t *testing.T) {
	store := &fakeStore{rows: []domain.PersistedProduct{
		{PID: "7", Price: 100, Spec: 2.0, PriceUnit: 50, Channel: "全聯"},
		{PID: "8", Price: 30, Spec: 1.0, PriceUnit: 30, Channel: "全聯"},
		{PID: "999", Price: 1, Spec: 1.0, Channel: "家樂福"},
	}}
	src := &fakeSource{
		channel: "全聯",
		tree:    leafTree("a"),
		listings: map[string][]domain.CatalogItem{
			"a": {{ID: "7", Price: 150}, {ID: "999", Price: 5}},
		},
	}
	pub := &fakePublisher{}

	report, err := NewJob(store, pub).ReconcileListing(context.Background(), src)

	require.NoError(t, err)
	require.Len(t, store.applied, 1)
	assert.Equal(t, []domain.PriceUpdate{
		{PID: "7", Channel: "全聯", OldPrice: 100, Price: 150, PriceUnit: 75.0},
	}, store.applied[0])
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Unmatched)
	assert.Empty(t, report.Errors)

	require.Len(t, pub.tasks, 1)
	assert.Equal(t, report.RunID, pub.tasks[0].RunID)
	assert.Equal(t, int64(150), pub.tasks[0].NewPrice)
}

func TestReconcileListing_LeafFailureRecorded(t *testing.T) {
	store := &fakeStore{rows: []domain.PersistedProduct{
		{PID: "7", Price: 100, Spec: 2.0, Channel: "全聯"},
	}}
	src := &fakeSource{
		channel:  "全聯",
		tree:     leafTree("a", "b"),
		listings: map[string][]domain.CatalogItem{"b": {{ID: "7", Price: 100}}},
		failures: map[string]error{"a": fmt.Errorf("%w: status 500", domain.ErrNetwork)},
	}
	pub := &fakePublisher{}

	report, err := NewJob(store, pub).ReconcileListing(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Errors)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Changed)
	assert.Empty(t, pub.tasks)
}

func TestReconcileListing_FatalErrorCommitsNothing(t *testing.T) {
	store := &fakeStore{rows: []domain.PersistedProduct{
		{PID: "7", Price: 100, Spec: 2.0, Channel: "全聯"},
	}}
	src := &fakeSource{
		channel:  "全聯",
		tree:     leafTree("a", "b"),
		listings: map[string][]domain.CatalogItem{"a": {{ID: "7", Price: 150}}},
		failures: map[string]error{"b": fmt.Errorf("%w: token expired", domain.ErrProtocol)},
	}

	_, err := NewJob(store, nil).ReconcileListing(context.Background(), src)

	assert.ErrorIs(t, err, domain.ErrProtocol)
	assert.Empty(t, store.applied)
}

func TestReconcileListing_CancellationCommitsStaged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{rows: []domain.PersistedProduct{
		{PID: "7", Price: 100, Spec: 2.0, Channel: "全聯"},
		{PID: "8", Price: 10, Spec: 1.0, Channel: "全聯"},
	}}
	src := &fakeSource{
		channel: "全聯",
		tree:    leafTree("a", "b"),
		listings: map[string][]domain.CatalogItem{
			"a": {{ID: "7", Price: 150}},
			"b": {{ID: "8", Price: 12}},
		},
		onFetch: func(key string) {
			if key == "b" {
				cancel()
			}
		},
	}

	report, err := NewJob(store, nil).ReconcileListing(ctx, src)

	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	require.Len(t, store.applied, 1)
	require.Len(t, store.applied[0], 1)
	assert.Equal(t, "7", store.applied[0][0].PID)
}

func TestReconcileDetails(t *testing.T) {
	store := &fakeStore{rows: []domain.PersistedProduct{
		{PID: "7", Price: 100, Spec: 2.0, Channel: "家樂福"},
		{PID: "8", Price: 100, Spec: 1.0, Channel: "家樂福"},
		{PID: "9", Price: 100, Spec: 1.0, Channel: "家樂福"},
		{PID: "10", Price: 100, Spec: 1.0, Channel: "家樂福"},
		{PID: "11", Price: 40, Spec: 0, Channel: "家樂福"},
		{PID: "12", Price: 100, Spec: 4.0, Channel: "全聯"},
	}}
	pricer := &fakePricer{tokens: map[string]string{
		"7":  "150",
		"8":  "1,299",
		"9":  "",
		"11": "45",
		"12": "1",
	}}
	pub := &fakePublisher{err: errors.New("redis down")}

	report, err := NewJob(store, pub).ReconcileDetails(context.Background(), pricer, "家樂福")

	require.NoError(t, err)
	assert.Equal(t, []string{"8", "9", "10", "11"}, report.Errors)
	require.Len(t, store.applied, 1)
	assert.Equal(t, []domain.PriceUpdate{
		{PID: "7", Channel: "家樂福", OldPrice: 100, Price: 150, PriceUnit: 75.0},
	}, store.applied[0])
	assert.Equal(t, 1, report.Changed)
}

func TestReconcileDetails_CancellationCommitsStaged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{rows: []domain.PersistedProduct{
		{PID: "7", Price: 100, Spec: 2.0, Channel: "家樂福"},
		{PID: "8", Price: 100, Spec: 1.0, Channel: "家樂福"},
	}}
	pricer := &fakePricer{
		tokens: map[string]string{"7": "150", "8": "120"},
		onCall: func(pid string) {
			if pid == "8" {
				cancel()
			}
		},
	}

	report, err := NewJob(store, nil).ReconcileDetails(ctx, pricer, "家樂福")

	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Errors)
	require.Len(t, store.applied, 1)
	assert.Equal(t, "7", store.applied[0][0].PID)
}

func TestReconcileDetails_CommitFailure(t *testing.T) {
	store := &fakeStore{
		rows:     []domain.PersistedProduct{{PID: "7", Price: 100, Spec: 2.0, Channel: "家樂福"}},
		applyErr: errors.New("database is locked"),
	}
	pricer := &fakePricer{tokens: map[string]string{"7": "150"}}

	_, err := NewJob(store, nil).ReconcileDetails(context.Background(), pricer, "家樂福")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		token string
		price int64
		ok    bool
	}{
		{"0", 0, true},
		{"1299", 1299, true},
		{"1,299", 0, false},
		{"", 0, false},
		{"-5", 0, false},
		{"12.5", 0, false},
		{"１２", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			price, ok := parseToken(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.price, price)
		})
	}
}
