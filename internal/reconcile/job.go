// Package reconcile refreshes the price of persisted products from a live
// source without ever adding or removing rows.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pricescout/crawler/internal/crawl"
	"pricescout/crawler/internal/domain"
	"pricescout/crawler/internal/domain/task"
	"pricescout/crawler/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DetailPricer returns the raw price token of one product page.
type DetailPricer interface {
	DetailPrice(ctx context.Context, pid string) (string, error)
}

type ChangePublisher interface {
	AddTask(ctx context.Context, task task.Task) (string, error)
}

// Report summarizes one sweep. Errors holds leaf ids or product ids.
type Report struct {
	RunID     string
	Channel   string
	Checked   int
	Updated   int
	Changed   int
	Unmatched int
	Errors    []string
	Cancelled bool
}

type Job struct {
	store     repository.ProductStore
	publisher ChangePublisher
}

// NewJob builds a job; publisher may be nil.
func NewJob(store repository.ProductStore, publisher ChangePublisher) *Job {
	return &Job{store: store, publisher: publisher}
}

// sweep holds the state of one reconciliation pass.
type sweep struct {
	report  *Report
	rows    map[string]domain.PersistedProduct
	order   []string
	updates map[string]domain.PriceUpdate
}

func (j *Job) begin(ctx context.Context, channel string) (*sweep, []domain.PersistedProduct, error) {
	rows, err := j.store.ListByChannel(ctx, channel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}

	s := &sweep{
		report: &Report{
			RunID:   uuid.NewString(),
			Channel: channel,
			Errors:  make([]string, 0),
		},
		rows:    make(map[string]domain.PersistedProduct, len(rows)),
		updates: make(map[string]domain.PriceUpdate),
	}
	for _, row := range rows {
		s.rows[row.PID] = row
	}

	log.Infof("🔄 Reconciling %d %s products (run %s)", len(rows), channel, s.report.RunID)
	return s, rows, nil
}

// stage queues the new price of row. Rows without a usable spec are reported
// and left untouched.
func (s *sweep) stage(row domain.PersistedProduct, price int64) {
	if row.Spec <= 0 {
		s.report.Errors = append(s.report.Errors, row.PID)
		log.Warnf("⚠️ Product %s has no usable spec (%v)", row.PID, row.Spec)
		return
	}

	if _, queued := s.updates[row.PID]; !queued {
		s.order = append(s.order, row.PID)
	}
	s.updates[row.PID] = domain.PriceUpdate{
		PID:       row.PID,
		Channel:   row.Channel,
		OldPrice:  row.Price,
		Price:     price,
		PriceUnit: domain.PriceUnit(price, row.Spec),
	}
}

// ReconcileListing sweeps every leaf of src and matches listed items to
// persisted rows of the same channel by pid.
func (j *Job) ReconcileListing(ctx context.Context, src crawl.Source) (*Report, error) {
	s, _, err := j.begin(ctx, src.Channel())
	if err != nil {
		return nil, err
	}

	return j.finish(ctx, s, j.sweepListing(ctx, src, s))
}

func (j *Job) sweepListing(ctx context.Context, src crawl.Source, s *sweep) error {
	if err := src.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	tree, err := src.CategoryTree(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	for _, leaf := range tree.Leaves() {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, err := crawl.FetchLeaf(ctx, src, leaf)
		if err != nil {
			if isCancellation(ctx, err) || domain.IsFatal(err) {
				return err
			}
			s.report.Errors = append(s.report.Errors, leaf.Level3.ID)
			log.Errorf("❌ Failed to fetch leaf %s: %v", leaf.Level3.ID, err)
			continue
		}

		for _, item := range items {
			s.report.Checked++
			row, ok := s.rows[item.ID]
			if !ok {
				s.report.Unmatched++
				continue
			}
			s.stage(row, item.Price)
		}
	}
	return nil
}

// ReconcileDetails fetches the product page of every persisted row of channel.
func (j *Job) ReconcileDetails(ctx context.Context, pricer DetailPricer, channel string) (*Report, error) {
	s, rows, err := j.begin(ctx, channel)
	if err != nil {
		return nil, err
	}

	return j.finish(ctx, s, j.sweepDetails(ctx, pricer, rows, s))
}

func (j *Job) sweepDetails(ctx context.Context, pricer DetailPricer, rows []domain.PersistedProduct, s *sweep) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		token, err := pricer.DetailPrice(ctx, row.PID)
		if err != nil {
			if isCancellation(ctx, err) || domain.IsFatal(err) {
				return err
			}
			s.report.Errors = append(s.report.Errors, row.PID)
			log.Debugf("Failed to fetch price of %s: %v", row.PID, err)
			continue
		}
		s.report.Checked++

		price, ok := parseToken(token)
		if !ok {
			s.report.Errors = append(s.report.Errors, row.PID)
			log.Debugf("Invalid price token %q for %s", token, row.PID)
			continue
		}
		s.stage(row, price)
	}
	return nil
}

// finish commits the staged updates once. A cancelled sweep still commits what
// it staged; a failed one commits nothing.
func (j *Job) finish(ctx context.Context, s *sweep, sweepErr error) (*Report, error) {
	if sweepErr != nil {
		if !isCancellation(ctx, sweepErr) {
			log.Errorf("❌ Reconciliation of %s aborted: %v", s.report.Channel, sweepErr)
			return s.report, sweepErr
		}
		s.report.Cancelled = true
		log.Warnf("🛑 Reconciliation of %s cancelled, committing %d staged updates", s.report.Channel, len(s.order))
	}

	updates := make([]domain.PriceUpdate, 0, len(s.order))
	for _, pid := range s.order {
		updates = append(updates, s.updates[pid])
	}

	commitCtx := context.WithoutCancel(ctx)
	if err := j.store.ApplyPriceUpdates(commitCtx, updates); err != nil {
		return s.report, fmt.Errorf("failed to commit price updates: %w", err)
	}
	s.report.Updated = len(updates)

	for _, u := range updates {
		if u.Price == u.OldPrice {
			continue
		}
		s.report.Changed++
		j.publish(commitCtx, s.report.RunID, u)
	}

	log.Infof("✅ Reconciled %s: %d checked, %d updated, %d changed, %d unmatched, %d errors",
		s.report.Channel, s.report.Checked, s.report.Updated, s.report.Changed, s.report.Unmatched, len(s.report.Errors))
	return s.report, nil
}

func (j *Job) publish(ctx context.Context, runID string, u domain.PriceUpdate) {
	if j.publisher == nil {
		return
	}

	_, err := j.publisher.AddTask(ctx, &task.PriceChangeTask{
		RunID:     runID,
		PID:       u.PID,
		Channel:   u.Channel,
		OldPrice:  u.OldPrice,
		NewPrice:  u.Price,
		PriceUnit: u.PriceUnit,
	})
	if err != nil {
		log.Warnf("⚠️ Failed to publish price change of %s: %v", u.PID, err)
	}
}

// parseToken accepts only a non-empty string of ASCII digits.
func parseToken(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return 0, false
		}
	}

	price, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
