package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
	"github.com/plateiq/restaurant-backend/pkg/metrics"
	"github.com/plateiq/restaurant-backend/pkg/pagination"
)

// ListResult is one page of the alert feed. NextCursor is empty on the last
// page.
type ListResult struct {
	Alerts     []models.InventoryAlert `json:"alerts"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// Service evaluates item state into alerts and manages the alert feed.
type Service interface {
	Evaluate(ctx context.Context, item *models.InventoryItem) (*models.InventoryAlert, error)
	EvaluateAll(ctx context.Context, items []*models.InventoryItem) ([]models.InventoryAlert, error)
	List(ctx context.Context, restaurantID uuid.UUID, filter ListFilter) (*ListResult, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, restaurantID uuid.UUID) (int64, error)
}

type service struct {
	repo    Repository
	metrics *metrics.InventoryMetrics
}

// NewService wires an alert service.
func NewService(repo Repository, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alert repository required")
	}
	return &service{repo: repo, metrics: m}, nil
}

// Evaluate classifies the item and, when a condition holds, appends an alert
// row. Alerts are derived artifacts: evaluation after every committed change
// intentionally produces a new row each time the condition still holds.
func (s *service) Evaluate(ctx context.Context, item *models.InventoryItem) (*models.InventoryAlert, error) {
	classification := Classify(item)
	if classification == nil {
		return nil, nil
	}

	alert := &models.InventoryAlert{
		ItemID:       item.ID,
		RestaurantID: item.RestaurantID,
		Type:         classification.Type,
		Severity:     classification.Severity,
		Message:      classification.Message,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
	}
	s.metrics.IncAlert(string(alert.Type))
	return alert, nil
}

// EvaluateAll evaluates a batch of items, collecting whatever alerts fire.
// A failed evaluation does not stop the rest of the batch; errors are
// combined and reported together.
func (s *service) EvaluateAll(ctx context.Context, items []*models.InventoryItem) ([]models.InventoryAlert, error) {
	var fired []models.InventoryAlert
	var errs error
	for _, item := range items {
		alert, err := s.Evaluate(ctx, item)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if alert != nil {
			fired = append(fired, *alert)
		}
	}
	return fired, errs
}

func (s *service) List(ctx context.Context, restaurantID uuid.UUID, filter ListFilter) (*ListResult, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}

	pageSize := pagination.NormalizeLimit(filter.Limit)
	filter.Limit = pageSize + 1
	alerts, err := s.repo.ListByRestaurant(ctx, restaurantID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list alerts")
	}

	result := &ListResult{Alerts: alerts}
	if len(alerts) > pageSize {
		result.Alerts = alerts[:pageSize]
		last := result.Alerts[pageSize-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert id required")
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alert read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, restaurantID uuid.UUID) (int64, error) {
	if restaurantID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	count, err := s.repo.MarkAllRead(ctx, restaurantID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alerts read")
	}
	return count, nil
}
