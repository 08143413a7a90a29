package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

type syncer interface {
	Run(ctx context.Context) (*SyncResult, error)
}

// OfferService manages offers. With syncOnWrite set, every change re-runs the
// offer sync so variant prices follow immediately.
type OfferService interface {
	Create(ctx context.Context, input OfferInput) (*models.Offer, error)
	Update(ctx context.Context, id uuid.UUID, input OfferInput) (*models.Offer, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Offer, error)
	List(ctx context.Context) ([]models.Offer, error)
	Sync(ctx context.Context) (*SyncResult, error)
}

// OfferInput RefIDs are product ids or category ids, per Scope.
type OfferInput struct {
	Name       string
	Scope      enums.OfferScope
	RefIDs     []uuid.UUID
	Percentage int
	StartDate  time.Time
	EndDate    time.Time
}

const maxOfferItems = 200

type offerService struct {
	repo        OfferRepository
	sync        syncer
	syncOnWrite bool
	now         func() time.Time
}

func NewOfferService(repo OfferRepository, sync syncer, syncOnWrite bool) (OfferService, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if sync == nil {
		return nil, fmt.Errorf("offer sync required")
	}
	return &offerService{
		repo:        repo,
		sync:        sync,
		syncOnWrite: syncOnWrite,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *offerService) Create(ctx context.Context, input OfferInput) (*models.Offer, error) {
	if err := validateOffer(input); err != nil {
		return nil, err
	}
	offer := &models.Offer{
		Name:       strings.TrimSpace(input.Name),
		Scope:      input.Scope,
		Items:      models.NewOfferItems(input.RefIDs),
		Percentage: input.Percentage,
		StartDate:  input.StartDate.UTC(),
		EndDate:    input.EndDate.UTC(),
		IsActive:   !input.EndDate.Before(s.now()),
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create offer")
	}
	if err := s.afterWrite(ctx); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *offerService) Update(ctx context.Context, id uuid.UUID, input OfferInput) (*models.Offer, error) {
	if err := validateOffer(input); err != nil {
		return nil, err
	}
	if _, err := s.mustFind(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":       strings.TrimSpace(input.Name),
		"scope":      input.Scope,
		"percentage": input.Percentage,
		"start_date": input.StartDate.UTC(),
		"end_date":   input.EndDate.UTC(),
		"updated_at": s.now(),
	}
	if err := s.repo.UpdateWithItems(ctx, id, updates, models.NewOfferItems(input.RefIDs)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update offer")
	}
	if err := s.afterWrite(ctx); err != nil {
		return nil, err
	}
	return s.mustFind(ctx, id)
}

func (s *offerService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Offer, error) {
	offer, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if active && offer.EndDate.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot activate an ended offer")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": active, "updated_at": s.now()}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update offer")
	}
	if err := s.afterWrite(ctx); err != nil {
		return nil, err
	}
	return s.mustFind(ctx, id)
}

func (s *offerService) List(ctx context.Context) ([]models.Offer, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list offers")
	}
	return rows, nil
}

func (s *offerService) Sync(ctx context.Context) (*SyncResult, error) {
	return s.sync.Run(ctx)
}

func (s *offerService) afterWrite(ctx context.Context) error {
	if !s.syncOnWrite {
		return nil
	}
	_, err := s.sync.Run(ctx)
	return err
}

func (s *offerService) mustFind(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	offer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load offer")
	}
	if offer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	return offer, nil
}

func validateOffer(input OfferInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer name is required")
	}
	if !input.Scope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid offer scope %q", input.Scope))
	}
	if len(input.RefIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s offers need at least one item", input.Scope))
	}
	if len(input.RefIDs) > maxOfferItems {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("an offer covers at most %d items", maxOfferItems))
	}
	for _, ref := range input.RefIDs {
		if ref == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "offer items must be valid ids")
		}
	}
	if input.Percentage < 1 || input.Percentage > 99 {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be between 1 and 99")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() || !input.StartDate.Before(input.EndDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	return nil
}
