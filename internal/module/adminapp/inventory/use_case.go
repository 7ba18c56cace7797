package inventory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
)

type InventoryUseCase interface {
	CreateInventoryLine(ctx context.Context, req CreateInventoryLineRequest) (inventory.InventoryLineResponse, error)
	DeleteInventoryLine(ctx context.Context, ID string) error
}

type inventoryUseCase struct {
	logger                  *logrus.Logger
	location                *time.Location
	timeout                 time.Duration
	purchasableRegistry     purchasable.Registry
	inventoryLineRepository InventoryLineRepository
}

type InventoryUseCaseProperty struct {
	Logger                  *logrus.Logger
	Location                *time.Location
	Timeout                 time.Duration
	PurchasableRegistry     purchasable.Registry
	InventoryLineRepository InventoryLineRepository
}

func NewInventoryUseCase(props InventoryUseCaseProperty) InventoryUseCase {
	return &inventoryUseCase{
		logger:                  props.Logger,
		location:                props.Location,
		timeout:                 props.Timeout,
		purchasableRegistry:     props.PurchasableRegistry,
		inventoryLineRepository: props.InventoryLineRepository,
	}
}

// CreateInventoryLine implements InventoryUseCase.
func (u *inventoryUseCase) CreateInventoryLine(ctx context.Context, req CreateInventoryLineRequest) (inventory.InventoryLineResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if _, err := u.purchasableRegistry.Resolve(ctx, req.Purchasable, nil); err != nil {
		return inventory.InventoryLineResponse{}, err
	}

	now := time.Now()
	l, err := req.ToEntity(u.location, now)
	if err != nil {
		return inventory.InventoryLineResponse{}, err
	}

	if err := u.inventoryLineRepository.Save(ctx, l, nil); err != nil {
		return inventory.InventoryLineResponse{}, err
	}

	u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"inventory_line_id": l.ID,
		"purchasable_kind":  l.PurchasableKind,
		"purchasable_id":    l.PurchasableID,
	}).Info("inventory line created")

	resp := inventory.InventoryLineResponse{}
	resp.PopulateFromEntity(l, now)

	return resp, nil
}

// DeleteInventoryLine implements InventoryUseCase.
func (u *inventoryUseCase) DeleteInventoryLine(ctx context.Context, ID string) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	return u.inventoryLineRepository.SoftDelete(ctx, ID, time.Now(), nil)
}
