package inventory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
)

type InventoryUseCase interface {
	GetAvailableLines(ctx context.Context, ref purchasable.Reference) ([]InventoryLineResponse, error)
}

type inventoryUseCase struct {
	logger                  *logrus.Logger
	timeout                 time.Duration
	purchasableRegistry     purchasable.Registry
	inventoryLineRepository InventoryLineRepository
}

type InventoryUseCaseProperty struct {
	Logger                  *logrus.Logger
	Timeout                 time.Duration
	PurchasableRegistry     purchasable.Registry
	InventoryLineRepository InventoryLineRepository
}

func NewInventoryUseCase(props InventoryUseCaseProperty) InventoryUseCase {
	return &inventoryUseCase{
		logger:                  props.Logger,
		timeout:                 props.Timeout,
		purchasableRegistry:     props.PurchasableRegistry,
		inventoryLineRepository: props.InventoryLineRepository,
	}
}

// GetAvailableLines implements InventoryUseCase.
func (u *inventoryUseCase) GetAvailableLines(ctx context.Context, ref purchasable.Reference) ([]InventoryLineResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if _, err := u.purchasableRegistry.Resolve(ctx, ref, nil); err != nil {
		return nil, err
	}

	lines, err := u.inventoryLineRepository.FindAvailableByPurchasable(ctx, ref, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := make([]InventoryLineResponse, len(lines))
	for k, l := range lines {
		resp[k].PopulateFromEntity(l, now)
	}

	return resp, nil
}
