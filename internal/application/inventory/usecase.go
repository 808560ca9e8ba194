package inventory

import (
	"context"
	"fmt"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

// DeductCommand is caller input before validation.
type DeductCommand struct {
	RequestID   string
	ItemID      string
	WarehouseID string
	Quantity    int
}

// CommandFromEvent converts an asynchronous deduction request.
func CommandFromEvent(e dominv.DeductionRequestedEvent) DeductCommand {
	return DeductCommand{
		RequestID:   e.RequestID,
		ItemID:      e.ItemID,
		WarehouseID: e.WarehouseID,
		Quantity:    e.Quantity,
	}
}

// DeductUseCase is the boundary where requests are assembled: malformed input
// comes back as an error, everything else as a DeductionResult.
type DeductUseCase struct {
	pipeline dominv.Deductor
}

func NewDeductUseCase(pipeline dominv.Deductor) *DeductUseCase {
	return &DeductUseCase{pipeline: pipeline}
}

func (uc *DeductUseCase) Execute(ctx context.Context, cmd DeductCommand) (*dominv.DeductionResult, error) {
	req, err := dominv.NewDeductionRequest(cmd.RequestID, cmd.ItemID, cmd.WarehouseID, cmd.Quantity)
	if err != nil {
		return nil, fmt.Errorf("inventory: deduct: %w", err)
	}
	res := uc.pipeline.Deduct(ctx, req)
	return &res, nil
}
