package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrMissingRequestID  = errors.New("inventory: request id is required")
	ErrMissingItemID     = errors.New("inventory: item id is required")
	ErrInvalidKey        = errors.New("inventory: key must look like WAREHOUSE:ITEM")
)

const keySeparator = ":"

// Key identifies one inventory counter.
type Key struct {
	WarehouseID string
	ItemID      string
}

func NewKey(warehouseID, itemID string) Key {
	return Key{WarehouseID: warehouseID, ItemID: itemID}
}

func (k Key) String() string {
	return k.WarehouseID + keySeparator + k.ItemID
}

// ParseKey reads the WAREHOUSE:ITEM form produced by Key.String.
func ParseKey(s string) (Key, error) {
	wh, item, ok := strings.Cut(strings.TrimSpace(s), keySeparator)
	if !ok || wh == "" || item == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return NewKey(wh, item), nil
}

// Item is the stock held for one key.
type Item struct {
	Key       Key
	Quantity  int
	UpdatedAt time.Time
}

func NewItem(key Key, quantity int) (*Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		Key:       key,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (i *Item) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.Quantity {
		return ErrInsufficientStock
	}
	i.Quantity -= quantity
	i.touch()
	return nil
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}

// DeductionRequest asks for Quantity units of ItemID. An empty WarehouseID means
// the caller left the choice of warehouse to the pipeline.
type DeductionRequest struct {
	RequestID   string
	ItemID      string
	WarehouseID string
	Quantity    int
}

// NewDeductionRequest validates caller input. Invalid input is a caller error and
// never reaches the pipeline as a DeductionResult.
func NewDeductionRequest(requestID, itemID, warehouseID string, quantity int) (DeductionRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return DeductionRequest{}, ErrMissingRequestID
	}
	if strings.TrimSpace(itemID) == "" {
		return DeductionRequest{}, ErrMissingItemID
	}
	if quantity <= 0 {
		return DeductionRequest{}, ErrInvalidQuantity
	}
	return DeductionRequest{
		RequestID:   requestID,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
	}, nil
}

func (r DeductionRequest) Key() Key {
	return NewKey(r.WarehouseID, r.ItemID)
}

// WithWarehouse returns a copy of r targeting warehouseID.
func (r DeductionRequest) WithWarehouse(warehouseID string) DeductionRequest {
	r.WarehouseID = warehouseID
	return r
}

// DeductionResult is the outcome of a deduction. Message is meant for humans.
type DeductionResult struct {
	Succeeded bool
	Message   string
}

func Succeeded(format string, args ...any) DeductionResult {
	return DeductionResult{Succeeded: true, Message: fmt.Sprintf(format, args...)}
}

func Failed(format string, args ...any) DeductionResult {
	return DeductionResult{Succeeded: false, Message: fmt.Sprintf(format, args...)}
}
