package inventory

import "time"

// DeductionRequestedEvent asks a worker to run a deduction asynchronously.
type DeductionRequestedEvent struct {
	RequestID   string
	ItemID      string
	WarehouseID string
	Quantity    int
	OccurredAt  time.Time
}

func (DeductionRequestedEvent) EventName() string { return "inventory.deduction_requested" }

func NewDeductionRequestedEvent(requestID, itemID, warehouseID string, quantity int) DeductionRequestedEvent {
	return DeductionRequestedEvent{
		RequestID:   requestID,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		OccurredAt:  time.Now().UTC(),
	}
}

// DeductionAudit carries the fields recorded for every audited deduction.
type DeductionAudit struct {
	AuditID     string
	RequestID   string
	ItemID      string
	WarehouseID string
	Quantity    int
	Message     string
	Elapsed     time.Duration
	OccurredAt  time.Time
}

// DeductedEvent is emitted when a deduction reports success.
type DeductedEvent struct {
	DeductionAudit
}

func (DeductedEvent) EventName() string { return "inventory.deducted" }

// DeductionFailedEvent is emitted when a deduction reports failure.
type DeductionFailedEvent struct {
	DeductionAudit
}

func (DeductionFailedEvent) EventName() string { return "inventory.deduction_failed" }

func NewDeductionAudit(auditID string, req DeductionRequest, res DeductionResult, elapsed time.Duration) DeductionAudit {
	return DeductionAudit{
		AuditID:     auditID,
		RequestID:   req.RequestID,
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		Message:     res.Message,
		Elapsed:     elapsed,
		OccurredAt:  time.Now().UTC(),
	}
}
