package domain

// POStatus is the lifecycle state of a purchase order.
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusSubmitted POStatus = "SUBMITTED"
	POStatusConfirmed POStatus = "CONFIRMED"
	POStatusInTransit POStatus = "IN_TRANSIT"
	POStatusDelivered POStatus = "DELIVERED"
	POStatusCancelled POStatus = "CANCELLED"
)

// InTransitStatuses are the order states whose undelivered quantities count as
// incoming stock.
var InTransitStatuses = []POStatus{POStatusSubmitted, POStatusConfirmed, POStatusInTransit}

// ActionCategory is the four-way classification driving the planner workflow.
type ActionCategory string

const (
	ActionOrderToday        ActionCategory = "ORDER_TODAY"
	ActionAlreadyOrdered    ActionCategory = "ALREADY_ORDERED"
	ActionAttentionRequired ActionCategory = "ATTENTION_REQUIRED"
	ActionNormal            ActionCategory = "NORMAL"
)

// ConfidenceLevel is a coarse label for forecast reliability, driven by the amount
// of history behind the forecast.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)
