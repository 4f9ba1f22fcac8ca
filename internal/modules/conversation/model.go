// README: Per-user conversation state: state tag, draft order and pending modification.
package conversation

import "github.com/yen1506/linebot-coffee/internal/modules/order"

type State int

const (
	StateInit State = iota
	StateOrdering
	StateWaitingPayment
	StateWaitingDeleteID
	StateWaitingModifyID
	StateModifying
	StateQueryingOrderID
	StateConfirmReorder
)

// States lists every state; handlers are checked against it.
var States = []State{
	StateInit,
	StateOrdering,
	StateWaitingPayment,
	StateWaitingDeleteID,
	StateWaitingModifyID,
	StateModifying,
	StateQueryingOrderID,
	StateConfirmReorder,
}

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOrdering:
		return "ordering"
	case StateWaitingPayment:
		return "waiting_payment"
	case StateWaitingDeleteID:
		return "waiting_delete_id"
	case StateWaitingModifyID:
		return "waiting_modify_id"
	case StateModifying:
		return "modifying"
	case StateQueryingOrderID:
		return "querying_order_id"
	case StateConfirmReorder:
		return "confirm_reorder"
	}
	return "unknown"
}

// MidFlow reports whether the state must be resolved before commands other
// than "start order" are recognized.
func (s State) MidFlow() bool {
	switch s {
	case StateWaitingPayment, StateWaitingDeleteID, StateWaitingModifyID, StateModifying, StateQueryingOrderID:
		return true
	}
	return false
}

// PendingModify snapshots the row chosen for modification.
type PendingModify struct {
	OrderID  string
	Position int
	Original order.Order
	Retried  bool
}

type Session struct {
	State  State
	Draft  *order.Draft
	Modify *PendingModify
}
