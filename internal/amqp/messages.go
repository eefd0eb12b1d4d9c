package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrMissingOrderID = errors.New("message has no order id")

// OrderProcessMessage asks the worker to process an order. It carries only the
// id; the worker loads the order from the store.
type OrderProcessMessage struct {
	OrderID   string    `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderProcessMessage creates a process message stamped with the current time
func NewOrderProcessMessage(orderID string) *OrderProcessMessage {
	return &OrderProcessMessage{
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *OrderProcessMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OrderProcessMessageFromJSON decodes a message, rejecting one without an order id
func OrderProcessMessageFromJSON(data []byte) (*OrderProcessMessage, error) {
	var msg OrderProcessMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	return &msg, nil
}
