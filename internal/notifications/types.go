package notifications

import "time"

// NotificationType categorises an outbound message.
type NotificationType string

const (
	TypeSupervisorAlert NotificationType = "supervisor_alert"
	TypeAnswerDelivery  NotificationType = "answer_delivery"
)

// Notification is the persisted record of one outbound message and
// whether it reached its recipient.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	RequestID string           `json:"request_id"`
	Recipient string           `json:"recipient"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Delivered bool             `json:"delivered"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SupervisorAlert is the webhook payload sent when a request needs a human.
type SupervisorAlert struct {
	RequestID  string    `json:"request_id"`
	CustomerID string    `json:"customer_id"`
	Question   string    `json:"question"`
	Message    string    `json:"message"`
	Deadline   time.Time `json:"deadline"`
}

// Answer is the payload sent back to the caller's session.
type Answer struct {
	RequestID   string `json:"request_id"`
	CustomerID  string `json:"customer_id"`
	CallbackRef string `json:"callback_ref"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Message     string `json:"message"`
}
