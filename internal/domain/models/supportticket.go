// internal/domain/models/supportticket.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SupportTicket is a message sent through the help contact form.
type SupportTicket struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	TicketID  string              `bson:"ticket_id" json:"ticketId"`
	Name      string              `bson:"name" json:"name"`
	Email     string              `bson:"email" json:"email"`
	Subject   string              `bson:"subject" json:"subject"`
	Message   string              `bson:"message" json:"message"`
	Category  string              `bson:"category,omitempty" json:"category,omitempty"`
	UserID    *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	Status    string              `bson:"status" json:"status"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
}
