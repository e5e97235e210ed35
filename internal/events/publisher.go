package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhstore/checkout/internal/types"
	"github.com/segmentio/kafka-go"
)

type OrderFinalized struct {
	OrderNum      string    `json:"ordernum"`
	InvoiceNum    string    `json:"invoicenum"`
	Total         float64   `json:"total"`
	PaymentMethod string    `json:"paymentMethod"`
	Communication string    `json:"communication"`
	Remarks       string    `json:"remarks"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

// Message encodes order keyed by its order number, so all events of one order
// land on the same partition.
func Message(order types.Order) (kafka.Message, error) {
	value, err := json.Marshal(OrderFinalized{
		OrderNum:      order.OrderNum,
		InvoiceNum:    order.InvoiceNum,
		Total:         order.Total,
		PaymentMethod: string(order.PaymentMethod),
		Communication: order.Communication,
		Remarks:       order.Remarks,
		CreatedAt:     order.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding order event %w", err)
	}
	return kafka.Message{Key: []byte(order.OrderNum), Value: value, Time: time.Now()}, nil
}

func (p *Publisher) PublishOrderFinalized(ctx context.Context, order types.Order) error {
	msg, err := Message(order)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write order event to kafka %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
