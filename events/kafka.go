package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/audit"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams completed checkouts to a topic, keyed by serial.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		log: log,
	}
}

type OrderLineMessage struct {
	ProductID   *uint  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	LineTotal   string `json:"line_total"`
}

type OrderCompletedMessage struct {
	OrderID   uint               `json:"order_id"`
	Serial    string             `json:"serial"`
	UserID    *uint              `json:"user_id,omitempty"`
	Guest     bool               `json:"guest"`
	Email     string             `json:"email"`
	Items     []OrderLineMessage `json:"items"`
	Total     string             `json:"total"`
	RequestID string             `json:"request_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewOrderCompletedMessage(e CheckoutCompleted) OrderCompletedMessage {
	o := e.Order
	items := make([]OrderLineMessage, 0, len(o.Items))
	for i := range o.Items {
		it := o.Items[i]
		items = append(items, OrderLineMessage{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
			LineTotal:   it.Total().StringFixed(2),
		})
	}
	return OrderCompletedMessage{
		OrderID:   o.ID,
		Serial:    o.Serial(),
		UserID:    o.UserID,
		Guest:     o.IsGuest(),
		Email:     audit.MaskEmail(o.Email()),
		Items:     items,
		Total:     o.Total().StringFixed(2),
		RequestID: e.RequestID,
		CreatedAt: o.CreatedAt,
	}
}

func (p *KafkaPublisher) Handle(ctx context.Context, e Event) error {
	completed, ok := e.(CheckoutCompleted)
	if !ok {
		return nil
	}

	value, err := json.Marshal(NewOrderCompletedMessage(completed))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(completed.Order.Serial()),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish order %d: %w", completed.Order.ID, err)
	}

	p.log.Debug("checkout event streamed", zap.Uint("order_id", completed.Order.ID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
