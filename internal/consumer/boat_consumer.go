package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/Eursukkul/boat-booking/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoutingBoatUpserted = "boat.upserted"
	RoutingBoatDeleted  = "boat.deleted"
)

// errMalformed marks messages that will never succeed and must not be requeued.
var errMalformed = errors.New("malformed catalog message")

type boatDeleted struct {
	ID uint `json:"id"`
}

// BoatConsumer keeps the local boat catalog in sync with the catalog owner.
type BoatConsumer struct {
	boats repository.BoatRepository
}

func NewBoatConsumer(boats repository.BoatRepository) *BoatConsumer {
	return &BoatConsumer{boats: boats}
}

// Start listens for catalog messages until msgs is closed.
func (bc *BoatConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			bc.handleMessage(ctx, msg)
		}
		log.Println("[BoatConsumer] channel closed, stopping consumer")
	}()
}

func (bc *BoatConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	err := bc.apply(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case errors.Is(err, errMalformed):
		log.Printf("[BoatConsumer] dropping %s: %v", msg.RoutingKey, err)
		msg.Nack(false, false)
	default:
		log.Printf("[BoatConsumer] failed to apply %s: %v", msg.RoutingKey, err)
		msg.Nack(false, true) // requeue
	}
}

func (bc *BoatConsumer) apply(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case RoutingBoatUpserted:
		var boat models.Boat
		if err := json.Unmarshal(body, &boat); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if boat.ID == 0 || boat.HourlyRate < 0 || boat.HalfDayRate < 0 || boat.FullDayRate < 0 {
			return fmt.Errorf("%w: invalid boat %d", errMalformed, boat.ID)
		}
		if err := bc.boats.Upsert(ctx, &boat); err != nil {
			return err
		}
		log.Printf("[BoatConsumer] synced boat %d: %s", boat.ID, boat.Name)
		return nil

	case RoutingBoatDeleted:
		var msg boatDeleted
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if msg.ID == 0 {
			return fmt.Errorf("%w: missing boat id", errMalformed)
		}
		if err := bc.boats.Delete(ctx, msg.ID); err != nil {
			return err
		}
		log.Printf("[BoatConsumer] removed boat %d", msg.ID)
		return nil

	default:
		log.Printf("[BoatConsumer] ignoring routing key %q", routingKey)
		return nil
	}
}
