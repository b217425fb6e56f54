// Package payment содержит реализации платёжного адаптера для холдов смен.
package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/queue"
)

// SimulatedGateway фиксирует операции в памяти и в логе.
// Повтор операции по тому же холду ничего не меняет.
type SimulatedGateway struct {
	mu   sync.Mutex
	done map[string]time.Time
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{done: make(map[string]time.Time)}
}

func (g *SimulatedGateway) Hold(ctx context.Context, holdID uuid.UUID, amount int64) error {
	return g.apply(ctx, queue.PaymentCommand{Op: queue.PaymentOpHold, HoldID: holdID, Amount: amount})
}

func (g *SimulatedGateway) Release(ctx context.Context, holdID uuid.UUID) error {
	return g.apply(ctx, queue.PaymentCommand{Op: queue.PaymentOpRelease, HoldID: holdID})
}

func (g *SimulatedGateway) Refund(ctx context.Context, holdID uuid.UUID) error {
	return g.apply(ctx, queue.PaymentCommand{Op: queue.PaymentOpRefund, HoldID: holdID})
}

// Applied сообщает, выполнялась ли операция по холду.
func (g *SimulatedGateway) Applied(op string, holdID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.done[queue.PaymentCommand{Op: op, HoldID: holdID}.MessageID()]
	return ok
}

func (g *SimulatedGateway) apply(ctx context.Context, cmd queue.PaymentCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := cmd.MessageID()
	if _, ok := g.done[key]; ok {
		return nil
	}
	g.done[key] = time.Now()

	logger.L().WithFields(logrus.Fields{
		"op":      "payment." + cmd.Op,
		"hold_id": cmd.HoldID,
		"amount":  cmd.Amount,
	}).Info("simulated payment operation")
	return nil
}

// Publisher отправляет сообщение в очередь брокера.
type Publisher interface {
	Publish(ctx context.Context, queueName, messageID string, v any) error
}

// QueueGateway передаёт операции провайдеру через очередь payments.commands.
// ID сообщения равен "<op>:<holdID>", поэтому повторная отправка идемпотентна.
type QueueGateway struct {
	publisher Publisher
	now       func() time.Time
}

func NewQueueGateway(publisher Publisher) *QueueGateway {
	return &QueueGateway{publisher: publisher, now: time.Now}
}

func (g *QueueGateway) Hold(ctx context.Context, holdID uuid.UUID, amount int64) error {
	return g.send(ctx, queue.PaymentCommand{Op: queue.PaymentOpHold, HoldID: holdID, Amount: amount})
}

func (g *QueueGateway) Release(ctx context.Context, holdID uuid.UUID) error {
	return g.send(ctx, queue.PaymentCommand{Op: queue.PaymentOpRelease, HoldID: holdID})
}

func (g *QueueGateway) Refund(ctx context.Context, holdID uuid.UUID) error {
	return g.send(ctx, queue.PaymentCommand{Op: queue.PaymentOpRefund, HoldID: holdID})
}

func (g *QueueGateway) send(ctx context.Context, cmd queue.PaymentCommand) error {
	cmd.RequestedAt = g.now().UTC()
	return g.publisher.Publish(ctx, queue.PaymentCommandsQueue, cmd.MessageID(), cmd)
}
