package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/ai-chatroom/internal/config"
	"github.com/suPer8Hu/ai-chatroom/internal/logging"
	"github.com/suPer8Hu/ai-chatroom/internal/store/rabbitmq"
	"go.uber.org/zap"
)

var errBadEvent = errors.New("bad event")

func workerConcurrency(n int) int {
	if n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required for the worker")
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		logger.Fatal("queue declare", zap.Error(err))
	}

	// strict concurrency control
	concurrency := workerConcurrency(cfg.WorkerConcurrency)
	if err := ch.Qos(concurrency, 0, false); err != nil {
		logger.Fatal("qos", zap.Error(err))
	}

	tag := "chat-audit-" + uuid.NewString()
	msgs, err := ch.Consume(cfg.RabbitQueue, tag, false, false, false, false, nil)
	if err != nil {
		logger.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started",
		zap.String("queue", cfg.RabbitQueue),
		zap.String("consumer", tag),
		zap.Int("concurrency", concurrency))

	// worker pool
	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := logger.With(zap.Int("worker", workerID))
			for d := range deliveries {
				if err := handleDelivery(wlog, d); err != nil {
					wlog.Warn("rejecting delivery", zap.String("message_id", d.MessageId), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				if err := d.Ack(false); err != nil {
					wlog.Error("ack failed", zap.String("message_id", d.MessageId), zap.Error(err))
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			_ = ch.Cancel(tag, false)
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				close(deliveries)
				wg.Wait()
				return
			}
			deliveries <- d
		}
	}
}

func handleDelivery(log *zap.Logger, d amqp.Delivery) error {
	ev, err := decodeEvent(d.Body)
	if err != nil {
		return err
	}

	author := zap.Skip()
	if ev.Username != nil {
		author = zap.String("username", *ev.Username)
	}
	model := zap.Skip()
	if ev.AIModel != nil {
		model = zap.String("ai_model", *ev.AIModel)
	}
	log.Info("chat message audit",
		zap.String("event_id", ev.EventID),
		zap.Uint64("message_id", ev.MessageID),
		zap.Bool("is_ai", ev.IsAI),
		author,
		model,
		zap.Int("content_len", len(ev.Content)),
		zap.Time("created_at", ev.CreatedAt),
		zap.Duration("lag", time.Since(ev.CreatedAt)),
	)
	return nil
}

func decodeEvent(body []byte) (rabbitmq.MessageEvent, error) {
	var ev rabbitmq.MessageEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, errors.Join(errBadEvent, err)
	}
	if ev.Type != rabbitmq.EventMessageCreated || ev.MessageID == 0 {
		return ev, errBadEvent
	}
	// exactly one author
	if ev.IsAI == (ev.Username != nil) {
		return ev, errBadEvent
	}
	return ev, nil
}
