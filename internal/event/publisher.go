package event

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

// GenerationEventQueue 承载生成完成事件，任何关心班次产出的服务都可以消费
const GenerationEventQueue = "shift_generation_events"

type Publisher struct {
	cfg *config.Config
	ch  *amqp.Channel
}

func NewPublisher(cfg *config.Config, ch *amqp.Channel) (*Publisher, error) {
	if _, err := ch.QueueDeclare(
		GenerationEventQueue,
		true,  // 是否持久化
		false, // 是否自动删除
		false, // 是否独占
		false, // 是否不等待
		nil,   // 额外参数
	); err != nil {
		return nil, err
	}

	return &Publisher{
		cfg: cfg,
		ch:  ch,
	}, nil
}

func (p *Publisher) PublishGenerationCompleted(ctx context.Context, event *domain.GenerationCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		GenerationEventQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
