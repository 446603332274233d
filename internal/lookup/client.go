package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/utils"
)

// 合同管理服务监听的三个请求队列
const (
	HolidayQueue          = "lookup_holiday_queue"
	LocationClosedQueue   = "lookup_location_closed_queue"
	ContractScheduleQueue = "lookup_contract_schedule_queue"
)

// Client 通过 RabbitMQ 的请求/响应模式访问合同管理服务。
// 所有请求都发布到对方的请求队列，回复通过独占回复队列按 correlation id 分发
type Client struct {
	cfg        *config.Config
	ch         *amqp.Channel
	replyQueue string

	mu      sync.Mutex
	pending map[string]chan []byte
}

func NewClient(cfg *config.Config, ch *amqp.Channel) (*Client, error) {
	// 声明请求队列，声明是幂等的，对方服务也会声明同样的队列
	for _, queue := range []string{HolidayQueue, LocationClosedQueue, ContractScheduleQueue} {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // 是否持久化
			false, // 是否自动删除
			false, // 是否独占
			false, // 是否不等待
			nil,   // 额外参数
		); err != nil {
			return nil, err
		}
	}

	// 声明独占的回复队列，由 RabbitMQ 自动命名，连接断开时自动删除
	q, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		true, // 自动确认，回复消息丢失时由调用方超时兜底
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		ch:         ch,
		replyQueue: q.Name,
		pending:    make(map[string]chan []byte),
	}

	go c.dispatch(msgs)

	return c, nil
}

// dispatch 将回复队列中的消息按 correlation id 分发给等待中的调用
func (c *Client) dispatch(msgs <-chan amqp.Delivery) {
	for msg := range msgs {
		c.mu.Lock()
		waiter, exists := c.pending[msg.CorrelationId]
		if exists {
			delete(c.pending, msg.CorrelationId)
		}
		c.mu.Unlock()

		if exists {
			waiter <- msg.Body
		}
	}
}

func (c *Client) call(ctx context.Context, queue string, body []byte) ([]byte, error) {
	correlationID := utils.GenerateRandomID(8, 8)

	// waiter 带缓冲，保证超时放弃后 dispatch 不会被阻塞
	waiter := make(chan []byte, 1)
	c.mu.Lock()
	c.pending[correlationID] = waiter
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}()

	if err := c.ch.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			ReplyTo:       c.replyQueue,
			Body:          body,
		},
	); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-waiter:
		return reply, nil
	}
}

// CheckHoliday 查询某个日期是否为法定节假日
func (c *Client) CheckHoliday(ctx context.Context, date time.Time) (*domain.HolidayCheckReply, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Lookup.HolidayTimeout)*time.Second)
	defer cancel()

	body, err := json.Marshal(domain.HolidayCheckRequest{Date: date.Format("2006-01-02")})
	if err != nil {
		return nil, err
	}

	replyBody, err := c.call(ctx, HolidayQueue, body)
	if err != nil {
		return nil, err
	}

	reply := &domain.HolidayCheckReply{}
	if err := json.Unmarshal(replyBody, reply); err != nil {
		return nil, fmt.Errorf("节假日查询响应格式有误: %w", err)
	}

	return reply, nil
}

// CheckLocationClosed 查询某个驻点在某个日期是否闭馆
func (c *Client) CheckLocationClosed(ctx context.Context, locationID int64, date time.Time) (*domain.LocationClosedReply, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Lookup.LocationClosedTimeout)*time.Second)
	defer cancel()

	body, err := json.Marshal(domain.LocationClosedRequest{LocationID: locationID, Date: date.Format("2006-01-02")})
	if err != nil {
		return nil, err
	}

	replyBody, err := c.call(ctx, LocationClosedQueue, body)
	if err != nil {
		return nil, err
	}

	reply := &domain.LocationClosedReply{}
	if err := json.Unmarshal(replyBody, reply); err != nil {
		return nil, fmt.Errorf("驻点闭馆查询响应格式有误: %w", err)
	}

	return reply, nil
}

// FetchContractSchedule 拉取合同下的全部排班模板和驻点。
// 与前两个查询不同，这个查询失败时没有安全默认值，调用方应当中止该合同的生成
func (c *Client) FetchContractSchedule(ctx context.Context, contractID int64) (*domain.ContractScheduleReply, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Lookup.ContractScheduleTimeout)*time.Second)
	defer cancel()

	body, err := json.Marshal(domain.ContractScheduleRequest{ContractID: contractID})
	if err != nil {
		return nil, err
	}

	replyBody, err := c.call(ctx, ContractScheduleQueue, body)
	if err != nil {
		return nil, err
	}

	reply := &domain.ContractScheduleReply{}
	if err := json.Unmarshal(replyBody, reply); err != nil {
		return nil, fmt.Errorf("合同排班信息响应格式有误: %w", err)
	}
	if reply.Contract == nil {
		return nil, fmt.Errorf("合同 %d 不存在", contractID)
	}

	return reply, nil
}
