package lmstfy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
)

const (
	defaultTTL   = 3600 // 消息存活时间（秒）
	defaultTries = 3    // 最大投递次数
)

// Client Lmstfy 客户端封装
type Client struct {
	cli       *client.LmstfyClient
	namespace string
}

// Message 队列消息
type Message struct {
	JobID string
	Queue string
	Data  json.RawMessage
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace, token string) *Client {
	return &Client{
		cli:       client.NewLmstfyClient(host, port, namespace, token),
		namespace: namespace,
	}
}

// Publish 发布 JSON 消息到队列，返回 job ID
func (c *Client) Publish(ctx context.Context, queue string, data interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal lmstfy payload failed: %w", err)
	}

	jobID, err := c.cli.Publish(queue, payload, defaultTTL, defaultTries, 0)
	if err != nil {
		return "", fmt.Errorf("lmstfy publish failed: %w", err)
	}
	return jobID, nil
}

// Consume 从队列中消费消息，超时未拉到消息时返回 nil
// timeout: 等待超时，ttr: 消息处理超时（超时未 ACK 会重新投递）
func (c *Client) Consume(ctx context.Context, queue string, timeout, ttr time.Duration) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	job, err := c.cli.Consume(queue, uint32(ttr.Seconds()), uint32(timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}

	// 超时未拉到消息
	if job == nil {
		return nil, nil
	}

	return &Message{
		JobID: job.ID,
		Queue: job.Queue,
		Data:  json.RawMessage(job.Data),
	}, nil
}

// Ack 确认消息已处理
func (c *Client) Ack(ctx context.Context, queue, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}
