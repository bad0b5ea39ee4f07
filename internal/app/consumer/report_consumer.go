package consumer

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/mq/lmstfy"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorutil"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

// JobSource 任务来源（lmstfy）
type JobSource interface {
	Consume(ctx context.Context, queue string, timeout, ttr time.Duration) (*lmstfy.Message, error)
	Ack(ctx context.Context, queue, jobID string) error
}

// JobHandler 任务处理
type JobHandler interface {
	HandleJob(ctx context.Context, job *mdreport.ReportJob) error
}

// ReportConsumer 报告任务消费者
// 职责：
// 1. 从 lmstfy 队列消费报告任务
// 2. 解析消息并调用 ReportService 处理
// 3. 确认消息（ACK）
type ReportConsumer struct {
	source    JobSource
	handler   JobHandler
	queueName string
	logger    logger.Logger

	// 消费配置
	timeout time.Duration // 拉取消息超时
	ttr     time.Duration // Time-To-Run
	backoff time.Duration // 拉取失败后的等待

	processed *atomic.Int64
	failed    *atomic.Int64
}

// Config 消费者配置
type Config struct {
	QueueName string
	Timeout   time.Duration
	TTR       time.Duration
	Backoff   time.Duration
}

// NewReportConsumer 创建报告消费者实例
func NewReportConsumer(source JobSource, handler JobHandler, config *Config, log logger.Logger) *ReportConsumer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReportConsumer{
		source:    source,
		handler:   handler,
		queueName: config.QueueName,
		timeout:   config.Timeout,
		ttr:       config.TTR,
		backoff:   config.Backoff,
		logger:    log,
		processed: atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
	}
}

// Start 启动消费循环，ctx 取消后返回 ctx.Err()
func (c *ReportConsumer) Start(ctx context.Context) error {
	c.logger.Infof(ctx, "report consumer started: queue=%s, timeout=%s, ttr=%s", c.queueName, c.timeout, c.ttr)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infof(context.Background(), "report consumer stopped: processed=%d, failed=%d",
				c.processed.Load(), c.failed.Load())
			return ctx.Err()
		default:
		}

		if err := c.consumeOne(ctx); err != nil && ctx.Err() == nil {
			c.logger.Errorf(ctx, "consume report job failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
		}
	}
}

// Stats 已处理与失败数量
func (c *ReportConsumer) Stats() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

// consumeOne 消费一条消息
func (c *ReportConsumer) consumeOne(ctx context.Context) error {
	// 1. 从队列拉取消息
	msg, err := c.source.Consume(ctx, c.queueName, c.timeout, c.ttr)
	if err != nil {
		return err
	}
	if msg == nil {
		// 没有消息，继续等待
		return nil
	}

	// 2. 解析任务消息
	job, err := mdreport.ParseJob(msg.Data)
	if err != nil {
		c.failed.Inc()
		c.logger.Errorf(ctx, "parse report job failed: job_id=%s, err=%v", msg.JobID, err)
		// 解析失败，直接 ACK（避免死循环）
		return c.source.Ack(ctx, c.queueName, msg.JobID)
	}
	jobCtx := logger.WithScanID(logger.WithTraceID(ctx, job.RequestID), job.ScanID)

	// 3. 处理任务
	if err := c.handler.HandleJob(jobCtx, job); err != nil {
		c.failed.Inc()
		if errorutil.IsRetryable(err) {
			// 不 ACK，交给 lmstfy TTR 机制重试
			c.logger.Warnf(jobCtx, "report job will be retried: job_id=%s, err=%v", msg.JobID, err)
			return nil
		}
		c.logger.Errorf(jobCtx, "report job dropped: job_id=%s, err=%v", msg.JobID, err)
		return c.source.Ack(ctx, c.queueName, msg.JobID)
	}

	// 4. 确认消息
	if err := c.source.Ack(ctx, c.queueName, msg.JobID); err != nil {
		return err
	}
	c.processed.Inc()
	c.logger.Infof(jobCtx, "report job processed: job_id=%s", msg.JobID)
	return nil
}
