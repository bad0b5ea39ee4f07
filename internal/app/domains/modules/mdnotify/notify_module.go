package mdnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
)

// StateEvent 会话状态变化事件
type StateEvent struct {
	SessionID string               `json:"session_id"`
	State     etscan.WorkflowState `json:"state"`
	Token     uint64               `json:"token"`
	ScanID    string               `json:"scan_id,omitempty"`
	At        time.Time            `json:"at"`
}

// Notifier 状态事件通知接口
type Notifier interface {
	// Publish 发布状态事件，失败不影响流程
	Publish(ctx context.Context, event *StateEvent) error
	// Await 等待会话的下一次状态事件，超时返回 context.DeadlineExceeded
	Await(ctx context.Context, sessionID string, timeout time.Duration) (*StateEvent, error)
}

// ChannelName 频道命名规则：scan:state:{sessionID}
func ChannelName(sessionID string) string {
	return fmt.Sprintf("scan:state:%s", sessionID)
}

// PubSub Redis Pub/Sub 能力
type PubSub interface {
	Publish(ctx context.Context, channel string, message string) error
	Subscribe(ctx context.Context, channel string, timeout time.Duration) (string, error)
}

// RedisNotifier 基于 Redis Pub/Sub 的通知实现，多实例部署时使用
type RedisNotifier struct {
	pubsub PubSub
}

// NewRedisNotifier 创建 Redis 通知模块
func NewRedisNotifier(pubsub PubSub) *RedisNotifier {
	return &RedisNotifier{pubsub: pubsub}
}

// Publish 序列化事件并发布到会话频道
func (n *RedisNotifier) Publish(ctx context.Context, event *StateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal state event failed: %w", err)
	}
	return n.pubsub.Publish(ctx, ChannelName(event.SessionID), string(payload))
}

// Await 订阅会话频道并等待一条事件
func (n *RedisNotifier) Await(ctx context.Context, sessionID string, timeout time.Duration) (*StateEvent, error) {
	payload, err := n.pubsub.Subscribe(ctx, ChannelName(sessionID), timeout)
	if err != nil {
		return nil, err
	}

	var event StateEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("unmarshal state event failed: %w", err)
	}
	return &event, nil
}

// MemoryNotifier 进程内通知实现，未配置 Redis 时使用
type MemoryNotifier struct {
	mu      sync.Mutex
	waiters map[string][]chan *StateEvent
}

// NewMemoryNotifier 创建进程内通知模块
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{waiters: make(map[string][]chan *StateEvent)}
}

// Publish 唤醒该会话的所有等待者
func (n *MemoryNotifier) Publish(_ context.Context, event *StateEvent) error {
	n.mu.Lock()
	waiters := n.waiters[event.SessionID]
	delete(n.waiters, event.SessionID)
	n.mu.Unlock()

	for _, ch := range waiters {
		ch <- event
	}
	return nil
}

// Await 注册等待者并阻塞到事件到达或超时
func (n *MemoryNotifier) Await(ctx context.Context, sessionID string, timeout time.Duration) (*StateEvent, error) {
	ch := make(chan *StateEvent, 1)

	n.mu.Lock()
	n.waiters[sessionID] = append(n.waiters[sessionID], ch)
	n.mu.Unlock()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case event := <-ch:
		return event, nil
	case <-timeoutCtx.Done():
		n.remove(sessionID, ch)
		// 超时与发布并发时，事件可能已写入缓冲
		select {
		case event := <-ch:
			return event, nil
		default:
		}
		return nil, timeoutCtx.Err()
	}
}

// Waiting 当前等待者数量
func (n *MemoryNotifier) Waiting(sessionID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.waiters[sessionID])
}

func (n *MemoryNotifier) remove(sessionID string, target chan *StateEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	waiters := n.waiters[sessionID]
	for i, ch := range waiters {
		if ch == target {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(n.waiters, sessionID)
	} else {
		n.waiters[sessionID] = waiters
	}
}
