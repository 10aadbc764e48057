// Package limiter 提供按资源键划分的并发限流器。
// 同一个键（如 "embedding-api"）下最多允许 limit 个任务同时执行，
// 超出的任务按到达顺序排队等待。
package limiter

import (
	"context"
	"sync"
)

// Pool 资源键限流器池
// 由调用方构造后注入使用，各键之间互不影响。
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	limit    int
	inFlight int
	waiters  []chan struct{}
}

// NewPool 创建限流器池
// limits 为各资源键的初始并发上限，未出现的键默认不限流。
func NewPool(limits map[string]int) *Pool {
	p := &Pool{entries: make(map[string]*entry)}
	for key, limit := range limits {
		p.entries[key] = &entry{limit: limit}
	}
	return p
}

// SetLimit 调整某个键的并发上限
// 上调后会按排队顺序唤醒可以放行的等待者；limit <= 0 表示不限流。
func (p *Pool) SetLimit(key string, limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entryLocked(key)
	e.limit = limit
	p.grantLocked(e)
}

// Limit 返回某个键当前的并发上限
func (p *Pool) Limit(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entryLocked(key).limit
}

// InFlight 返回某个键当前正在执行的任务数
func (p *Pool) InFlight(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entryLocked(key).inFlight
}

// Acquire 获取一个执行名额，名额满时阻塞直到排到或 ctx 结束
// 成功返回 nil 后必须调用 Release 归还。
func (p *Pool) Acquire(ctx context.Context, key string) error {
	p.mu.Lock()
	e := p.entryLocked(key)
	if e.limit <= 0 || e.inFlight < e.limit {
		e.inFlight++
		p.mu.Unlock()
		return nil
	}

	w := make(chan struct{}, 1)
	e.waiters = append(e.waiters, w)
	p.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		select {
		case <-w:
			// 取消与唤醒同时发生，名额已经授予，需要归还
			p.releaseLocked(e)
		default:
			for i, waiter := range e.waiters {
				if waiter == w {
					e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
					break
				}
			}
		}
		p.mu.Unlock()
		return ctx.Err()
	}
}

// Release 归还一个执行名额，并唤醒队首等待者
func (p *Pool) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(p.entryLocked(key))
}

// Do 在限流保护下执行 fn
func (p *Pool) Do(ctx context.Context, key string, fn func() error) error {
	if err := p.Acquire(ctx, key); err != nil {
		return err
	}
	defer p.Release(key)
	return fn()
}

func (p *Pool) entryLocked(key string) *entry {
	e, ok := p.entries[key]
	if !ok {
		e = &entry{}
		p.entries[key] = e
	}
	return e
}

func (p *Pool) releaseLocked(e *entry) {
	if e.inFlight > 0 {
		e.inFlight--
	}
	p.grantLocked(e)
}

// grantLocked 按 FIFO 顺序给尚有余量的等待者放行
func (p *Pool) grantLocked(e *entry) {
	for len(e.waiters) > 0 && (e.limit <= 0 || e.inFlight < e.limit) {
		w := e.waiters[0]
		e.waiters = e.waiters[1:]
		e.inFlight++
		w <- struct{}{}
	}
}
