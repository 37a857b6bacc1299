package market

import "sync"

// Publisher 一个轻量快照分发器；订阅者只关心最新值，满了就丢。
type Publisher struct {
	mu   sync.Mutex
	subs map[chan DepthSnapshot]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{
		subs: make(map[chan DepthSnapshot]struct{}),
	}
}

// Subscribe 返回只读通道和取消函数。
func (p *Publisher) Subscribe() (<-chan DepthSnapshot, func()) {
	ch := make(chan DepthSnapshot, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish 非阻塞投递：通道里有旧值时先替换掉旧值。
func (p *Publisher) Publish(s DepthSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribers 当前订阅数。
func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
