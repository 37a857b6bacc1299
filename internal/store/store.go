package store

import (
	"sync"
	"time"

	"depth-feed-go/market"
	"depth-feed-go/metrics"
)

// EventSink 接收结构化事件（通常接到 logger）。
type EventSink func(string, map[string]interface{})

// Store 持有唯一的共享盘口快照（bids/offers）。
// 写入方只有行情协程，读取方任意多；每次整侧替换，读者看不到半写的一侧。
type Store struct {
	mu         sync.RWMutex
	bids       []market.DepthLevel
	offers     []market.DepthLevel
	securityID int32
	updatedAt  time.Time
	bidCount   uint64
	offerCount uint64

	pub  *market.Publisher
	sink EventSink
	now  func() time.Time
}

// New 创建空快照；pub/sink 可为 nil。
func New(pub *market.Publisher, sink EventSink) *Store {
	return &Store{
		bids:   []market.DepthLevel{},
		offers: []market.DepthLevel{},
		pub:    pub,
		sink:   sink,
		now:    time.Now,
	}
}

// UpdateSide 用 levels 整体替换某一侧。最后写入者胜出，不做校验和合并。
func (s *Store) UpdateSide(side market.Side, securityID int32, levels []market.DepthLevel) {
	// 复制一份，调用方后续修改自己的切片不会影响已发布的快照
	cp := make([]market.DepthLevel, len(levels))
	copy(cp, levels)
	ts := s.now()

	s.mu.Lock()
	switch side {
	case market.SideBid:
		s.bids = cp
		s.bidCount++
	case market.SideOffer:
		s.offers = cp
		s.offerCount++
	default:
		s.mu.Unlock()
		return
	}
	s.securityID = securityID
	s.updatedAt = ts
	snap := s.snapshotLocked()
	s.mu.Unlock()

	var best float64
	if len(cp) > 0 {
		best = cp[0].Price
	}
	metrics.ObserveDepthUpdate(side.String(), best, ts)
	if s.pub != nil {
		s.pub.Publish(snap)
	}
	s.logEvent("depth_update", map[string]interface{}{
		"side":        side.String(),
		"security_id": securityID,
		"levels":      len(cp),
		"best":        best,
	})
}

// Snapshot 返回当前两侧的副本；首次更新前两侧为空切片。
func (s *Store) Snapshot() market.DepthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() market.DepthSnapshot {
	bids := make([]market.DepthLevel, len(s.bids))
	copy(bids, s.bids)
	offers := make([]market.DepthLevel, len(s.offers))
	copy(offers, s.offers)
	return market.DepthSnapshot{
		Bids:       bids,
		Offers:     offers,
		SecurityID: s.securityID,
		UpdatedAt:  s.updatedAt,
	}
}

// LastUpdate 最近一次整侧替换的时间；从未更新返回零值。
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Updates 某一侧累计替换次数
func (s *Store) Updates(side market.Side) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if side == market.SideBid {
		return s.bidCount
	}
	return s.offerCount
}

func (s *Store) logEvent(event string, fields map[string]interface{}) {
	if s == nil || s.sink == nil {
		return
	}
	s.sink(event, fields)
}
