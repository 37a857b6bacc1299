package market

import "time"

// DepthSnapshot 两侧盘口的完整快照。
// 每一侧要么为空（尚未收到更新），要么是某一次更新的完整 20 档。
type DepthSnapshot struct {
	Bids       []DepthLevel `json:"bids"`
	Offers     []DepthLevel `json:"offers"`
	SecurityID int32        `json:"-"`
	UpdatedAt  time.Time    `json:"-"`
}

// BestBid 返回第一档买价；无数据返回 0。
func (s DepthSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestOffer 返回第一档卖价；无数据返回 0。
func (s DepthSnapshot) BestOffer() float64 {
	if len(s.Offers) == 0 {
		return 0
	}
	return s.Offers[0].Price
}

// Empty 两侧都没有数据。
func (s DepthSnapshot) Empty() bool {
	return len(s.Bids) == 0 && len(s.Offers) == 0
}
