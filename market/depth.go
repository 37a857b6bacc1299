package market

import (
	"encoding/json"
	"fmt"
	"math"
)

// LevelsPerSide 每一侧固定 20 档。
const LevelsPerSide = 20

// DepthLevel 单个价位：价格、挂单量、订单数。构造后不再修改。
type DepthLevel struct {
	Price    float64 `json:"price"`
	Quantity uint32  `json:"quantity"`
	Orders   uint32  `json:"orders"`
}

// MarshalJSON 非有限价格（NaN/±Inf）输出为 null，保证整份快照可序列化。
func (l DepthLevel) MarshalJSON() ([]byte, error) {
	var price *float64
	if !math.IsNaN(l.Price) && !math.IsInf(l.Price, 0) {
		p := l.Price
		price = &p
	}
	return json.Marshal(struct {
		Price    *float64 `json:"price"`
		Quantity uint32   `json:"quantity"`
		Orders   uint32   `json:"orders"`
	}{price, l.Quantity, l.Orders})
}

// Side 盘口方向。
type Side int

const (
	SideBid Side = iota
	SideOffer
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideOffer:
		return "offer"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}
