package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"depth-feed-go/market"
)

const (
	// HeaderSize 固定 12 字节头
	HeaderSize = 12
	// LevelRecordSize 每档 8+4+4 字节
	LevelRecordSize = 16
	// DepthFrameSize 头 + 20 档
	DepthFrameSize = HeaderSize + market.LevelsPerSide*LevelRecordSize

	FeedCodeBid   int8 = 41
	FeedCodeOffer int8 = 51
)

var (
	// ErrMalformedFrame 所有格式错误的根
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrFrameTooShort 不足 12 字节，通常说明未订阅成功
	ErrFrameTooShort = fmt.Errorf("%w: shorter than header", ErrMalformedFrame)
	// ErrTruncatedBody 20 档数据不完整
	ErrTruncatedBody = fmt.Errorf("%w: truncated depth body", ErrMalformedFrame)
)

// FrameHeader 网络字节序的 12 字节头：
// length(int16) feedCode(int8) exchangeSegment(int8) securityId(int32) reserved(4)
type FrameHeader struct {
	Length          int16
	FeedCode        int8
	ExchangeSegment int8
	SecurityID      int32
	Reserved        [4]byte
}

// DecodeHeader 解析帧头。
func DecodeHeader(frame []byte) (FrameHeader, error) {
	var h FrameHeader
	if len(frame) < HeaderSize {
		return h, ErrFrameTooShort
	}
	h.Length = int16(binary.BigEndian.Uint16(frame[0:2]))
	h.FeedCode = int8(frame[2])
	h.ExchangeSegment = int8(frame[3])
	h.SecurityID = int32(binary.BigEndian.Uint32(frame[4:8]))
	copy(h.Reserved[:], frame[8:12])
	return h, nil
}

// EncodeHeader 写出 12 字节头。
func EncodeHeader(h FrameHeader) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Length))
	buf[2] = byte(h.FeedCode)
	buf[3] = byte(h.ExchangeSegment)
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.SecurityID))
	copy(buf[8:12], h.Reserved[:])
	return buf
}

// DecodeLevel 解析单条 16 字节档位记录。
func DecodeLevel(rec []byte) (market.DepthLevel, error) {
	if len(rec) < LevelRecordSize {
		return market.DepthLevel{}, ErrTruncatedBody
	}
	return market.DepthLevel{
		Price:    math.Float64frombits(binary.BigEndian.Uint64(rec[0:8])),
		Quantity: binary.BigEndian.Uint32(rec[8:12]),
		Orders:   binary.BigEndian.Uint32(rec[12:16]),
	}, nil
}

// EncodeLevel 写出 16 字节档位记录。
func EncodeLevel(lv market.DepthLevel) []byte {
	buf := make([]byte, LevelRecordSize)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(lv.Price))
	binary.BigEndian.PutUint32(buf[8:12], lv.Quantity)
	binary.BigEndian.PutUint32(buf[12:16], lv.Orders)
	return buf
}

// DecodeLevels 从偏移 12 开始按顺序读取 20 档，保持行情原有顺序（不按价格排序）。
// 帧长不足 332 字节时返回 ErrTruncatedBody，不会 panic。
func DecodeLevels(frame []byte) ([]market.DepthLevel, error) {
	if len(frame) < DepthFrameSize {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrTruncatedBody, len(frame), DepthFrameSize)
	}
	out := make([]market.DepthLevel, market.LevelsPerSide)
	for i := range out {
		start := HeaderSize + i*LevelRecordSize
		lv, err := DecodeLevel(frame[start : start+LevelRecordSize])
		if err != nil {
			return nil, err
		}
		out[i] = lv
	}
	return out, nil
}

// EncodeDepthFrame 组装一帧完整的深度消息；levels 超过 20 档只取前 20。
// Length 为 0 时填实际帧长。
func EncodeDepthFrame(h FrameHeader, levels []market.DepthLevel) []byte {
	if len(levels) > market.LevelsPerSide {
		levels = levels[:market.LevelsPerSide]
	}
	if h.Length == 0 {
		h.Length = int16(HeaderSize + len(levels)*LevelRecordSize)
	}
	buf := make([]byte, 0, HeaderSize+len(levels)*LevelRecordSize)
	buf = append(buf, EncodeHeader(h)...)
	for _, lv := range levels {
		buf = append(buf, EncodeLevel(lv)...)
	}
	return buf
}

// SideForFeedCode 41→买盘，51→卖盘；其它 code 返回 false。
func SideForFeedCode(code int8) (market.Side, bool) {
	switch code {
	case FeedCodeBid:
		return market.SideBid, true
	case FeedCodeOffer:
		return market.SideOffer, true
	default:
		return 0, false
	}
}
