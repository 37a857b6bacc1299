package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"depth-feed-go/gateway"
	"depth-feed-go/market"
)

// decodedFrame decode 子命令的输出
type decodedFrame struct {
	Length          int16               `json:"length"`
	FeedCode        int8                `json:"feedCode"`
	ExchangeSegment int8                `json:"exchangeSegment"`
	SecurityID      int32               `json:"securityId"`
	Side            string              `json:"side,omitempty"`
	Levels          []market.DepthLevel `json:"levels,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode one hex-encoded binary depth frame (reads stdin when no argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(b)
			}
			out, err := decodeHexFrame(raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func decodeHexFrame(raw string) (decodedFrame, error) {
	frame, err := hex.DecodeString(strings.Join(strings.Fields(raw), ""))
	if err != nil {
		return decodedFrame{}, fmt.Errorf("invalid hex: %w", err)
	}
	h, err := gateway.DecodeHeader(frame)
	if err != nil {
		return decodedFrame{}, err
	}
	out := decodedFrame{
		Length:          h.Length,
		FeedCode:        h.FeedCode,
		ExchangeSegment: h.ExchangeSegment,
		SecurityID:      h.SecurityID,
	}
	side, ok := gateway.SideForFeedCode(h.FeedCode)
	if !ok {
		return out, nil
	}
	levels, err := gateway.DecodeLevels(frame)
	if err != nil {
		return out, err
	}
	out.Side = side.String()
	out.Levels = levels
	return out, nil
}
