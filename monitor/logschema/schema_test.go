package logschema

import "testing"

func TestValidate(t *testing.T) {
	err := Validate("frame_dropped", map[string]interface{}{
		"feed_code":   int8(41),
		"security_id": int32(2885),
		"len":         100,
		"error":       "truncated depth body",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate("frame_dropped", map[string]interface{}{
		"feed_code": int8(41),
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	if err := Validate("unknown_event", nil); err != nil {
		t.Fatalf("unknown events are not checked: %v", err)
	}
}

func TestKnownEvents(t *testing.T) {
	names := Known()
	if len(names) == 0 {
		t.Fatalf("expected non-empty schema list")
	}
	found := false
	for _, n := range names {
		if n == "depth_update" {
			found = true
		}
	}
	if !found {
		t.Fatalf("depth_update not found in schemas")
	}
}
