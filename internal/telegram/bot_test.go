package telegram

import (
	"context"
	"testing"

	"github.com/deltabot/delta/internal/hls"
)

func TestParseQualityCallback(t *testing.T) {
	jobID := "3f1c0de2-9f3a-4b6e-8a39-0a9e5a8d7c11"
	tests := []struct {
		data        string
		wantJobID   string
		wantQuality hls.Quality
		wantOK      bool
	}{
		{"q:" + jobID + ":lowest", jobID, hls.QualityLowest, true},
		{"q:" + jobID + ":medium", jobID, hls.QualityMedium, true},
		{"q:" + jobID + ":high", jobID, hls.QualityHigh, true},
		{"q:" + jobID + ":bogus", jobID, hls.QualityMedium, true},
		{"x:" + jobID + ":high", "", 0, false},
		{"q::high", "", 0, false},
		{"garbage", "", 0, false},
	}
	for _, tt := range tests {
		gotID, gotQuality, ok := parseQualityCallback(tt.data)
		if ok != tt.wantOK {
			t.Errorf("parseQualityCallback(%q) ok = %v, want %v", tt.data, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if gotID != tt.wantJobID || gotQuality != tt.wantQuality {
			t.Errorf("parseQualityCallback(%q) = %q, %v", tt.data, gotID, gotQuality)
		}
	}
}

func TestQualityKeyboardRoundTrip(t *testing.T) {
	jobID := "3f1c0de2-9f3a-4b6e-8a39-0a9e5a8d7c11"
	keyboard := qualityKeyboard(jobID)
	if len(keyboard.InlineKeyboard) != 1 || len(keyboard.InlineKeyboard[0]) != 3 {
		t.Fatalf("keyboard shape = %+v", keyboard.InlineKeyboard)
	}
	want := []hls.Quality{hls.QualityLowest, hls.QualityMedium, hls.QualityHigh}
	for i, button := range keyboard.InlineKeyboard[0] {
		if button.CallbackData == nil {
			t.Fatalf("button %d has no callback data", i)
		}
		// Callback data must stay under Telegram's 64-byte limit.
		if len(*button.CallbackData) > 64 {
			t.Errorf("callback data too long: %q", *button.CallbackData)
		}
		gotID, gotQuality, ok := parseQualityCallback(*button.CallbackData)
		if !ok || gotID != jobID || gotQuality != want[i] {
			t.Errorf("button %d round-trip = %q, %v, %v", i, gotID, gotQuality, ok)
		}
	}
}

func TestRelayUnconfigured(t *testing.T) {
	var relay *Relay
	err := relay.Steal(context.Background(), MessageRef{Username: "chan", MessageID: 1}, 5)
	if err != ErrStealUnavailable {
		t.Errorf("err = %v, want ErrStealUnavailable", err)
	}
}
