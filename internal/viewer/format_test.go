package viewer

import (
	"testing"
	"time"
)

func TestFormatElapsedLadder(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		delta time.Duration
		want  string
	}{
		{5 * time.Second, "00:05"},
		{90 * time.Second, "01:30"},
		{90 * time.Minute, "1:30:00"},
		{13 * time.Hour, "13:00:00"},
		{80 * time.Hour, "3 days"},
		{100 * 24 * time.Hour, "3 months"},
	}

	for _, c := range cases {
		got := FormatElapsed(now, now.Add(-c.delta))
		if got != c.want {
			t.Errorf("FormatElapsed(delta=%v) = %q, want %q", c.delta, got, c.want)
		}
	}
}

func TestFormatSizeLadder(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0B"},
		{1023, "1023B"},
		{1024, "1.0K"},
		{1536, "1.5K"},
		{1024 * 1024, "1.0M"},
		{1024 * 1024 * 1024, "1.0G"},
	}
	for _, c := range cases {
		got := FormatSize(c.bytes)
		if got != c.want {
			t.Errorf("FormatSize(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}

func TestTruncateTailAddsEllipsis(t *testing.T) {
	got := TruncateTail("a-very-long-filename.go", 10)
	runes := []rune(got)
	if len(runes) != 10 {
		t.Fatalf("expected width 10, got %q (%d)", got, len(runes))
	}
	if runes[len(runes)-1] != '…' {
		t.Errorf("expected trailing ellipsis, got %q", got)
	}
}

func TestTruncateTailPadsShortStrings(t *testing.T) {
	got := TruncateTail("hi", 5)
	if got != "hi   " {
		t.Errorf("TruncateTail short = %q", got)
	}
}

func TestTruncateHeadUsesLeadingEllipsis(t *testing.T) {
	got := TruncateHead("/very/long/directory/path/here", 10)
	runes := []rune(got)
	if runes[0] != '…' {
		t.Fatalf("expected leading ellipsis, got %q", got)
	}
	if len(runes) != 10 {
		t.Fatalf("expected width 10, got %q (%d)", got, len(runes))
	}
}

func TestDirWidthEnforcesMinimum(t *testing.T) {
	if got := DirWidth(10); got != minDirWidth {
		t.Errorf("DirWidth(10) = %d, want minimum %d", got, minDirWidth)
	}
	if got := DirWidth(200); got <= minDirWidth {
		t.Errorf("DirWidth(200) = %d, expected more than minimum", got)
	}
}

func TestFormatCountThousandsSeparated(t *testing.T) {
	if got := FormatCount(1234567); got != "1,234,567" {
		t.Errorf("FormatCount = %q", got)
	}
}
