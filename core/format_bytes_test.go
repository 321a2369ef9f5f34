package core

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"negative treated as zero", -100, "0 B"},
		{"under a kilobyte", 512, "512 B"},
		{"exact kilobyte", 1024, "1.00 KB"},
		{"fractional kilobyte", 1536, "1.50 KB"},
		{"megabyte", 1048576, "1.00 MB"},
		{"gigabyte", 1073741824, "1.00 GB"},
		{"terabyte", 1099511627776, "1.00 TB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
