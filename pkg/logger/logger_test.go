package logger

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console info", "info", "console", false},
		{"json debug", "debug", "json", false},
		{"大写级别", "WARN", "json", false},
		{"默认格式", "error", "", false},
		{"非法级别", "verbose", "console", true},
		{"非法格式", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() 返回 nil logger")
			}
		})
	}
}
