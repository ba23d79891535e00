package resto

import (
	"encoding/json"
	"testing"
)

func TestEnvelope_Suppliers(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"正常列表", `{"openapi-code":"0","biz-data":{"supplierList":[{"id":1},{"id":2}]}}`, 2},
		{"缺少 biz-data", `{"openapi-code":"0"}`, 0},
		{"biz-data 为 null", `{"openapi-code":"0","biz-data":null}`, 0},
		{"缺少 supplierList", `{"openapi-code":"0","biz-data":{}}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			if err := json.Unmarshal([]byte(tt.body), &env); err != nil {
				t.Fatalf("Unmarshal error = %v", err)
			}
			if got := len(env.Suppliers()); got != tt.want {
				t.Errorf("Suppliers() len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEnvelope_ErrorMessage(t *testing.T) {
	if got := (&Envelope{}).ErrorMessage(); got != "Unknown Error" {
		t.Errorf("ErrorMessage() = %s", got)
	}
	if got := (&Envelope{Message: "缺少参数 orgCode"}).ErrorMessage(); got != "缺少参数 orgCode" {
		t.Errorf("ErrorMessage() = %s", got)
	}
}

func TestText_Unmarshal(t *testing.T) {
	type holder struct {
		V Text `json:"v"`
	}

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantValue string
		wantErr   bool
	}{
		{"字符串", `{"v":"abc"}`, true, "abc", false},
		{"空串", `{"v":""}`, true, "", false},
		{"数字", `{"v":13800138000}`, true, "13800138000", false},
		{"小数", `{"v":0.13}`, true, "0.13", false},
		{"布尔", `{"v":true}`, true, "true", false},
		{"null", `{"v":null}`, false, "", false},
		{"缺省", `{}`, false, "", false},
		{"对象", `{"v":{"a":1}}`, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h holder
			err := json.Unmarshal([]byte(tt.body), &h)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if h.V.Valid != tt.wantValid || h.V.Value != tt.wantValue {
				t.Errorf("got {%q %v}, want {%q %v}", h.V.Value, h.V.Valid, tt.wantValue, tt.wantValid)
			}
		})
	}
}
