package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{302, "3xx"},
		{409, "4xx"},
		{503, "5xx"},
		{0, "unknown"},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.code); got != tt.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestRecordPage_ExportedByHandler(t *testing.T) {
	RecordPage(3, 1, 0, nil)
	RecordPage(0, 0, 0, errors.New("boom"))

	body := scrape(t)
	for _, want := range []string{
		`supplier_sync_pages_total{result="committed"}`,
		`supplier_sync_pages_total{result="rolled_back"}`,
		`supplier_sync_records_total{result="written"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("指标输出缺少 %s", want)
		}
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	return w.Body.String()
}

func TestHandler_ExportsSyncMetrics(t *testing.T) {
	RecordFetch("data", 120*time.Millisecond)

	if !strings.Contains(scrape(t), `supplier_sync_fetch_total{outcome="data"}`) {
		t.Error("指标输出缺少 supplier_sync_fetch_total")
	}
}
