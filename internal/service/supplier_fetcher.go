package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"resto_supplier_sync/pkg/metrics"
	"resto_supplier_sync/pkg/resto"
	"resto_supplier_sync/pkg/utils"
)

// ==================== 拉取错误 ====================

// FetchErrorKind 拉取失败分类
type FetchErrorKind string

const (
	FetchErrTransport  FetchErrorKind = "transport"   // 超时、连接重置、DNS 等
	FetchErrHTTPStatus FetchErrorKind = "http_status" // 非 2xx
	FetchErrBusiness   FetchErrorKind = "business"    // openapi-code 非 "0"
	FetchErrDecode     FetchErrorKind = "decode"      // 响应体不是合法信封
)

// FetchError 单页拉取失败
type FetchError struct {
	Kind       FetchErrorKind
	PageNo     int
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrHTTPStatus:
		return fmt.Sprintf("第 %d 页请求失败: HTTP %d", e.PageNo, e.StatusCode)
	case FetchErrBusiness:
		return fmt.Sprintf("第 %d 页业务报错 [%s]: %s", e.PageNo, e.Code, e.Message)
	default:
		return fmt.Sprintf("第 %d 页%s错误: %v", e.PageNo, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ==================== 分页拉取 ====================

// PageFetcher 单页拉取
// 返回非空列表表示有数据，空列表 + nil 表示已取完，error 表示失败
type PageFetcher interface {
	FetchPage(ctx context.Context, pageNo int) ([]json.RawMessage, error)
}

// SupplierFetcherConfig 开放平台访问配置
type SupplierFetcherConfig struct {
	Scheme      string
	Host        string
	Path        string
	Timeout     time.Duration
	QPS         float64 // 0 表示不限速
	ProxyURL    string
	Credentials resto.Credentials
}

// SupplierFetcher querySuppliers 分页拉取
type SupplierFetcher struct {
	config  *SupplierFetcherConfig
	client  *resty.Client
	signer  *resto.Signer
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSupplierFetcher 创建拉取器
func NewSupplierFetcher(cfg *SupplierFetcherConfig, logger *zap.Logger, opts ...resto.SignerOption) *SupplierFetcher {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = utils.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &SupplierFetcher{
		config: cfg,
		client: utils.NewOpenAPIClient(cfg.Timeout, cfg.ProxyURL),
		signer: resto.NewSigner(cfg.Credentials, opts...),
		logger: logger.Named("fetcher"),
	}
	if cfg.QPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}
	return f
}

// Endpoint 完整请求地址
func (f *SupplierFetcher) Endpoint() string {
	return fmt.Sprintf("%s://%s%s", f.config.Scheme, f.config.Host, f.config.Path)
}

// FetchPage 拉取指定页，不做重试
func (f *SupplierFetcher) FetchPage(ctx context.Context, pageNo int) ([]json.RawMessage, error) {
	start := time.Now()
	list, err := f.fetchPage(ctx, pageNo)

	outcome := "data"
	if fe, ok := err.(*FetchError); ok {
		outcome = string(fe.Kind)
	} else if err == nil && len(list) == 0 {
		outcome = "empty"
	}
	metrics.RecordFetch(outcome, time.Since(start))

	return list, err
}

func (f *SupplierFetcher) fetchPage(ctx context.Context, pageNo int) ([]json.RawMessage, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Kind: FetchErrTransport, PageNo: pageNo, Err: err}
		}
	}

	signed, err := f.signer.Sign(pageNo)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrTransport, PageNo: pageNo, Err: err}
	}

	f.logger.Info("[SupplierFetcher] 正在查询",
		zap.Int("page_no", pageNo),
		zap.String("trace_id", signed.TraceID),
	)

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(signed.Headers).
		SetBody(signed.Body).
		Post(f.Endpoint())
	if err != nil {
		f.logger.Error("[SupplierFetcher] 请求异常", zap.Int("page_no", pageNo), zap.Error(err))
		return nil, &FetchError{Kind: FetchErrTransport, PageNo: pageNo, Err: err}
	}

	if !resp.IsSuccess() {
		f.logger.Error("[SupplierFetcher] 请求失败",
			zap.Int("page_no", pageNo),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return nil, &FetchError{
			Kind:       FetchErrHTTPStatus,
			PageNo:     pageNo,
			StatusCode: resp.StatusCode(),
			Message:    string(resp.Body()),
		}
	}

	var env resto.Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		f.logger.Error("[SupplierFetcher] 响应解析失败", zap.Int("page_no", pageNo), zap.Error(err))
		return nil, &FetchError{Kind: FetchErrDecode, PageNo: pageNo, StatusCode: resp.StatusCode(), Err: err}
	}

	if env.Code != resto.SuccessCode {
		f.logger.Error("[SupplierFetcher] 业务报错",
			zap.Int("page_no", pageNo),
			zap.String("code", env.Code),
			zap.String("msg", env.ErrorMessage()),
		)
		return nil, &FetchError{
			Kind:       FetchErrBusiness,
			PageNo:     pageNo,
			StatusCode: resp.StatusCode(),
			Code:       env.Code,
			Message:    env.ErrorMessage(),
		}
	}

	list := env.Suppliers()
	if list == nil {
		list = []json.RawMessage{}
	}
	return list, nil
}
