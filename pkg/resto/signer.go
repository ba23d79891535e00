package resto

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ==================== 请求头 ====================

const (
	HeaderContentType   = "Content-Type"
	HeaderCorporationID = "Corporation-Id"
	HeaderTimestamp     = "RS-OpenAPI-Timestamp"
	HeaderTraceID       = "RS-OpenAPI-TraceId"
	HeaderGrantType     = "RS-OpenAPI-GrantType"
	HeaderAppKey        = "RS-OpenAPI-AppKey"
	HeaderSignature     = "RS-OpenAPI-Signature"

	GrantTypeSignature = "signature"
)

// ==================== 签名器 ====================

// Credentials 开放平台租户凭证
type Credentials struct {
	AppKey        string
	SecretKey     string
	CorporationID int64
	OrgCode       string // 可选，为空时请求体不带 orgCode
}

// SignedRequest 单页请求的签名结果
type SignedRequest struct {
	Body      []byte
	Timestamp string
	TraceID   string
	Signature string
	Headers   map[string]string
}

// Signer 请求签名器，纯计算，只读取时钟和生成 TraceId
type Signer struct {
	creds   Credentials
	now     func() time.Time
	traceID func() string
}

// SignerOption 签名器选项
type SignerOption func(*Signer)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

// WithTraceIDFunc 替换 TraceId 生成器（测试用）
func WithTraceIDFunc(fn func() string) SignerOption {
	return func(s *Signer) { s.traceID = fn }
}

// NewSigner 创建签名器
func NewSigner(creds Credentials, opts ...SignerOption) *Signer {
	s := &Signer{
		creds:   creds,
		now:     time.Now,
		traceID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign 为指定页码构建请求体并签名
func (s *Signer) Sign(pageNo int) (*SignedRequest, error) {
	body, err := NewQuerySuppliersReq(s.creds.CorporationID, pageNo, s.creds.OrgCode).Marshal()
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	signature := Signature(s.creds.AppKey, s.creds.SecretKey, timestamp, body)
	traceID := s.traceID()

	return &SignedRequest{
		Body:      body,
		Timestamp: timestamp,
		TraceID:   traceID,
		Signature: signature,
		Headers: map[string]string{
			HeaderContentType:   "application/json",
			HeaderCorporationID: strconv.FormatInt(s.creds.CorporationID, 10),
			HeaderTimestamp:     timestamp,
			HeaderTraceID:       traceID,
			HeaderGrantType:     GrantTypeSignature,
			HeaderAppKey:        s.creds.AppKey,
			HeaderSignature:     signature,
		},
	}, nil
}

// Signature md5(appKey + secretKey + timestamp + body)，小写十六进制
func Signature(appKey, secretKey, timestamp string, body []byte) string {
	h := md5.New()
	h.Write([]byte(appKey))
	h.Write([]byte(secretKey))
	h.Write([]byte(timestamp))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
