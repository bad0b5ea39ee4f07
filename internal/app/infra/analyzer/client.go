package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultPath       = "/predict"
	defaultHealthPath = "/health"
	defaultTimeout    = 60 * time.Second
	apiKeyHeader      = "X-API-Key"
	formField         = "file"

	// maxResponseBytes 限制响应体大小，避免异常响应占满内存
	maxResponseBytes = 4 << 20
)

// ErrMalformedResponse 响应体为空或无法解析
var ErrMalformedResponse = errors.New("analyzer: malformed response")

// Client 分析服务 HTTP 客户端
type Client struct {
	baseURL    string
	path       string
	apiKey     string
	expertMode bool
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a Client instance.
type Option func(*Client)

// WithBaseURL 设置分析服务地址
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithPath 设置分析接口路径，默认 /predict
func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = "/" + strings.TrimPrefix(path, "/")
		}
	}
}

// WithAPIKey 设置 API Key，为空时不发送
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithExpertMode 请求附带专家指标
func WithExpertMode(enabled bool) Option {
	return func(c *Client) {
		c.expertMode = enabled
	}
}

// WithHTTPClient assigns a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout 设置单次分析请求超时，非正值忽略
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient 创建分析服务客户端，必须提供 base URL
// 超时只由每次请求的 context 控制，http.Client 不再设置 Timeout
func NewClient(opts ...Option) (*Client, error) {
	client := &Client{
		path:       defaultPath,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.baseURL == "" {
		return nil, errors.New("analyzer: base URL not provided")
	}

	return client, nil
}

// Predict 上传一张图片并返回原始检测结果
// 非 2xx 返回 *APIError；空响应或无法解析返回 ErrMalformedResponse
func (c *Client) Predict(ctx context.Context, filename, mimeType string, data []byte) (*DetectionResponse, error) {
	body, contentType, err := buildMultipart(filename, mimeType, data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), body)
	if err != nil {
		return nil, fmt.Errorf("analyzer: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyzer: http call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("analyzer: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var detection DetectionResponse
	if err := json.Unmarshal(respBody, &detection); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &detection, nil
}

// Ping 检查分析服务健康状态
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+defaultHealthPath, nil)
	if err != nil {
		return fmt.Errorf("analyzer: create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("analyzer: http call failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analyzer: unhealthy status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint() string {
	endpoint := c.baseURL + c.path
	if c.expertMode {
		endpoint += "?expert_mode=true"
	}
	return endpoint
}

// buildMultipart 构造 multipart 请求体
// 文件分片显式携带图片 MIME 类型，服务端按 content type 校验
func buildMultipart(filename, mimeType string, data []byte) (io.Reader, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("analyzer: file data must not be empty")
	}
	if filename == "" {
		filename = "upload"
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, escapeQuotes(filename)))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("analyzer: create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("analyzer: write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("analyzer: close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
