package httpclient

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"EncounterSync/internal/interfaces"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// 连续失败达到该次数后熔断，熔断持续 breakerTimeout 后半开探测
const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// NewHTTPClient 通用HTTP客户端构建方法（支持代理、超时、自动解压）
func NewHTTPClient(proxy string, timeoutSec int, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  false,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// 配置代理
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", proxy).Info("HTTP客户端已配置代理")
		}
	}

	return &http.Client{
		Timeout:   time.Duration(timeoutSec) * time.Second,
		Transport: &compressedTransport{transport: transport, logger: logger},
	}
}

// StatusError 非 2xx 响应
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("请求 %s 返回状态码 %d: %s", e.URL, e.Code, e.Body)
}

// Unwrap 5xx 与 429 视为上游不可用
func (e *StatusError) Unwrap() error {
	if e.Code >= 500 || e.Code == http.StatusTooManyRequests {
		return interfaces.ErrUpstreamUnavailable
	}
	return nil
}

// Client 带熔断的 JSON 客户端，每个外部平台一个实例
type Client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *logrus.Logger
}

func New(name, proxy string, timeoutSec int, logger *logrus.Logger) *Client {
	c := &Client{
		name:   name,
		http:   NewHTTPClient(proxy, timeoutSec, logger),
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    name,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// 4xx 是请求本身的问题，不计入熔断
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("熔断器状态变化")
		},
	})
	return c
}

// HTTP 底层客户端（oauth2 取 token 时复用同一代理配置）
func (c *Client) HTTP() *http.Client { return c.http }

// State 熔断器当前状态
func (c *Client) State() string { return c.breaker.State().String() }

// GetJSON GET 请求并把响应体解析到 out
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out interface{}) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, rawURL, header)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s 已熔断: %w", c.name, interfaces.ErrUpstreamUnavailable)
		}
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析 %s 响应失败: %v: %w", c.name, err, interfaces.ErrMalformedResponse)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %v: %w", c.name, err, interfaces.ErrUpstreamUnavailable)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Errorf("关闭%s响应体失败: %v", c.name, err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 响应失败: %v: %w", c.name, err, interfaces.ErrUpstreamUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{URL: req.URL.Path, Code: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

type compressedTransport struct {
	transport http.RoundTripper
	logger    *logrus.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Add("Accept-Encoding", "gzip")
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// 处理gzip解压
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{Reader: gzReader, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}

	return resp, nil
}

// gzipReadCloser 关闭时同时关闭解压 reader 与原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		return err
	}
	return g.closer.Close()
}
