// Package gotenberg talks to the Gotenberg headless rendering engine. Only the
// Chromium HTML route is used: an index.html plus assets go in, a PDF comes out.
package gotenberg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"report-service-go/internal/pkg/metrics"
	"report-service-go/internal/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const (
	convertHTMLPath = "/forms/chromium/convert/html"
	healthPath      = "/health"

	// TraceHeader carries the request correlation id into the engine's logs.
	TraceHeader = "Gotenberg-Trace"
)

// ErrEngineUnavailable means the engine could not be reached at all.
var ErrEngineUnavailable = errors.New("rendering engine unavailable")

// StatusError is a non-2xx answer of the engine.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rendering engine returned status %d: %s", e.Code, e.Body)
}

// Converter is anything that prints HTML to PDF through the engine.
type Converter interface {
	ConvertHTML(ctx context.Context, req HTMLRequest) ([]byte, error)
	HealthCheck(ctx context.Context) error
	Close()
}

// PageOptions are the Chromium print options, lengths in inches.
type PageOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	PrintBackground bool
}

// A4 is A4 portrait with 10mm top, 20mm bottom and 15mm side margins.
var A4 = PageOptions{
	PaperWidth:      8.27,
	PaperHeight:     11.7,
	MarginTop:       0.3937,
	MarginBottom:    0.7874,
	MarginLeft:      0.5906,
	MarginRight:     0.5906,
	PrintBackground: true,
}

// HTMLRequest is one conversion. Assets are extra files referenced from the
// markup by name, e.g. <img src="logo.png">.
type HTMLRequest struct {
	HTML    string
	Footer  string
	Assets  map[string][]byte
	Page    PageOptions
	TraceID string
}

// Client is a plain HTTP client of the engine.
type Client struct {
	baseURL   string
	client    *http.Client
	transport *http.Transport
}

// NewClient creates a client with its own connection pool. timeout bounds a
// whole request including reading the PDF.
func NewClient(baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		WriteBufferSize:     64 * 1024,
		ReadBufferSize:      64 * 1024,
	}

	return &Client{
		baseURL:   baseURL,
		transport: transport,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// ConvertHTML prints req.HTML to PDF.
func (c *Client) ConvertHTML(ctx context.Context, req HTMLRequest) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "Gotenberg.ConvertHTML")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.EngineRequestDuration.WithLabelValues("convert").Observe(time.Since(start).Seconds())
	}()

	body, contentType, err := buildForm(req)
	if err != nil {
		return nil, err
	}
	tracing.AddAttributes(ctx,
		attribute.Int("engine.form_bytes", body.Len()),
		attribute.Int("engine.assets", len(req.Assets)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertHTMLPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if req.TraceID != "" {
		httpReq.Header.Set(TraceHeader, req.TraceID)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.EngineRequestsTotal.WithLabelValues("unavailable").Inc()
		tracing.RecordError(ctx, err)
		return nil, unavailable(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.EngineRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		err := &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
		tracing.RecordError(ctx, err)
		return nil, err
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.EngineRequestsTotal.WithLabelValues("read_error").Inc()
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to read engine response: %w", err)
	}

	metrics.EngineRequestsTotal.WithLabelValues("success").Inc()
	tracing.AddAttributes(ctx, attribute.Int("engine.pdf_bytes", len(pdf)))
	return pdf, nil
}

// HealthCheck asks the engine whether it can accept work.
func (c *Client) HealthCheck(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.EngineRequestDuration.WithLabelValues("health").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return unavailable(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: "health check failed"}
	}
	return nil
}

// Close drops idle connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// unavailable keeps context errors visible to errors.Is so callers can tell
// a timeout from a dead engine.
func unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, ctxErr)
	}
	return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
}

func buildForm(req HTMLRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := addFile(writer, "index.html", []byte(req.HTML)); err != nil {
		return nil, "", err
	}
	if req.Footer != "" {
		if err := addFile(writer, "footer.html", []byte(req.Footer)); err != nil {
			return nil, "", err
		}
	}

	names := make([]string, 0, len(req.Assets))
	for name := range req.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := addFile(writer, name, req.Assets[name]); err != nil {
			return nil, "", err
		}
	}

	page := req.Page
	if page.PaperWidth == 0 || page.PaperHeight == 0 {
		page = A4
	}
	fields := [][2]string{
		{"paperWidth", inches(page.PaperWidth)},
		{"paperHeight", inches(page.PaperHeight)},
		{"marginTop", inches(page.MarginTop)},
		{"marginBottom", inches(page.MarginBottom)},
		{"marginLeft", inches(page.MarginLeft)},
		{"marginRight", inches(page.MarginRight)},
		{"printBackground", strconv.FormatBool(page.PrintBackground)},
		{"preferCssPageSize", "false"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func addFile(w *multipart.Writer, name string, data []byte) error {
	part, err := w.CreateFormFile("files", name)
	if err != nil {
		return fmt.Errorf("failed to create form file %s: %w", name, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write form file %s: %w", name, err)
	}
	return nil
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
