package pdf

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf16"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/pkg/assets"
	"report-service-go/internal/pkg/drawing"
	"report-service-go/internal/pkg/enginepool"
	"report-service-go/internal/pkg/gotenberg"
	"report-service-go/internal/pkg/pdfcheck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// engineStub answers the engine routes and keeps the uploaded files.
type engineStub struct {
	mu     sync.Mutex
	files  map[string]string
	pdf    []byte
	status int
	delay  time.Duration
}

func (e *engineStub) uploaded() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.files
}

func (e *engineStub) serve(t *testing.T) *enginepool.Pool {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"up"}`))
	})
	mux.HandleFunc("/forms/chromium/convert/html", func(w http.ResponseWriter, r *http.Request) {
		if e.delay > 0 {
			select {
			case <-time.After(e.delay):
			case <-r.Context().Done():
				return
			}
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files := map[string]string{}
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			f.Close()
			files[fh.Filename] = string(data)
		}
		e.mu.Lock()
		e.files = files
		e.mu.Unlock()

		if e.status != 0 {
			w.WriteHeader(e.status)
			return
		}
		_, _ = w.Write(e.pdf)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	pool := enginepool.NewPool(enginepool.Config{MaxSessions: 2, AcquireTimeout: time.Second}, zap.NewNop(),
		func(ctx context.Context) (gotenberg.Converter, error) {
			return gotenberg.NewClient(srv.URL, 5*time.Second), nil
		})
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func writeLogo(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	for x := 0; x < 60; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestPrimaryRenderer_UploadsMarkupAndAssets(t *testing.T) {
	stub := &engineStub{pdf: a4PDF(t, "printed")}
	pool := stub.serve(t)

	loader := assets.NewLoader(time.Minute)
	defer loader.Close()

	r := NewPrimaryRenderer(pool,
		WithPrimaryAssets(loader),
		WithPrimaryBranding(document.Branding{DefaultLogo: writeLogo(t)}),
		WithPrimaryClock(func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }),
	)
	assert.Equal(t, BackendPrimary, r.Backend())

	out, err := r.Render(context.Background(), labConfig(), labContent())
	require.NoError(t, err)
	assert.Equal(t, stub.pdf, out)

	files := stub.uploaded()
	html := files["index.html"]
	assert.Contains(t, html, "<td>Strength</td>")
	assert.Contains(t, html, "All clear")
	assert.Contains(t, html, "Eastern Home Industries")
	assert.Contains(t, html, `src="logo.png"`)
	assert.Contains(t, html, `src="qr.png"`)
	assert.Contains(t, html, "Generated: 2024-03-05 14:30")
	assert.Contains(t, files, "footer.html")
	assert.True(t, strings.HasPrefix(files["logo.png"], "\x89PNG"))
	assert.True(t, strings.HasPrefix(files["qr.png"], "\x89PNG"))

	assert.Equal(t, 1, pool.Stats().IdleSessions, "session returned to the pool")
}

func TestPrimaryRenderer_MissingLogoUsesTextMark(t *testing.T) {
	stub := &engineStub{pdf: a4PDF(t, "printed")}
	pool := stub.serve(t)
	loader := assets.NewLoader(time.Minute)
	defer loader.Close()

	r := NewPrimaryRenderer(pool,
		WithPrimaryAssets(loader),
		WithPrimaryBranding(document.Branding{DefaultLogo: filepath.Join(t.TempDir(), "missing.png")}),
	)
	_, err := r.Render(context.Background(), labConfig(), labContent())
	require.NoError(t, err)

	files := stub.uploaded()
	assert.NotContains(t, files, "logo.png")
	assert.Contains(t, files["index.html"], `<div class="text-mark">EHI</div>`)
}

func TestPrimaryRenderer_EngineFailure(t *testing.T) {
	stub := &engineStub{status: http.StatusInternalServerError}
	pool := stub.serve(t)

	_, err := NewPrimaryRenderer(pool).Render(context.Background(), labConfig(), labContent())
	var statusErr *gotenberg.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 0, pool.Stats().ActiveSessions)
	assert.Equal(t, 0, pool.Stats().IdleSessions, "failed session is not reused")
}

func TestPrimaryRenderer_Timeout(t *testing.T) {
	stub := &engineStub{pdf: a4PDF(t, "late"), delay: time.Second}
	pool := stub.serve(t)

	start := time.Now()
	_, err := NewPrimaryRenderer(pool, WithRenderTimeout(50*time.Millisecond)).
		Render(context.Background(), labConfig(), labContent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, 0, pool.Stats().ActiveSessions)
}

func TestFallbackRenderer_ProducesA4(t *testing.T) {
	r := NewFallbackRenderer(drawing.New(drawing.WithCompression(false)))
	assert.Equal(t, BackendFallback, r.Backend())

	out, err := r.Render(context.Background(), labConfig(), labContent())
	require.NoError(t, err)

	info, err := pdfcheck.Verify(out)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
	assert.True(t, info.IsA4())
	assert.Contains(t, string(out), drawnText("Strength"))
}

// drawnText is s as the fallback canvas encodes it in an uncompressed
// content stream.
func drawnText(s string) string {
	var b strings.Builder
	for _, u := range utf16.Encode([]rune(s)) {
		b.WriteByte(byte(u >> 8))
		b.WriteByte(byte(u))
	}
	return b.String()
}

func nonLatinContent() document.Content {
	content := labContent()
	content.Sections = document.Sections{
		&document.TextSection{Title: "Summary", Text: "Moisture ≤ 8% – shipment cleared"},
		&document.FormSection{Title: "Material Details", Fields: []document.Field{
			{Key: "supplierName", Value: document.String("Crème Textiles Łódź")},
		}},
		&document.ParametersSection{Title: "Testing Parameters", Parameters: []document.ParameterRow{
			{TestName: "Moisture", Standard: "≤ 8.5%", Tolerance: "± 0.5", Result: "7.9%"},
		}, Remarks: "Freight ₹ 1,200 per bale"},
	}
	return content
}

func TestPrimaryRenderer_NonLatinText(t *testing.T) {
	stub := &engineStub{pdf: a4PDF(t, "printed")}
	pool := stub.serve(t)

	_, err := NewPrimaryRenderer(pool).Render(context.Background(), labConfig(), nonLatinContent())
	require.NoError(t, err)

	html := stub.uploaded()["index.html"]
	assert.Contains(t, html, "Moisture ≤ 8% – shipment cleared")
	assert.Contains(t, html, "Crème Textiles Łódź")
	assert.Contains(t, html, "<td>≤ 8.5%</td>")
	assert.Contains(t, html, "Freight ₹ 1,200 per bale")
}

func TestGenerateBatch_NonLatinTextOnFallback(t *testing.T) {
	g := NewGenerator(nil, NewFallbackRenderer(drawing.New(drawing.WithCompression(false))))

	reqs := []Request{
		{Config: labConfig(), Content: nonLatinContent()},
		{Config: labConfig(), Content: labContent()},
	}
	results := g.GenerateBatch(context.Background(), reqs, 2)

	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, BackendFallback, r.Result.Backend)
	}
	assert.Contains(t, string(results[0].Result.PDF), drawnText("Moisture ≤ 8% – shipment cleared"))
}

func TestFallbackRenderer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFallbackRenderer(drawing.New()).Render(ctx, labConfig(), labContent())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerator_EndToEndFallbackWhenEngineDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	pool := enginepool.NewPool(enginepool.DefaultConfig(), zap.NewNop(), func(ctx context.Context) (gotenberg.Converter, error) {
		return gotenberg.NewClient(url, time.Second), nil
	})
	defer pool.Close()

	g := NewGenerator(NewPrimaryRenderer(pool), NewFallbackRenderer(drawing.New()))
	res, err := g.Generate(context.Background(), labConfig(), labContent())
	require.NoError(t, err)

	assert.Equal(t, BackendFallback, res.Backend)
	assert.ErrorIs(t, res.PrimaryErr, gotenberg.ErrEngineUnavailable)
	assert.Equal(t, 1, res.Pages)
}
