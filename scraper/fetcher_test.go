package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gogs/chardet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/use-agent/pricerank/engine"
	"github.com/use-agent/pricerank/models"
)

var h1 = MustCompile("h1")

func serve(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func headerText(t *testing.T, doc Document) string {
	t.Helper()
	n, ok := doc.First(h1)
	require.True(t, ok)
	return n.Text()
}

func TestFetcher_Encodings(t *testing.T) {
	t.Parallel()

	sjis, err := japanese.ShiftJIS.NewEncoder().String("<html><body><h1>価格比較カメラ</h1></body></html>")
	require.NoError(t, err)
	undeclared, err := japanese.ShiftJIS.NewEncoder().String(
		"<html><body><h1>価格比較カメラ</h1><p>この商品の最安価格は、全国のショップの販売価格を比較して表示しています。" +
			"送料や在庫状況はショップによって異なりますので、購入前に必ずご確認ください。</p></body></html>")
	require.NoError(t, err)
	eucjp, err := japanese.EUCJP.NewEncoder().String(
		`<html><head><meta charset="euc-jp"></head><body><h1>価格比較カメラ</h1></body></html>`)
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{"shift_jis from header", "text/html; charset=Shift_JIS", []byte(sjis)},
		{"euc-jp from meta", "text/html", []byte(eucjp)},
		{"undeclared shift_jis", "text/html", []byte(undeclared)},
		{"utf-8 undeclared", "text/html", []byte("<html><body><h1>価格比較カメラ</h1></body></html>")},
		{"utf-8 with bom", "text/html", append([]byte{0xEF, 0xBB, 0xBF}, "<h1>価格比較カメラ</h1>"...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.contentType, tt.body)
			f := NewFetcher(engine.NewHTTPEngineWithClient(srv.Client()), 5*time.Second)

			doc, err := f.Fetch(context.Background(), srv.URL, nil)
			require.NoError(t, err)
			assert.Equal(t, "価格比較カメラ", headerText(t, doc))
		})
	}
}

func TestResolveEncoding_LowConfidenceSniff(t *testing.T) {
	orig := detectCharset
	t.Cleanup(func() { detectCharset = orig })

	body := []byte("<html><body><h1>caf\xe9</h1></body></html>")

	tests := []struct {
		name   string
		result *chardet.Result
		err    error
	}{
		{"below threshold", &chardet.Result{Charset: "Shift_JIS", Confidence: minConfidence - 1}, nil},
		{"unknown charset", &chardet.Result{Charset: "x-no-such-charset", Confidence: 100}, nil},
		{"detector error", nil, chardet.NotDetectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detectCharset = func([]byte) (*chardet.Result, error) { return tt.result, tt.err }

			text, name, err := decode(body, "text/html")
			require.NoError(t, err)
			assert.Equal(t, "windows-1252", name)
			assert.Contains(t, text, "<h1>café</h1>")
		})
	}
}

func TestFetcher_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(engine.NewHTTPEngineWithClient(srv.Client()), 5*time.Second)
	doc, err := f.Fetch(context.Background(), srv.URL, nil)

	assert.Nil(t, doc)
	assert.Equal(t, models.ErrCodeFetch, models.CodeOf(err))
	var statusErr *engine.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestFetcher_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewFetcher(engine.NewHTTPEngineWithClient(srv.Client()), 50*time.Millisecond)
	doc, err := f.Fetch(context.Background(), srv.URL, nil)

	assert.Nil(t, doc)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.True(t, models.IsFetchError(err))
}

type stubEngine struct {
	res *engine.FetchResult
	err error
}

func (s stubEngine) Name() string { return "stub" }

func (s stubEngine) Fetch(context.Context, *engine.FetchRequest) (*engine.FetchResult, error) {
	return s.res, s.err
}

func TestFetcher_CategorizesEngineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", errors.New("connection refused"), models.ErrCodeFetch},
		{"too large", engine.ErrBodyTooLarge, models.ErrCodeFetch},
		{"deadline", context.DeadlineExceeded, models.ErrCodeTimeout},
		{"canceled", context.Canceled, models.ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(stubEngine{err: tt.err}, 0)
			_, err := f.Fetch(context.Background(), "http://example.invalid/", nil)
			assert.Equal(t, tt.want, models.CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFetcher_StubEngine(t *testing.T) {
	f := NewFetcher(stubEngine{res: &engine.FetchResult{Body: []byte("<h1>x</h1>")}}, 0)

	doc, err := f.Fetch(context.Background(), "http://example.invalid/", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", headerText(t, doc))
}
