package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	xhttp "ArbBoard/pkg/http"
	applogger "ArbBoard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinePayload = `/*<script>location.href='//sina.com';</script>*/
var _J020240110=([{"d":"2024-01-03","o":"2580.000","h":"2600.000","l":"2550.000","c":"2590.500","v":"10000","p":"1","s":"2"},` +
	`{"d":"2024-01-02","o":"2570.000","h":"2590.000","l":"2540.000","c":"2575.000","v":"9000","p":"1","s":"2"},` +
	`{"d":"2024-01-03","o":"2580.000","h":"2600.000","l":"2550.000","c":"2591.000","v":"10001","p":"1","s":"2"},` +
	`{"d":"bad-date","o":"1","h":"1","l":"1","c":"1","v":"1","p":"1","s":"2"}]);`

func fixedNow() time.Time { return time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC) }

func newTestSina(t *testing.T, h http.HandlerFunc, opts ...SinaOption) *SinaSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]SinaOption{WithSinaClock(fixedNow), WithSinaLimiter(1000, 1000)}, opts...)
	return NewSinaSource(srv.URL+"/futures/api/jsonp.php", xhttp.NewClient(xhttp.WithTimeout(time.Second)), applogger.Nop(), opts...)
}

func TestSinaFetchParsesKline(t *testing.T) {
	var gotPath, gotSymbol, gotType string
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSymbol = r.URL.Query().Get("symbol")
		gotType = r.URL.Query().Get("type")
		fmt.Fprint(w, klinePayload)
	})

	series, err := src.Fetch(context.Background(), "J0")
	require.NoError(t, err)

	assert.Equal(t, "/futures/api/jsonp.php/var _J020240110=/InnerFuturesNewService.getDailyKLine", gotPath)
	assert.Equal(t, "J0", gotSymbol)
	assert.Equal(t, "2024_01_10", gotType)

	assert.Equal(t, "J0", series.Symbol)
	require.Len(t, series.Points, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series.Points[0].Date)
	assert.Equal(t, 2575.0, series.Points[0].Price)
	assert.Equal(t, 2591.0, series.Points[1].Price, "duplicate date keeps the last row")
}

func TestSinaFetchBarsCarriesOHLCV(t *testing.T) {
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinePayload)
	})
	bars, err := src.FetchBars(context.Background(), "J0")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2570.0, bars[0].Open)
	assert.Equal(t, 2590.0, bars[0].High)
	assert.Equal(t, 2540.0, bars[0].Low)
	assert.Equal(t, 9000.0, bars[0].Volume)
}

func TestSinaUnknownSymbolIsEmpty(t *testing.T) {
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "var _XX20240110=(null);")
	})
	series, err := src.Fetch(context.Background(), "XX")
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestSinaHTTPErrorIsUnavailable(t *testing.T) {
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := src.Fetch(context.Background(), "J0")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestSinaGarbageIsUnavailable(t *testing.T) {
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	})
	_, err := src.Fetch(context.Background(), "J0")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestSinaBreakerOpens(t *testing.T) {
	var calls int32
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithSinaBreaker(2, time.Minute))

	for i := 0; i < 5; i++ {
		_, err := src.Fetch(context.Background(), "J0")
		assert.ErrorIs(t, err, ErrQuoteUnavailable)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSinaLimiterHonoursContext(t *testing.T) {
	src := newTestSina(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinePayload)
	}, WithSinaLimiter(0.001, 1))

	_, err := src.Fetch(context.Background(), "J0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.Fetch(ctx, "J0")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestParseJSONP(t *testing.T) {
	bars, err := parseJSONP([]byte(`var x=([]);`))
	require.NoError(t, err)
	assert.Empty(t, bars)

	_, err = parseJSONP([]byte(`var x=([{"d":"2024-01-02","c":`))
	assert.Error(t, err)

	bars, err = parseJSONP([]byte(strings.TrimSpace(`var x=([{"d":"2024-01-02","o":"1","h":"1","l":"1","c":"3.5","v":"2"}]);`)))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "3.5", bars[0].C.String())
}
