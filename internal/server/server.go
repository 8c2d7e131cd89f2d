package server

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shouni/go-link-checker/internal/logx"
	"github.com/shouni/go-link-checker/internal/pipeline"
	"github.com/shouni/go-link-checker/pkg/checker"
)

const (
	ReadTimeout = 10 * time.Second
	// MinWriteTimeout は WriteTimeoutFor が返す最小値です。
	MinWriteTimeout = 120 * time.Second
	// writeSlack はCSVの書き出しとリクエストの受信に見込む時間です。
	writeSlack = 30 * time.Second
)

// WriteTimeoutFor は、同時実行数 concurrency で最大件数のバッチを処理し終えるまでの上限時間を返します。
// 各ワーカーは ceil(MaxURLs/concurrency) 件を順に処理し、1件あたり最大 FetchTimeout かかります。
func WriteTimeoutFor(concurrency int) time.Duration {
	if concurrency <= 0 {
		concurrency = checker.DefaultMaxConcurrency
	}
	rounds := (checker.MaxURLs + concurrency - 1) / concurrency
	return max(MinWriteTimeout, time.Duration(rounds)*checker.FetchTimeout+writeSlack)
}

//go:embed templates/index.html
var indexHTML []byte

// Handler は HTTP のルーティングとハンドラーを保持します。
type Handler struct {
	checker pipeline.BatchChecker
	logger  zerolog.Logger
}

// NewHandler は Handler を初期化します。
func NewHandler(checker pipeline.BatchChecker, logger zerolog.Logger) *Handler {
	return &Handler{checker: checker, logger: logger}
}

// Routes はミドルウェアを適用した http.Handler を返します。
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("/check_links", h.checkLinks)
	mux.HandleFunc("/", h.notFound)

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = recoveryMiddleware(handler)
	handler = requestLoggerMiddleware(h.logger, handler)
	return handler
}

// NewHTTPServer は addr で待ち受ける http.Server を生成します。
// 書き込みタイムアウトはチェッカーの同時実行数 concurrency から算出します。
func NewHTTPServer(addr string, h *Handler, concurrency int) *http.Server {
	writeTimeout := WriteTimeoutFor(concurrency)
	srv := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: writeTimeout,
	}
	h.logger.Info().Str("addr", addr).Dur("write_timeout", writeTimeout).Msg("HTTPサーバーを初期化しました")
	return srv
}

// responseRecorder はステータスコードと書き込みバイト数を記録します。
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func requestLoggerMiddleware(base zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		ctx := logx.With(base.WithContext(r.Context()), map[string]any{
			"request_id":  reqID,
			"http.method": r.Method,
			"http.path":   r.URL.Path,
			"remote_addr": r.RemoteAddr,
		})
		r = r.WithContext(ctx)

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		lvl := zerolog.InfoLevel
		if rec.status >= 500 {
			lvl = zerolog.ErrorLevel
		} else if rec.status >= 400 {
			lvl = zerolog.WarnLevel
		}
		logx.FromContext(ctx).WithLevel(lvl).
			Int("status", rec.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", rec.bytes).
			Msg("request")
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logx.FromContext(r.Context()).Error().Interface("panic", v).Msg("パニックから復帰しました")
				writeError(w, http.StatusInternalServerError, msgInternalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Add("Vary", "Origin")
		next.ServeHTTP(w, r)
	})
}
