package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/shouni/go-link-checker/internal/logx"
	"github.com/shouni/go-link-checker/internal/pipeline"
	"github.com/shouni/go-link-checker/pkg/checker"
	"github.com/shouni/go-link-checker/pkg/report"
)

const (
	maxFormBytes = 1 << 20 // 1MB

	msgNoURLs         = "No URLs provided"
	msgNotFound       = "Not found"
	msgMethodNotAllow = "Method not allowed"
	msgTooLarge       = "Request body too large"
	msgInvalidForm    = "Invalid form data"
	msgInternalError  = "Internal server error"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgNotFound)
}

// parseForm は multipart/form-data と application/x-www-form-urlencoded の両方を解析します。
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}

// checkLinks はフォームの urls フィールドを空白で分割してチェックし、CSVを添付ファイルとして返します。
func (h *Handler) checkLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
		return
	}

	log := logx.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := parseForm(r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", tooLarge.Limit).Msg("リクエストボディが大きすぎます")
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		log.Warn().Err(err).Msg("フォームの解析に失敗しました")
		writeError(w, http.StatusBadRequest, msgInvalidForm)
		return
	}
	urls := pipeline.ParseURLs(r.PostFormValue("urls"))
	log.Info().Int("count", len(urls)).Msg("URLチェックのリクエストを受け付けました")

	res, err := pipeline.Run(r.Context(), h.checker, urls)
	if errors.Is(err, checker.ErrNoInput) {
		writeError(w, http.StatusBadRequest, msgNoURLs)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("サーバーエラー")
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	w.Header().Set("Content-Type", report.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.CSV)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.CSV)
}
