package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"multimodalgen/internal/domain"
	"multimodalgen/internal/infrastructure/config"
	"multimodalgen/internal/presentation/message"

	"github.com/google/uuid"
)

// Generator は、生成リクエストを処理するサービスのインターフェースです
type Generator interface {
	Generate(ctx context.Context, request domain.GenerationRequest) (*domain.GenerationResult, error)
	ModelNames() (string, string)
}

// Handler は、Web UIとJSON APIのHTTPハンドラーです
type Handler struct {
	generator      Generator
	renderer       *Renderer
	defaultPrompt  string
	maxUploadBytes int64
}

// NewHandler は新しいHandlerインスタンスを作成します
func NewHandler(generator Generator, renderer *Renderer, serverConfig *config.ServerConfig, defaultPrompt string) *Handler {
	if renderer == nil {
		renderer = NewRenderer()
	}
	maxUploadBytes := int64(20 << 20)
	if serverConfig != nil && serverConfig.MaxUploadBytes > 0 {
		maxUploadBytes = serverConfig.MaxUploadBytes
	}

	return &Handler{
		generator:      generator,
		renderer:       renderer,
		defaultPrompt:  defaultPrompt,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes は、ハンドラーをmuxに登録します
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /generate", h.handleGenerate)
	mux.HandleFunc("POST /api/generate", h.handleAPIGenerate)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

// Routes は、ログとパニック回復を組み込んだhttp.Handlerを返します
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return logRequests(recoverPanic(mux))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.newPageData(h.defaultPrompt, domain.DefaultGenerationParameters()))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sub := h.parseSubmission(w, r)
	page := h.newPageData(sub.prompt, sub.parameters)
	page.Uploaded = NewUploadedPreview(sub.image)

	result, err := h.generate(r.Context(), sub)
	view := NewResultView(result, err)
	page.Result = &view

	h.render(w, message.HTTPStatus(err), page)
}

// apiResponse は、POST /api/generate の応答です
type apiResponse struct {
	Text        string    `json:"text,omitempty"`
	Image       string    `json:"image,omitempty"` // data URI
	ImageURL    string    `json:"image_url,omitempty"`
	ImagePrompt string    `json:"image_prompt,omitempty"`
	TextModel   string    `json:"text_model,omitempty"`
	ImageModel  string    `json:"image_model,omitempty"`
	Error       *apiError `json:"error,omitempty"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (h *Handler) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	sub := h.parseSubmission(w, r)
	result, err := h.generate(r.Context(), sub)

	var resp apiResponse
	if err != nil {
		msg := message.FormatError(err)
		resp.Text = msg.PartialText
		resp.Error = &apiError{Title: msg.Title, Detail: msg.Detail}
	} else {
		resp = apiResponse{
			Text:        result.Text,
			ImageURL:    result.Image.URL,
			ImagePrompt: result.ImagePrompt,
			TextModel:   result.TextModel,
			ImageModel:  result.ImageModel,
		}
		if len(result.Image.Data) > 0 {
			resp.Image = string(imageSource(result.Image))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(message.HTTPStatus(err))
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("JSON応答の書き込みに失敗: %v", err)
	}
}

// submission は、フォームから読み取った1回分の入力です
type submission struct {
	prompt     string
	parameters domain.GenerationParameters
	image      domain.UploadedImage
	err        error
}

// parseSubmission は、multipartフォームを読み取って検証します
// 検証に失敗した場合も、再表示用に読み取れた値は返します
func (h *Handler) parseSubmission(w http.ResponseWriter, r *http.Request) submission {
	sub := submission{parameters: domain.DefaultGenerationParameters()}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr), strings.Contains(err.Error(), "request body too large"):
			sub.err = domain.NewValidationError("image", fmt.Errorf("%w（上限 %d MB）", domain.ErrImageTooLarge, h.maxUploadBytes>>20))
		case errors.Is(err, http.ErrNotMultipart):
			sub.err = domain.NewValidationError("image", domain.ErrImageRequired)
		default:
			sub.err = domain.NewValidationError("", fmt.Errorf("フォームの読み取りに失敗: %w", err))
		}
		return sub
	}
	defer r.MultipartForm.RemoveAll()

	sub.prompt = r.FormValue("prompt")

	params, err := domain.ParseGenerationParameters(r.FormValue("creativity"), r.FormValue("quality"))
	if err != nil {
		sub.err = err
		return sub
	}
	sub.parameters = params

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			sub.err = domain.NewValidationError("image", domain.ErrImageRequired)
		} else {
			sub.err = domain.NewValidationError("image", fmt.Errorf("画像の読み取りに失敗: %w", err))
		}
		return sub
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		sub.err = domain.NewValidationError("image", fmt.Errorf("画像の読み取りに失敗: %w", err))
		return sub
	}

	image, err := domain.NewUploadedImage(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		sub.err = err
		return sub
	}
	sub.image = image

	return sub
}

// generate は、検証済みの入力で生成を1回実行します
func (h *Handler) generate(ctx context.Context, sub submission) (*domain.GenerationResult, error) {
	if sub.err != nil {
		log.Printf("入力の検証に失敗: %v", sub.err)
		return nil, sub.err
	}

	request, err := domain.NewGenerationRequest(sub.image, sub.prompt, sub.parameters)
	if err != nil {
		return nil, err
	}
	return h.generator.Generate(ctx, request)
}

func (h *Handler) newPageData(prompt string, params domain.GenerationParameters) PageData {
	textModel, imageModel := h.generator.ModelNames()
	return NewPageData(prompt, params, textModel, imageModel)
}

func (h *Handler) render(w http.ResponseWriter, status int, page PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page); err != nil {
		log.Printf("ページの描画に失敗: %v", err)
		http.Error(w, "ページを表示できませんでした", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// statusRecorder は、ログ出力用にステータスコードを記録します
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests は、リクエストごとにIDを振ってアクセスログを出力します
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Printf("[%s] %s %s -> %d (%v)", requestID, r.Method, r.URL.Path, rec.status, time.Since(started))
	})
}

// recoverPanic は、ハンドラー内のパニックを500エラーに変換します
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("リクエスト処理中にパニックが発生しました: %v", rec)
				http.Error(w, "内部エラーが発生しました", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
