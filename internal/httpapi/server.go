package httpapi

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ocrd/internal/common/fsutil"
	"ocrd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Health() types.HealthResponse
	Progress() types.ProgressSnapshot
	TriggerLoad() error
	RunOCR(ctx context.Context, req types.OCRRequest) (types.OCRResponse, error)
	ModelInfo() types.ModelInfoResponse
	OutputDir() string
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Health())
	})

	r.Get("/progress", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Progress())
	})

	r.Post("/load_model", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.TriggerLoad(); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// The load continues in the background; /progress reports how far along it is.
		writeJSON(w, types.LoadModelResponse{Status: "success", Message: "Model loaded successfully"})
	})

	r.Post("/ocr", handleOCR(svc))

	r.Get("/model_info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.ModelInfo())
	})

	r.Get("/outputs/{filename}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
			writeJSONError(w, http.StatusBadRequest, "invalid filename")
			return
		}
		full := filepath.Join(svc.OutputDir(), name)
		if !fsutil.PathExists(full) {
			writeJSONError(w, http.StatusNotFound, "file not found")
			return
		}
		http.ServeFile(w, r, full)
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Swagger UI is mounted only when built with -tags=swagger.
	MountSwagger(r)

	return r
}

func handleOCR(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "No image provided")
			return
		}
		defer file.Close()

		req := types.OCRRequest{
			PromptType: types.PromptType(r.FormValue("prompt_type")),
			BaseSize:   1024,
			ImageSize:  640,
			CropMode:   true,
		}
		if req.PromptType == "" {
			req.PromptType = types.PromptDocument
		}
		if v := r.FormValue("base_size"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "base_size must be an integer")
				return
			}
			req.BaseSize = n
		}
		if v := r.FormValue("image_size"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "image_size must be an integer")
				return
			}
			req.ImageSize = n
		}
		if v := r.FormValue("crop_mode"); v != "" {
			req.CropMode = strings.EqualFold(v, "true")
		}

		// The upload goes through a temp file so the engine can read it by path.
		tmp, err := os.CreateTemp("", "ocrd-upload-*.jpg")
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		if err := tmp.Close(); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		req.ImagePath = tmp.Name()

		lvl := requestLogLevel(r)
		if lvl >= LevelInfo {
			z := logger().Info().Str("prompt_type", string(req.PromptType))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("ocr start")
		}
		start := time.Now()
		resp, err := svc.RunOCR(r.Context(), req)
		recordOCRRequest(string(req.PromptType), err)
		if err != nil {
			status := http.StatusInternalServerError
			if he, ok := err.(HTTPError); ok {
				status = he.StatusCode()
			}
			writeJSONError(w, status, err.Error())
			if lvl >= LevelInfo {
				logger().Info().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("ocr end")
			}
			return
		}
		writeJSON(w, resp)
		if lvl >= LevelInfo {
			logger().Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("ocr end")
		}
	}
}
