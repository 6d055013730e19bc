package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crestline-am/docintake/internal/core/domain"
	"github.com/crestline-am/docintake/internal/core/ports"
	"github.com/crestline-am/docintake/internal/observability/metrics"
)

const serviceName = "intake-api"

// Options tunes the HTTP surface. Zero values disable the respective knob.
type Options struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	outcomes ports.OutcomeReader
	registry ports.AssetRegistry
	importer ports.RegistryImporter
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
	opts     Options
}

func NewRouter(
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	outcomes ports.OutcomeReader,
	registry ports.AssetRegistry,
	importer ports.RegistryImporter,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	opts Options,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 256 << 20
	}
	return &Router{
		storage:  storage,
		queue:    queue,
		outcomes: outcomes,
		registry: registry,
		importer: importer,
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/emails", rt.submitEmail)
	mux.HandleFunc("/v1/outcomes", rt.listReviewQueue)
	mux.HandleFunc("/v1/outcomes/", rt.getOutcome)
	mux.HandleFunc("/v1/assets/", rt.getAsset)
	mux.HandleFunc("/v1/assets/import", rt.importAssets)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.opts.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, 50*time.Millisecond)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitEmail stages every attachment to the blob store and enqueues one
// envelope for the workers. Attachment bytes never ride the queue.
func (rt *Router) submitEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	senderEmail := domain.NormalizeSenderEmail(r.FormValue("sender_email"))
	if senderEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sender_email is required"})
		return
	}

	category := domain.AssetCategory(strings.ToLower(strings.TrimSpace(r.FormValue("known_category"))))
	if category != "" && !category.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown category %q", category)})
		return
	}

	date := time.Now().UTC()
	if raw := strings.TrimSpace(r.FormValue("date")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be RFC 3339"})
			return
		}
		date = parsed.UTC()
	}

	files := r.MultipartForm.File["attachments"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one attachment is required"})
		return
	}

	emailID := uuid.NewString()
	staged := make([]domain.StagedFile, 0, len(files))
	for i, fh := range files {
		src, err := fh.Open()
		if err != nil {
			rt.discardStaged(r, staged)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read attachment %q", fh.Filename)})
			return
		}

		key := fmt.Sprintf("emails/%s/%02d-%s", emailID, i, storageKeyName(fh.Filename))
		err = rt.storage.Save(r.Context(), key, src)
		src.Close()
		if err != nil {
			rt.discardStaged(r, staged)
			rt.writeError(w, r, "stage attachment", err)
			return
		}
		staged = append(staged, domain.StagedFile{Filename: fh.Filename, StorageKey: key})
	}

	envelope := domain.EmailEnvelope{
		EmailID: emailID,
		Context: domain.EmailContext{
			SenderEmail: senderEmail,
			SenderName:  strings.TrimSpace(r.FormValue("sender_name")),
			Subject:     r.FormValue("subject"),
			Body:        r.FormValue("body"),
			Date:        date,
		},
		Attachments: staged,
		KnownAsset:  strings.TrimSpace(r.FormValue("known_asset_id")),
		Category:    category,
	}

	if err := rt.queue.PublishEmailReceived(r.Context(), envelope); err != nil {
		rt.discardStaged(r, staged)
		rt.writeError(w, r, "enqueue email", err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordEmailAccepted(serviceName, len(staged))
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"email_id":    emailID,
		"attachments": len(staged),
	})
}

func (rt *Router) getOutcome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/outcomes/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "outcome id is required"})
		return
	}

	outcome, err := rt.outcomes.GetOutcome(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get outcome", err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) getAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/assets/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "asset id is required"})
		return
	}

	asset, err := rt.registry.GetAsset(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// listReviewQueue returns low-confidence and quarantined outcomes awaiting a
// human decision.
func (rt *Router) listReviewQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	outcomes, err := rt.outcomes.ListForReview(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, "list review queue", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

func (rt *Router) importAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	imported, err := rt.importer.ImportWorkbook(r.Context(), file)
	if rt.metrics != nil {
		rt.metrics.RecordRegistryImport(serviceName, imported, err)
	}
	if err != nil {
		rt.writeError(w, r, "import workbook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error(operation+" failed",
			"request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (rt *Router) discardStaged(r *http.Request, staged []domain.StagedFile) {
	for _, f := range staged {
		if err := rt.storage.Delete(r.Context(), f.StorageKey); err != nil {
			rt.logger.Warn("discard staged attachment failed", "key", f.StorageKey, "error", err)
		}
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// storageKeyName flattens a client-supplied filename into a single safe path
// segment for the staging key.
func storageKeyName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	cleaned := unsafeKeyChars.ReplaceAllString(base, "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "attachment"
	}
	return cleaned
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
