// Package httpapi exposes the engine over HTTP with chi.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/directory"
	"medication-alerts/internal/models"
)

type Directory interface {
	Register(ctx context.Context, p models.Patient) error
	AddMedication(ctx context.Context, patientID string, med models.Medication) (int, error)
	Get(patientID string) (models.Patient, error)
	RecordDose(ctx context.Context, patientID string, index int) (*directory.DoseOutcome, error)
}

type Reporter interface {
	GenerateReport(ctx context.Context, patientID string, start, end time.Time) (*models.Report, error)
}

// ReadinessFunc returns failing dependencies keyed by name; empty means ready.
type ReadinessFunc func(ctx context.Context) map[string]string

type Options struct {
	Directory Directory
	Reporter  Reporter
	Ready     ReadinessFunc // nil means always ready
	Metrics   http.Handler  // mounted at /metrics when set
	Logger    logger.Logger
	Now       func() time.Time
}

func NewRouter(opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.WithFields(map[string]interface{}{"component": "httpapi"})
	h := &handlers{opts: opts, logger: log, errs: apperrors.NewErrorHandler(log)}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/ready", h.ready)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/patients", func(pr chi.Router) {
		pr.Post("/", h.registerPatient)
		pr.Get("/{patientID}", h.getPatient)
		pr.Post("/{patientID}/medications", h.addMedication)
		pr.Post("/{patientID}/medications/{index}/doses", h.recordDose)
		pr.Get("/{patientID}/adherence", h.adherenceReport)
	})

	return r
}
