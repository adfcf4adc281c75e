package httpapi

import (
	"net/http"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/domain/cohort"
	"cohort_report_service/internal/domain/mail"
	"cohort_report_service/internal/infra/config"

	"github.com/go-chi/chi/v5"
)

// Server is the web adapter: the interactive report page and the on-demand
// "email me this report" action. It holds no report logic of its own; the
// scope and report services do the work.
type Server struct {
	Config     *config.AppConfig
	Scope      *app.ScopeService
	Reports    *app.ReportService
	CohortRepo cohort.Repository
	Mailer     mail.Client
}

func NewServer(cfg *config.AppConfig, scope *app.ScopeService, reports *app.ReportService, cohortRepo cohort.Repository, mailer mail.Client) *Server {
	return &Server{
		Config:     cfg,
		Scope:      scope,
		Reports:    reports,
		CohortRepo: cohortRepo,
		Mailer:     mailer,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/report", func(rep chi.Router) {
		rep.Use(WithViewer)
		rep.Get("/", s.ShowReport)
		rep.Post("/email", s.EmailReport)
	})

	return r
}
