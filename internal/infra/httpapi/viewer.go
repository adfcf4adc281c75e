package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"cohort_report_service/internal/domain/cohort"
)

type contextKey string

const viewerKey contextKey = "viewer"

// Viewer identity headers, set by the host platform's authenticating reverse
// proxy. This service never authenticates users itself.
const (
	HeaderViewerID    = "X-Viewer-Id"
	HeaderViewerAdmin = "X-Viewer-Admin"
)

// WithViewer extracts the viewer identity from trusted headers and rejects
// requests without one.
func WithViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(HeaderViewerID), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "missing viewer identity", http.StatusUnauthorized)
			return
		}
		admin := r.Header.Get(HeaderViewerAdmin)
		viewer := cohort.Viewer{
			UserID:  id,
			IsAdmin: admin == "1" || admin == "true",
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerKey, viewer)))
	})
}

// ViewerFrom returns the viewer stored by WithViewer.
func ViewerFrom(ctx context.Context) (cohort.Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(cohort.Viewer)
	return v, ok
}
