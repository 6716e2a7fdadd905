package sweep

import (
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/serialscope/internal/httputil"
)

// AttachAdminRoutes serves the run state as JSON at /debug/sweep-state.
func (r *Runner) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("sweep-state", "current sweep progress and results (JSON)", func(w http.ResponseWriter, req *http.Request) {
		if httputil.MethodNotAllowed(w, req, http.MethodGet) {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, r.State())
	})
}
