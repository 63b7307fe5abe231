package ahrsweb

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter serves room at /ahrsweb, a status report at /health and, if res
// is not empty, the static files in directory res at /.
func NewRouter(room *Room, res string) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/ahrsweb", room)
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Status  string `json:"status"`
			Clients int    `json:"clients"`
		}{"ok", room.Clients()})
	}).Methods("GET")
	if res != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(res)))
	}
	return r
}
