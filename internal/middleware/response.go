package middleware

import (
	"net/http"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
