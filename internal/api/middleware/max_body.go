package middleware

import (
	"net/http"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api"
)

// MaxBodyBytes caps request body size. Oversized uploads get a 413
// up front when Content-Length gives them away, and are cut off
// mid-read otherwise.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit && r.ContentLength != -1 {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
