package middleware

import (
	"encoding/json"
	"net/http"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// WriteError writes err as the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	f := reeutil.Describe(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if f.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(f.Status)
	_ = json.NewEncoder(w).Encode(f)
}
