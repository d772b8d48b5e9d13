package httpx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const employeeKey ctxKey = iota

const HeaderEmployee = "X-Employee-Id"

// Employee puts the caller's employee id in the request context. Auth
// happens upstream; mutating requests without an identity are refused.
func Employee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderEmployee))
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if id == "" {
				writeJSON(w, http.StatusUnauthorized, Response{Error: "missing " + HeaderEmployee})
				return
			}
		}
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), employeeKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func EmployeeFrom(ctx context.Context) string {
	id, _ := ctx.Value(employeeKey).(string)
	return id
}
