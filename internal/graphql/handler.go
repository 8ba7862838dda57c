package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Handler serves GraphQL over HTTP POST.
func (e *Executor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			_ = json.NewEncoder(w).Encode(Response{
				Errors: gqlerror.List{gqlerror.Errorf("Method not allowed, use POST")},
			})
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(Response{
				Errors: gqlerror.List{gqlerror.Errorf("Invalid JSON: %s", err.Error())},
			})
			return
		}

		resp := e.Execute(r.Context(), req)
		if resp.Data == nil && len(resp.Errors) > 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// PlaygroundHandler serves the GraphQL playground pointed at endpoint.
func PlaygroundHandler(endpoint string) http.Handler {
	return playground.Handler("Machool shipping", endpoint)
}
