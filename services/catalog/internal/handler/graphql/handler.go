package graphql

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	"github.com/utafrali/bookcatalog/pkg/httputil"
	"github.com/utafrali/bookcatalog/pkg/logger"
	"github.com/utafrali/bookcatalog/pkg/validator"
)

const maxBodyBytes = 1 << 20

type request struct {
	Query         string         `json:"query" validate:"required"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler serves GraphQL over POST with a JSON body.
type Handler struct {
	schema *graphql.Schema
	logger *slog.Logger
}

// NewHandler creates a new GraphQL HTTP handler.
func NewHandler(schema *graphql.Schema, logger *slog.Logger) *Handler {
	return &Handler{schema: schema, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "use POST"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req request
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:      "PAYLOAD_TOO_LARGE",
					Message:   "request body exceeds 1 MiB",
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				},
			})
			return
		}
		httputil.WriteValidationError(w, r, err)
		return
	}

	resp := h.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	tagDateErrors(resp.Errors)
	h.logInternal(r, resp.Errors)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// logInternal records the causes behind INTERNAL_ERROR responses, which
// clients only see as a generic message.
func (h *Handler) logInternal(r *http.Request, errs []*gqlerrors.QueryError) {
	l := logger.WithContext(r.Context(), h.logger)
	for _, qe := range errs {
		var re *resolverError
		if !errors.As(qe.ResolverError, &re) || !re.internal() {
			continue
		}
		l.ErrorContext(r.Context(), "graphql resolver failed",
			slog.Any("path", qe.Path),
			slog.String("error", re.cause.Error()),
		)
	}
}
