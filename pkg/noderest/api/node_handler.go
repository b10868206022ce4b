// Package api exposes the node listing service over HTTP.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

// Response headers sent with every node listing.
const (
	AllowOrigin = "bitbucket.org"
	ContentType = "application/json"
)

const maxMultipartMemory = 8 << 20

// ErrorResponse is the body of a failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NodeHandler handles HTTP requests for node listings
type NodeHandler struct {
	service noderest.Service
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(service noderest.Service) *NodeHandler {
	return &NodeHandler{service: service}
}

// Routes returns the routes for node listings
func (h *NodeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{type}", h.ListNodes)
	r.Post("/{type}", h.ListNodes)

	return r
}

// ListNodes returns the formatted published nodes of the content type in the
// path, filtered by the request parameters.
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", AllowOrigin)
	w.Header().Set("Content-Type", ContentType)

	contentType := chi.URLParam(r, "type")

	filter, err := requestFilter(r)
	if err != nil {
		slog.Warn("Invalid request parameters", "content_type", contentType, "error", err)
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	records, err := h.service.ListNodes(r.Context(), contentType, filter)
	if err != nil {
		h.handleError(w, r, contentType, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, records)
}

func (h *NodeHandler) handleError(w http.ResponseWriter, r *http.Request, contentType string, err error) {
	switch {
	case errors.Is(err, noderest.ErrInvalidFilter):
		slog.Warn("Invalid node filter", "content_type", contentType, "error", err)
		writeError(w, r, http.StatusBadRequest, "invalid_filter", err.Error())
	case errors.Is(err, noderest.ErrUnknownContentType):
		slog.Warn("Unknown content type", "content_type", contentType)
		writeError(w, r, http.StatusNotFound, "unknown_content_type", err.Error())
	default:
		slog.Error("Failed to list nodes", "content_type", contentType, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list nodes")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: code, Message: message})
}

// requestFilter reads filter parameters from the URL query for GET and from
// the body for POST. Multi-valued keys keep their first value.
func requestFilter(r *http.Request) (noderest.QueryFilter, error) {
	if r.Method != http.MethodPost {
		return firstValues(r.URL.Query()), nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		return jsonFilter(r)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
	}
	return firstValues(r.PostForm), nil
}

func firstValues(values url.Values) noderest.QueryFilter {
	filter := make(noderest.QueryFilter, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			filter[key] = vals[0]
		}
	}
	return filter
}

func jsonFilter(r *http.Request) (noderest.QueryFilter, error) {
	if r.ContentLength == 0 {
		return noderest.QueryFilter{}, nil
	}

	var body map[string]any
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		return nil, fmt.Errorf("decode JSON body: %w", err)
	}

	filter := make(noderest.QueryFilter, len(body))
	for key, v := range body {
		if list, ok := v.([]any); ok {
			if len(list) == 0 {
				continue
			}
			v = list[0]
		}
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		filter[key] = s
	}
	return filter, nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return noderest.ConditionString(t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
