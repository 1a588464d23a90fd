package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cratetag/internal/assemble"
	"cratetag/internal/domain"
	"cratetag/internal/export"
	"cratetag/internal/logging"
	"cratetag/internal/qr"
)

// Config for the HTTP API handler.
type Config struct {
	Assembler    assemble.Assembler
	Exporter     export.Builder
	PreviewWidth int
	BasePath     string
	Auth         AuthConfig
	Logger       logging.Logger
}

func (c Config) logger() logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Discard()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"out_of_range"`
	Message string         `json:"message" example:"weightKg out of range: 1500"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"weightKg\"}"`
}

// apiError is the error envelope of every non-2xx JSON response.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the crate API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are 400 bad_request; 422 is
			// reserved for crate record validation.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(cfg.logger()))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.logger()))
	hcfg := huma.DefaultConfig("Crate API", "0.1.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCrates(group, cfg)
	registerQR(group, cfg)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, string(ve.Kind), err.Error(), map[string]any{"field": ve.Field})
	}
	var ce *qr.CapacityError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), map[string]any{
			"bytes": ce.Len,
			"max":   ce.Max,
			"level": string(ce.Level),
		})
	}
	if errors.Is(err, qr.ErrPayloadTooLarge) {
		return newAPIError(http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func requestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		oas := api.OpenAPI()
		ensureDefaultErrorResponses(oas)
		spec, err := json.Marshal(oas)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Post} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Type: "object"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Crate API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCrates(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "create-crate",
		Method:      http.MethodPost,
		Path:        "/crates",
		Summary:     "Generate crate id, payload and label",
		Description: "Validates the record and returns its artifacts. Nothing is stored.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusRequestEntityTooLarge,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		IncludeFiles bool             `query:"include_files" doc:"Attach QR, label and data files"`
		Body         domain.RawRecord `json:"body"`
	}) (*struct {
		Body CrateResponse `json:"body"`
	}, error) {
		b, err := cfg.Assembler.Assemble(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		if p, ok := PrincipalFromContext(ctx); ok {
			cfg.logger().Info(ctx, "crate issued", "id", b.ID.String(), "subject", p.Subject)
		}
		resp := crateResponse(b, cfg.PreviewWidth)
		if input.IncludeFiles {
			set, err := cfg.Exporter.Build(ctx, b)
			if err != nil {
				return nil, handleError(err)
			}
			resp.Files = set.Files
			resp.Degraded = set.Degraded
		}
		return &struct {
			Body CrateResponse `json:"body"`
		}{Body: resp}, nil
	})
}

type qrOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func registerQR(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "render-qr",
		Method:      http.MethodPost,
		Path:        "/qr",
		Summary:     "Render a payload as a QR code PNG",
		Errors:      []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge},
	}, func(ctx context.Context, input *struct {
		Body QRRequest `json:"body"`
	}) (*qrOutput, error) {
		enc := cfg.Exporter.Encoder
		if enc == nil {
			enc = qr.PNGEncoder{}
		}
		img, err := enc.Encode(input.Body.Payload)
		if err != nil {
			return nil, handleError(err)
		}
		return &qrOutput{ContentType: export.ContentTypePNG, Body: img}, nil
	})
}
