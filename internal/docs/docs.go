// Package docs serves the gateway's OpenAPI document.
package docs

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"

	"github.com/storelens/reviewgateway/pkg/httputil"
)

//go:embed openapi.json
var Spec []byte

const swaggerUIHTML = `<!DOCTYPE html>
<html>
  <head>
    <title>App Store Reviews Gateway API</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
    SwaggerUIBundle({
      url: "/docs",
      dom_id: "#swagger-ui",
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
    })
    </script>
  </body>
</html>`

// Loader returns the API document. An empty path serves the embedded copy;
// otherwise the file is read on every call so edits show up without a restart.
type Loader struct {
	path string
}

// NewLoader creates a loader for the document at path, or the embedded one.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load returns the raw document bytes.
func (l *Loader) Load() ([]byte, error) {
	if l.path == "" {
		return Spec, nil
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read docs %s: %w", l.path, err)
	}
	return b, nil
}

// ServeSpec serves the document verbatim, or a fixed 500 body when it cannot
// be loaded.
func (l *Loader) ServeSpec(w http.ResponseWriter, r *http.Request) {
	b, err := l.Load()
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:     "Documentation not available",
			Timestamp: httputil.Timestamp(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

// ServeUI serves a Swagger UI page pointing at the document.
func ServeUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(swaggerUIHTML))
}
