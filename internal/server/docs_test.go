package server

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"famledger/internal/docs"
)

var pathParam = regexp.MustCompile(`:(\w+)`)

func TestSwaggerMatchesRoutes(t *testing.T) {
	app := setupApp(t)

	var spec struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &spec); err != nil {
		t.Fatalf("swagger document is not valid JSON: %v", err)
	}

	documented := make(map[string]bool)
	for path, ops := range spec.Paths {
		for method := range ops {
			documented[strings.ToUpper(method)+" "+path] = true
		}
	}

	served := make(map[string]bool)
	for _, route := range app.Router.Routes() {
		if !strings.HasPrefix(route.Path, spec.BasePath+"/") {
			continue
		}
		path := pathParam.ReplaceAllString(strings.TrimPrefix(route.Path, spec.BasePath), "{$1}")
		served[route.Method+" "+path] = true
	}

	t.Run("every route is documented", func(t *testing.T) {
		for op := range served {
			if !documented[op] {
				t.Errorf("%s has no swagger entry; run go generate ./cmd/api", op)
			}
		}
	})

	t.Run("every documented operation is served", func(t *testing.T) {
		for op := range documented {
			if !served[op] {
				t.Errorf("swagger documents %s but the router does not serve it", op)
			}
		}
	})
}
