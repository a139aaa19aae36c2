package docs

import (
	"strings"
	"testing"
)

func TestSwaggerInfoRegistered(t *testing.T) {
	if SwaggerInfo == nil {
		t.Fatal("swagger info not initialized")
	}
	if SwaggerInfo.Title == "" {
		t.Fatal("swagger info missing title")
	}
}

func TestSwaggerDocRendersRoutes(t *testing.T) {
	doc := SwaggerInfo.ReadDoc()
	for _, path := range []string{"/api/indicators/overview", "/api/news", "/api/news/process"} {
		if !strings.Contains(doc, `"`+path+`"`) {
			t.Fatalf("swagger doc missing %s", path)
		}
	}
	if !strings.Contains(doc, `"title": "finboard API"`) {
		t.Fatal("swagger doc missing title")
	}
}
