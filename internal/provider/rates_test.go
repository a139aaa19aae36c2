package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
)

const bcraBody = `{"status":200,"results":[
	{"idVariable":6,"fecha":"2025-02-28","valor":29.0},
	{"idVariable":7,"fecha":"2025-02-27","valor":31.5},
	{"idVariable":8,"fecha":"2025-02-27","valor":32.1},
	{"idVariable":12,"fecha":"2025-02-27","valor":30.2},
	{"idVariable":27,"fecha":"2025-01-31","valor":2.2},
	{"idVariable":28,"fecha":"2025-01-31","valor":84.5},
	{"idVariable":29,"fecha":"2025-01-31","valor":23.0}
]}`

func TestBCRAFetchRates(t *testing.T) {
	p := NewBCRAProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/estadisticas/v3.0/monetarias") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return textResponse(http.StatusOK, bcraBody), nil
	})

	inds, updated, err := p.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inds) != 4 {
		t.Fatalf("expected 4 rates, got %d", len(inds))
	}
	if inds[0].ID != IDRatePolicy || inds[0].Value != 29.0 {
		t.Fatalf("unexpected policy rate: %+v", inds[0])
	}
	if updated.Format("2006-01-02") != "2025-02-28" {
		t.Fatalf("unexpected update date: %v", updated)
	}
}

func TestBCRAMissingSeries(t *testing.T) {
	p := NewBCRAProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `{"results":[{"idVariable":6,"fecha":"2025-02-28","valor":29.0}]}`), nil
	})

	if _, _, err := p.FetchRates(context.Background()); err == nil {
		t.Fatal("expected error for missing series")
	}
}

func TestArgentinaDatosFetchInflationCompoundsYear(t *testing.T) {
	p := NewArgentinaDatosProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		rows := make([]string, 0, 13)
		for i := 0; i < 13; i++ {
			rows = append(rows, fmt.Sprintf(`{"fecha":"2024-%02d-28","valor":1.0}`, i%12+1))
		}
		return textResponse(http.StatusOK, "["+strings.Join(rows, ",")+"]"), nil
	})

	inds, _, err := p.FetchInflation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inds) != 2 {
		t.Fatalf("expected monthly and yoy, got %d", len(inds))
	}
	want := (math.Pow(1.01, 12) - 1) * 100
	if math.Abs(inds[1].Value-want) > 1e-9 {
		t.Fatalf("expected yoy %.4f, got %.4f", want, inds[1].Value)
	}
}

func TestArgentinaDatosFixedTermAverages(t *testing.T) {
	p := NewArgentinaDatosProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `[{"entidad":"A","tnaClientes":0.30},{"entidad":"B","tnaClientes":0.32},{"entidad":"C","tnaClientes":null}]`), nil
	})

	inds, _, err := p.FetchFixedTermRate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(inds[0].Value-31) > 1e-9 {
		t.Fatalf("expected average 31, got %f", inds[0].Value)
	}
}
