package provider

import (
	"context"
	"net/http"
	"testing"

	"finboard/internal/domain"
)

func TestDolarAPIFetchQuotes(t *testing.T) {
	p := NewDolarAPIProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/dolares" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return textResponse(http.StatusOK, `[
			{"casa":"oficial","compra":1050,"venta":1090,"fechaActualizacion":"2025-03-01T15:00:00.000Z"},
			{"casa":"blue","compra":1190,"venta":1210,"fechaActualizacion":"2025-03-01T15:05:00.000Z"},
			{"casa":"bolsa","compra":1180,"venta":1195,"fechaActualizacion":"2025-03-01T15:00:00.000Z"},
			{"casa":"unknown","compra":1,"venta":2,"fechaActualizacion":"2025-03-01T15:00:00.000Z"}
		]`), nil
	})

	inds, updated, err := p.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inds) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(inds))
	}
	if inds[1].ID != IDDollarBlue || inds[1].Value != 1210 || inds[1].Buy == nil || *inds[1].Buy != 1190 {
		t.Fatalf("unexpected blue quote: %+v", inds[1])
	}
	if inds[0].Category != domain.CategoryExchangeRate || inds[0].Source != "dolarapi" {
		t.Fatalf("unexpected provenance: %+v", inds[0])
	}
	if updated.Minute() != 5 {
		t.Fatalf("expected latest update time, got %v", updated)
	}
}

func TestDolarAPIRequiresOfficialAndBlue(t *testing.T) {
	p := NewDolarAPIProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `[{"casa":"oficial","compra":1050,"venta":1090}]`), nil
	})

	if _, _, err := p.FetchQuotes(context.Background()); err == nil {
		t.Fatal("expected error when blue quote is missing")
	}
}

func TestBluelyticsFetchQuotes(t *testing.T) {
	p := NewBluelyticsProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `{
			"oficial":{"value_avg":1070,"value_sell":1090,"value_buy":1050},
			"blue":{"value_avg":1200,"value_sell":1215,"value_buy":1185},
			"last_update":"2025-03-01T12:00:00.123456-03:00"
		}`), nil
	})

	inds, updated, err := p.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inds) != 2 || inds[0].ID != IDDollarOfficial || inds[1].Value != 1215 {
		t.Fatalf("unexpected quotes: %+v", inds)
	}
	if updated.Hour() != 15 {
		t.Fatalf("expected UTC timestamp, got %v", updated)
	}
}

func TestDolarAPIHTTPError(t *testing.T) {
	p := NewDolarAPIProvider(testTracer())
	stub(&p.httpSource, func(req *http.Request) (*http.Response, error) {
		return textResponse(http.StatusBadGateway, "upstream down"), nil
	})

	_, _, err := p.FetchQuotes(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}
