package services_test

import (
	"context"
	"testing"

	"sniffer/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUnitID(ctx, "unit-1")
	ctx = services.WithAssetID(ctx, "123.flac")

	if id, ok := services.UnitIDFromContext(ctx); !ok || id != "unit-1" {
		t.Fatalf("unexpected unit id: %v %v", id, ok)
	}
	if asset, ok := services.AssetIDFromContext(ctx); !ok || asset != "123.flac" {
		t.Fatalf("unexpected asset id: %v %v", asset, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUnitID(ctx, "")
	ctx = services.WithAssetID(ctx, "")
	if _, ok := services.UnitIDFromContext(ctx); ok {
		t.Fatal("expected no unit id")
	}
	if _, ok := services.AssetIDFromContext(ctx); ok {
		t.Fatal("expected no asset id")
	}
}
