package service

import (
	"context"
	"testing"

	"github.com/graphdesk/server/internal/domain"
)

func TestCreateViewAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	view, err := svc.CreateView(ctx, CreateViewInput{
		Name:          "my view",
		ActiveFilters: map[string]bool{"Requirement": true},
	})
	if err != nil {
		t.Fatalf("CreateView failed: %v", err)
	}
	if view.ViewID == "" || view.ViewType != domain.ViewTypeCustom {
		t.Fatalf("unexpected view: %+v", view)
	}

	views, err := svc.ListViews(ctx)
	if err != nil {
		t.Fatalf("ListViews failed: %v", err)
	}
	if len(views) != 1 || views[0].ViewID != view.ViewID {
		t.Fatalf("unexpected views: %+v", views)
	}

	if err := svc.DeleteView(ctx, view.ViewID); err != nil {
		t.Fatalf("DeleteView failed: %v", err)
	}
	if _, err := svc.GetView(ctx, view.ViewID); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCreateViewEmptyName(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateView(context.Background(), CreateViewInput{}); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreatePresetView(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string]domain.ViewType{
		"stakeholder":     domain.ViewTypeStakeholder,
		"dependency":      domain.ViewTypeDependency,
		"feature-cluster": domain.ViewTypeFeatureCluster,
		"timeline":        domain.ViewTypeTimeline,
	}
	for preset, wantType := range cases {
		view, err := svc.CreatePresetView(ctx, preset, "")
		if err != nil {
			t.Fatalf("CreatePresetView(%s) failed: %v", preset, err)
		}
		if view.ViewType != wantType {
			t.Fatalf("preset %s: expected type %s, got %s", preset, wantType, view.ViewType)
		}
		if view.Name == "" || len(view.ActiveFilters) == 0 || len(view.LayoutConfig) == 0 {
			t.Fatalf("preset %s missing canned config: %+v", preset, view)
		}
	}
}

func TestCreatePresetViewUnknown(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreatePresetView(context.Background(), "mystery", ""); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
