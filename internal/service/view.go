package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graphdesk/server/internal/domain"
)

// CreateViewInput carries the client-supplied fields of a new view.
type CreateViewInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	ViewType      domain.ViewType `json:"view_type"`
	Filters       json.RawMessage `json:"filters"`
	LayoutConfig  json.RawMessage `json:"layout_config"`
	ActiveFilters map[string]bool `json:"active_filters"`
	NodePositions json.RawMessage `json:"node_positions"`
}

// CreateView saves a custom view configuration.
func (s *Service) CreateView(ctx context.Context, input CreateViewInput) (*domain.CustomView, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}
	if input.ViewType == "" {
		input.ViewType = domain.ViewTypeCustom
	}

	now := time.Now().UTC()
	view := &domain.CustomView{
		ViewID:        "view_" + uuid.New().String()[:8],
		Name:          input.Name,
		Description:   input.Description,
		ViewType:      input.ViewType,
		Filters:       input.Filters,
		LayoutConfig:  input.LayoutConfig,
		ActiveFilters: input.ActiveFilters,
		NodePositions: input.NodePositions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateView(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// GetView fetches a view by id.
func (s *Service) GetView(ctx context.Context, viewID string) (*domain.CustomView, error) {
	var view *domain.CustomView
	err := readRetry(ctx, func() error {
		var err error
		view, err = s.store.GetView(ctx, viewID)
		return err
	})
	return view, err
}

// ListViews returns all saved views, most recently updated first.
func (s *Service) ListViews(ctx context.Context) ([]domain.CustomView, error) {
	var views []domain.CustomView
	err := readRetry(ctx, func() error {
		var err error
		views, err = s.store.ListViews(ctx)
		return err
	})
	return views, err
}

// DeleteView removes a saved view.
func (s *Service) DeleteView(ctx context.Context, viewID string) error {
	return s.store.DeleteView(ctx, viewID)
}

// presetConfigs holds the canned filter sets for the built-in view presets.
// Deriving preset layouts from live graph data is the rendering tool's job;
// the back-end only stores these configurations.
var presetConfigs = map[string]struct {
	viewType      domain.ViewType
	layout        string
	activeFilters map[string]bool
}{
	"stakeholder": {
		viewType: domain.ViewTypeStakeholder,
		layout:   `{"mode":"radial","center":"Stakeholder"}`,
		activeFilters: map[string]bool{
			"Stakeholder": true, "Requirement": true, "Feature": true,
			"TestCase": false, "Constraint": false, "Team": true,
		},
	},
	"dependency": {
		viewType: domain.ViewTypeDependency,
		layout:   `{"mode":"hierarchical","edge_type":"depends"}`,
		activeFilters: map[string]bool{
			"Stakeholder": false, "Requirement": true, "Feature": true,
			"TestCase": false, "Constraint": true, "Team": false,
		},
	},
	"feature-cluster": {
		viewType: domain.ViewTypeFeatureCluster,
		layout:   `{"mode":"cluster","group_by":"Feature"}`,
		activeFilters: map[string]bool{
			"Stakeholder": false, "Requirement": true, "Feature": true,
			"TestCase": true, "Constraint": false, "Team": false,
		},
	},
	"timeline": {
		viewType: domain.ViewTypeTimeline,
		layout:   `{"mode":"timeline","order":"created_at"}`,
		activeFilters: map[string]bool{
			"Stakeholder": false, "Requirement": true, "Feature": true,
			"TestCase": true, "Constraint": true, "Team": false,
		},
	},
}

// CreatePresetView saves one of the built-in preset views. preset is the
// URL token: stakeholder, dependency, feature-cluster, or timeline.
func (s *Service) CreatePresetView(ctx context.Context, preset, name string) (*domain.CustomView, error) {
	cfg, ok := presetConfigs[preset]
	if !ok {
		return nil, domain.NewValidationError("preset", "unknown preset "+preset)
	}
	if strings.TrimSpace(name) == "" {
		name = strings.ReplaceAll(preset, "-", " ") + " view"
	}
	return s.CreateView(ctx, CreateViewInput{
		Name:          name,
		ViewType:      cfg.viewType,
		LayoutConfig:  json.RawMessage(cfg.layout),
		ActiveFilters: cfg.activeFilters,
	})
}
