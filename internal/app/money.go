package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio/api/internal/store"
)

// estimated_value is NUMERIC(14,2).
var maxEstimatedValue = decimal.New(1, 12)

// prepareIdeaNode keeps connections as sent apart from dropping duplicates
// and the node's own id. Targets are not checked for existence.
func prepareIdeaNode(_ context.Context, n *store.IdeaNode, _ *store.IdeaNode) error {
	n.Title = sanitizePlain(n.Title)
	n.Content = sanitizeRich(n.Content)
	n.Color = strings.TrimSpace(n.Color)
	n.Connections = n.Connections.Compact().Without(n.ID)
	n.Tags = n.Tags.Compact()
	if n.EstimatedValue.IsNegative() {
		return badRequest("estimatedValue must not be negative", map[string]string{"estimatedValue": "must be >= 0"})
	}
	if !n.EstimatedValue.Equal(n.EstimatedValue.Truncate(2)) {
		return badRequest("estimatedValue has too many decimal places", map[string]string{"estimatedValue": "at most 2 decimal places"})
	}
	if n.EstimatedValue.GreaterThanOrEqual(maxEstimatedValue) {
		return badRequest("estimatedValue is too large", map[string]string{"estimatedValue": "must be below 1000000000000"})
	}
	return checkCoordinates(n.X, n.Y)
}

func checkCoordinates(x, y float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return badRequest("x and y must be finite numbers", nil)
	}
	return nil
}

type Position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Service) MoveIdeaNode(ctx context.Context, id string, pos Position) Result[store.IdeaNode] {
	if pos.X == nil || pos.Y == nil {
		return fail[store.IdeaNode](badRequest("x and y are required", nil))
	}
	if err := checkCoordinates(*pos.X, *pos.Y); err != nil {
		return fail[store.IdeaNode](err)
	}
	return s.ideaNodes.Patch(ctx, id, map[string]any{"x": *pos.X, "y": *pos.Y})
}

// SetIdeaConnections replaces the node's outgoing connections.
func (s *Service) SetIdeaConnections(ctx context.Context, id string, connections []string) Result[store.IdeaNode] {
	list := store.StringList(connections).Compact().Without(id)
	if len(list) > 200 {
		return fail[store.IdeaNode](badRequest(fmt.Sprintf("at most 200 connections, got %d", len(list)), nil))
	}
	return s.ideaNodes.Patch(ctx, id, map[string]any{"connections": list})
}

func (s *Service) IdeaSummary(ctx context.Context) Result[store.IdeaSummary] {
	summary, err := s.store.IdeaSummary(ctx)
	if err != nil {
		return fail[store.IdeaSummary](err)
	}
	return ok(summary)
}
