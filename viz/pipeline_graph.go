// ABOUTME: Graphviz rendering of the deal pipeline
// ABOUTME: Draws the stage chain with each deal hanging off its current stage
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/dealpulse/models"
)

var temperatureColors = map[models.Temperature]string{
	models.TemperatureHot:  "salmon",
	models.TemperatureWarm: "lightyellow",
	models.TemperatureCold: "lightblue",
}

// GeneratePipelineGraph returns DOT source for the pipeline.
func GeneratePipelineGraph(ctx context.Context, deals []models.Deal) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel("Deal Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	stageNodes := make(map[models.DealStage]*cgraph.Node, len(models.Stages))
	var previous *cgraph.Node
	for _, stage := range models.Stages {
		node, err := graph.CreateNodeByName("stage_" + string(stage))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(string(stage))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("lightgray")
		stageNodes[stage] = node

		if previous != nil {
			if _, err := graph.CreateEdgeByName("next", previous, node); err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
		}
		previous = node
	}

	for i := range deals {
		deal := &deals[i]
		stageNode, ok := stageNodes[deal.Stage]
		if !ok {
			continue
		}

		node, err := graph.CreateNodeByName("deal_" + deal.ID.String()[:8])
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%s\nscore %d", deal.Title, deal.ClientLabel(), deal.EngagementScore))
		node.SetShape("ellipse")
		node.SetStyle("filled")
		color, ok := temperatureColors[deal.ClientTemperature]
		if !ok {
			color = temperatureColors[models.TemperatureCold]
		}
		node.SetFillColor(color)

		edge, err := graph.CreateEdgeByName("in_stage", node, stageNode)
		if err != nil {
			return "", fmt.Errorf("failed to create deal edge: %w", err)
		}
		edge.SetStyle("dashed")
		edge.SetDir("none")
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
