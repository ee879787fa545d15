// Package graph renders the stack's dependency graph as Graphviz DOT or
// Mermaid.
//
// Resources are boxes labelled with their CloudFormation type and deployment
// steps are dashed ellipses. Edges point from a dependent to what it needs:
// blue when the dependency comes from a GetAtt, dashed when it is an explicit
// DependsOn.
package graph

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/emicklei/dot"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

// Format is a graph output format.
type Format string

const (
	// FormatDOT is Graphviz DOT.
	FormatDOT Format = "dot"
	// FormatMermaid is a Mermaid flowchart, rendered inline by GitHub.
	FormatMermaid Format = "mermaid"
)

// Generator renders dependency graphs.
type Generator struct {
	// Format defaults to FormatDOT.
	Format Format

	// ClusterByType groups resources of the same AWS service into a subgraph
	// when the service has more than one resource.
	ClusterByType bool
}

// Generate writes the graph of resources and steps to w.
func (g *Generator) Generate(resources map[string]wetwire.DiscoveredResource, steps []wetwire.DiscoveredStep, w io.Writer) error {
	graph := g.build(resources, steps)

	out := graph.String()
	if g.Format == FormatMermaid {
		out = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	}
	_, err := io.WriteString(w, out)
	return err
}

// GenerateString returns the graph as a string.
func (g *Generator) GenerateString(resources map[string]wetwire.DiscoveredResource, steps []wetwire.DiscoveredStep) (string, error) {
	var sb strings.Builder
	if err := g.Generate(resources, steps, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) build(resources map[string]wetwire.DiscoveredResource, steps []wetwire.DiscoveredStep) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")
	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := slices.Sorted(maps.Keys(resources))
	g.addResources(graph, names, resources)

	isStep := make(map[string]bool, len(steps))
	for _, step := range steps {
		isStep[step.Name] = true
		graph.Node(step.Name).
			Label(label(step.Name, step.Kind)).
			Attr("shape", "ellipse").
			Attr("style", "dashed")
	}

	for _, name := range names {
		res := resources[name]
		for _, dep := range res.Dependencies {
			if _, ok := resources[dep]; !ok && !isStep[dep] {
				continue
			}
			e := graph.Edge(graph.Node(name), graph.Node(dep))
			if usesAttribute(res, dep) {
				e.Attr("color", "blue")
			}
			if slices.Contains(res.DependsOn, dep) {
				e.Attr("style", "dashed")
			}
		}
	}

	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if _, ok := resources[dep]; ok {
				graph.Edge(graph.Node(step.Name), graph.Node(dep))
			}
		}
	}
	return graph
}

func (g *Generator) addResources(graph *dot.Graph, names []string, resources map[string]wetwire.DiscoveredResource) {
	if !g.ClusterByType {
		for _, name := range names {
			graph.Node(name).Label(label(name, resources[name].Type))
		}
		return
	}

	byService := make(map[string][]string)
	for _, name := range names {
		svc := serviceOf(resources[name].Type)
		byService[svc] = append(byService[svc], name)
	}
	for _, svc := range slices.Sorted(maps.Keys(byService)) {
		members := byService[svc]
		parent := graph
		if len(members) > 1 {
			parent = graph.Subgraph("cluster_"+svc, dot.ClusterOption{})
			parent.Attr("label", svc)
			parent.Attr("style", "rounded")
			parent.Attr("bgcolor", "lightyellow")
		}
		for _, name := range members {
			parent.Node(name).Label(label(name, resources[name].Type))
		}
	}
}

func usesAttribute(res wetwire.DiscoveredResource, dep string) bool {
	return slices.ContainsFunc(res.AttrRefUsages, func(u wetwire.AttrRefUsage) bool {
		return u.ResourceName == dep
	})
}

func label(name, kind string) string {
	return name + "\\n[" + kind + "]"
}

// serviceOf returns the service segment of a CloudFormation type,
// e.g. ApiGateway for AWS::ApiGateway::Method.
func serviceOf(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) != 3 {
		return "Other"
	}
	return parts[1]
}
