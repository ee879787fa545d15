package graph

import (
	"strings"
	"testing"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

func TestGenerator_Generate_SimpleGraph(t *testing.T) {
	resources := map[string]wetwire.DiscoveredResource{
		"Repository": {
			Name: "Repository",
			Type: "AWS::ECR::Repository",
		},
		"Function": {
			Name:         "Function",
			Type:         "AWS::Lambda::Function",
			Dependencies: []string{"Repository"},
		},
	}

	gen := &Generator{}
	var sb strings.Builder
	err := gen.Generate(resources, nil, &sb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()

	if !strings.Contains(output, "digraph") {
		t.Error("expected digraph declaration")
	}
	if !strings.Contains(output, "Repository") {
		t.Error("expected Repository node")
	}
	if !strings.Contains(output, "AWS::Lambda::Function") {
		t.Error("expected Function node labelled with its type")
	}
	if !strings.Contains(output, "->") {
		t.Error("expected edge from Function to Repository")
	}
}

func TestGenerator_Generate_WithGetAtt(t *testing.T) {
	resources := map[string]wetwire.DiscoveredResource{
		"ServiceRole": {
			Name: "ServiceRole",
			Type: "AWS::IAM::Role",
		},
		"Function": {
			Name:         "Function",
			Type:         "AWS::Lambda::Function",
			Dependencies: []string{"ServiceRole"},
			AttrRefUsages: []wetwire.AttrRefUsage{
				{ResourceName: "ServiceRole", Attribute: "Arn"},
			},
		},
	}

	gen := &Generator{}
	output, err := gen.GenerateString(resources, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "blue") {
		t.Error("expected blue color for GetAtt edge")
	}
}

func TestGenerator_Generate_WithSteps(t *testing.T) {
	resources := map[string]wetwire.DiscoveredResource{
		"Repository": {
			Name: "Repository",
			Type: "AWS::ECR::Repository",
		},
		"Function": {
			Name:         "Function",
			Type:         "AWS::Lambda::Function",
			Dependencies: []string{"ImageDeployment"},
			DependsOn:    []string{"ImageDeployment"},
		},
	}
	steps := []wetwire.DiscoveredStep{
		{Name: "ImageDeployment", Kind: "DockerImageDeployment", Dependencies: []string{"Repository"}},
	}

	gen := &Generator{}
	output, err := gen.GenerateString(resources, steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "DockerImageDeployment") {
		t.Error("expected step node labelled with its kind")
	}
	if !strings.Contains(output, "ellipse") {
		t.Error("expected ellipse shape for step")
	}
	if strings.Count(output, "->") != 2 {
		t.Errorf("expected 2 edges, got:\n%s", output)
	}
}

func TestGenerator_Generate_SkipsUnknownDependencies(t *testing.T) {
	resources := map[string]wetwire.DiscoveredResource{
		"Function": {
			Name:         "Function",
			Type:         "AWS::Lambda::Function",
			Dependencies: []string{"Elsewhere"},
		},
	}

	gen := &Generator{}
	output, err := gen.GenerateString(resources, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(output, "->") {
		t.Errorf("expected no edges, got:\n%s", output)
	}
}

func TestGenerator_Generate_ClusterByType(t *testing.T) {
	resources := map[string]wetwire.DiscoveredResource{
		"RootMethod": {
			Name: "RootMethod",
			Type: "AWS::ApiGateway::Method",
		},
		"ProxyMethod": {
			Name: "ProxyMethod",
			Type: "AWS::ApiGateway::Method",
		},
		"Function": {
			Name: "Function",
			Type: "AWS::Lambda::Function",
		},
	}

	gen := &Generator{ClusterByType: true}
	var sb strings.Builder
	err := gen.Generate(resources, nil, &sb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()

	if !strings.Contains(output, "cluster_ApiGateway") {
		t.Error("expected ApiGateway cluster subgraph")
	}
	if strings.Contains(output, "cluster_Lambda") {
		t.Error("single-resource services should not be clustered")
	}
}

func TestGenerator_Generate_MermaidFormat(t *testing.T) {
	resources := map[string]wetwire.DiscoveredResource{
		"Repository": {
			Name: "Repository",
			Type: "AWS::ECR::Repository",
		},
		"Function": {
			Name:         "Function",
			Type:         "AWS::Lambda::Function",
			Dependencies: []string{"Repository"},
		},
	}

	gen := &Generator{Format: FormatMermaid}
	var sb strings.Builder
	err := gen.Generate(resources, nil, &sb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()

	if !strings.Contains(output, "graph") && !strings.Contains(output, "flowchart") {
		t.Errorf("expected mermaid graph/flowchart, got:\n%s", output)
	}
	if strings.Contains(output, "digraph") {
		t.Error("expected mermaid format, not DOT")
	}
}

func TestServiceOf(t *testing.T) {
	tests := []struct {
		cfType string
		want   string
	}{
		{"AWS::ApiGateway::Method", "ApiGateway"},
		{"AWS::Route53::RecordSet", "Route53"},
		{"Custom", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.cfType, func(t *testing.T) {
			if got := serviceOf(tt.cfType); got != tt.want {
				t.Errorf("serviceOf(%q) = %q, want %q", tt.cfType, got, tt.want)
			}
		})
	}
}
