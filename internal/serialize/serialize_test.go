package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/intrinsics"
)

type testRecord struct {
	Name       string            `json:"Name,omitempty"`
	TTL        int               `json:"TTL,omitempty"`
	Weighted   bool              `json:"Weighted,omitempty"`
	Values     []string          `json:"ResourceRecords,omitempty"`
	Alias      *testAlias        `json:"AliasTarget,omitempty"`
	Labels     map[string]string `json:"Labels,omitempty"`
	Tags       []testTag         `json:"Tags,omitempty"`
	Skipped    string            `json:"-"`
	Untagged   string
	unexported string
}

type testAlias struct {
	DNSName      string `json:"DNSName"`
	HostedZoneId string `json:"HostedZoneId"`
}

type testTag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type testFunction struct {
	Role     any `json:"Role"`
	ImageUri any `json:"ImageUri,omitempty"`
}

func TestResource(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  map[string]any
	}{
		{
			name:  "zero values omitted",
			input: testRecord{unexported: "x", Skipped: "y"},
			want:  map[string]any{},
		},
		{
			name:  "scalars",
			input: testRecord{Name: "app.example.com.", TTL: 300, Weighted: true, Untagged: "u"},
			want: map[string]any{
				"Name":     "app.example.com.",
				"TTL":      int64(300),
				"Weighted": true,
				"Untagged": "u",
			},
		},
		{
			name:  "pointer input",
			input: &testRecord{Name: "app.example.com."},
			want:  map[string]any{"Name": "app.example.com."},
		},
		{
			name: "nested struct and slices",
			input: testRecord{
				Values: []string{"10.0.0.1"},
				Alias:  &testAlias{DNSName: "d-abc.execute-api.us-east-1.amazonaws.com", HostedZoneId: "Z1"},
				Tags:   []testTag{{Key: "app", Value: "webapp"}},
			},
			want: map[string]any{
				"ResourceRecords": []any{"10.0.0.1"},
				"AliasTarget": map[string]any{
					"DNSName":      "d-abc.execute-api.us-east-1.amazonaws.com",
					"HostedZoneId": "Z1",
				},
				"Tags": []any{map[string]any{"Key": "app", "Value": "webapp"}},
			},
		},
		{
			name:  "map",
			input: testRecord{Labels: map[string]string{"stage": "prod"}},
			want:  map[string]any{"Labels": map[string]any{"stage": "prod"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := Resource(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, props)
		})
	}
}

func TestResource_NotAStruct(t *testing.T) {
	props, err := Resource("Function")
	require.NoError(t, err)
	assert.Nil(t, props)

	var nilRecord *testRecord
	props, err = Resource(nilRecord)
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestResource_WithIntrinsics(t *testing.T) {
	fn := testFunction{
		Role:     wetwire.AttrRef{Resource: "ServiceRole", Attribute: "Arn"},
		ImageUri: intrinsics.ImageURI("Repository", "latest"),
	}

	props, err := Resource(fn)
	require.NoError(t, err)

	role := props["Role"].(map[string]any)
	assert.Equal(t, []any{"ServiceRole", "Arn"}, role["Fn::GetAtt"])
	assert.Contains(t, props["ImageUri"], "Fn::Join")
}

func TestReferences(t *testing.T) {
	props := map[string]any{
		"Role": map[string]any{"Fn::GetAtt": []any{"ServiceRole", "Arn"}},
		"Code": map[string]any{
			"ImageUri": map[string]any{"Fn::Join": []any{"", []any{
				map[string]any{"Ref": "AWS::AccountId"},
				"/",
				map[string]any{"Ref": "Repository"},
			}}},
		},
		"Description": map[string]any{"Fn::Sub": "${LambdaRestApi}.execute-api.${AWS::Region}/${Stage.Name}"},
	}

	refs, usages := References(props)

	assert.Equal(t, []string{"LambdaRestApi", "Repository", "ServiceRole", "Stage"}, refs)
	assert.Equal(t, []wetwire.AttrRefUsage{
		{ResourceName: "ServiceRole", Attribute: "Arn"},
		{ResourceName: "Stage", Attribute: "Name"},
	}, usages)
}

func TestReferences_SubWithVariables(t *testing.T) {
	props := map[string]any{
		"Name": map[string]any{"Fn::Sub": []any{
			"${Prefix}-${Repository}",
			map[string]any{"Prefix": map[string]any{"Ref": "Certificate"}},
		}},
	}

	refs, usages := References(props)

	assert.Equal(t, []string{"Certificate", "Repository"}, refs)
	assert.Empty(t, usages)
}

func TestReferences_IgnoresPseudoParameters(t *testing.T) {
	props := map[string]any{
		"Region": map[string]any{"Ref": "AWS::Region"},
		"Name":   map[string]any{"Fn::Sub": "${AWS::StackName}-api"},
	}

	refs, _ := References(props)
	assert.Empty(t, refs)
}

func TestReferences_GetAttDottedString(t *testing.T) {
	props := map[string]any{
		"Target": map[string]any{"Fn::GetAtt": "DomainName.RegionalDomainName"},
	}

	refs, usages := References(props)

	assert.Equal(t, []string{"DomainName"}, refs)
	assert.Equal(t, "RegionalDomainName", usages[0].Attribute)
}
