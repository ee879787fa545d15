// Package lambda contains CloudFormation resource types for AWS Lambda.
package lambda

// Function represents AWS::Lambda::Function.
type Function struct {
	FunctionName  any                   `json:"FunctionName,omitempty"`
	Description   any                   `json:"Description,omitempty"`
	PackageType   string                `json:"PackageType,omitempty"`
	Code          Function_Code         `json:"Code"`
	ImageConfig   *Function_ImageConfig `json:"ImageConfig,omitempty"`
	Role          any                   `json:"Role"`
	Architectures []string              `json:"Architectures,omitempty"`
	MemorySize    int                   `json:"MemorySize,omitempty"`
	Timeout       int                   `json:"Timeout,omitempty"`
	Environment   *Function_Environment `json:"Environment,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Function) ResourceType() string {
	return "AWS::Lambda::Function"
}

// Function_Code is a property type of AWS::Lambda::Function.
type Function_Code struct {
	ImageUri any    `json:"ImageUri,omitempty"`
	ZipFile  string `json:"ZipFile,omitempty"`
}

// IsZero reports whether no code location is set.
func (c Function_Code) IsZero() bool {
	return c.ImageUri == nil && c.ZipFile == ""
}

// Function_ImageConfig is a property type of AWS::Lambda::Function.
type Function_ImageConfig struct {
	Command          []string `json:"Command,omitempty"`
	EntryPoint       []string `json:"EntryPoint,omitempty"`
	WorkingDirectory string   `json:"WorkingDirectory,omitempty"`
}

// Function_Environment is a property type of AWS::Lambda::Function.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Package types.
const (
	PackageTypeImage = "Image"
	PackageTypeZip   = "Zip"
)
