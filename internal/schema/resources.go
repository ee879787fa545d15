package schema

var (
	str     = PropertySchema{Type: "String"}
	integer = PropertySchema{Type: "Integer"}
	boolean = PropertySchema{Type: "Boolean"}
	list    = PropertySchema{Type: "List"}
	object  = PropertySchema{Type: "Map"}
	doc     = PropertySchema{Type: "Json"}
)

func oneOf(values ...string) PropertySchema {
	return PropertySchema{Type: "String", AllowedValues: values}
}

// resourceSchemas covers the resource types of the web application stack.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::CertificateManager::Certificate": {
		Required: []string{"DomainName"},
		Properties: map[string]PropertySchema{
			"DomainName":              str,
			"SubjectAlternativeNames": list,
			"ValidationMethod":        oneOf("DNS", "EMAIL"),
			"DomainValidationOptions": list,
		},
	},
	"AWS::ECR::Repository": {
		Properties: map[string]PropertySchema{
			"RepositoryName":             str,
			"ImageTagMutability":         oneOf("MUTABLE", "IMMUTABLE"),
			"EmptyOnDelete":              boolean,
			"ImageScanningConfiguration": object,
			"LifecyclePolicy":            object,
			"RepositoryPolicyText":       doc,
		},
	},
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"RoleName":                 str,
			"Description":              str,
			"AssumeRolePolicyDocument": doc,
			"ManagedPolicyArns":        list,
			"Policies":                 list,
		},
	},
	"AWS::Lambda::Function": {
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"FunctionName":  str,
			"Description":   str,
			"PackageType":   oneOf("Image", "Zip"),
			"Code":          object,
			"ImageConfig":   object,
			"Role":          str,
			"Architectures": list,
			"MemorySize":    integer,
			"Timeout":       integer,
			"Environment":   object,
		},
	},
	"AWS::Lambda::Permission": {
		Required: []string{"Action", "FunctionName", "Principal"},
		Properties: map[string]PropertySchema{
			"Action":       str,
			"FunctionName": str,
			"Principal":    str,
			"SourceArn":    str,
		},
	},
	"AWS::ApiGateway::RestApi": {
		Properties: map[string]PropertySchema{
			"Name":                  str,
			"Description":           str,
			"BinaryMediaTypes":      list,
			"EndpointConfiguration": object,
		},
	},
	"AWS::ApiGateway::Resource": {
		Required: []string{"ParentId", "PathPart", "RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId": str,
			"ParentId":  str,
			"PathPart":  str,
		},
	},
	"AWS::ApiGateway::Method": {
		Required: []string{"HttpMethod", "ResourceId", "RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId":         str,
			"ResourceId":        str,
			"HttpMethod":        oneOf("ANY", "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"),
			"AuthorizationType": oneOf("NONE", "AWS_IAM", "CUSTOM", "COGNITO_USER_POOLS"),
			"Integration":       object,
		},
	},
	"AWS::ApiGateway::Deployment": {
		Required: []string{"RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId":   str,
			"Description": str,
		},
	},
	"AWS::ApiGateway::Stage": {
		Required: []string{"RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId":    str,
			"DeploymentId": str,
			"StageName":    str,
		},
	},
	"AWS::ApiGateway::DomainName": {
		Properties: map[string]PropertySchema{
			"DomainName":             str,
			"RegionalCertificateArn": str,
			"CertificateArn":         str,
			"EndpointConfiguration":  object,
			"SecurityPolicy":         oneOf("TLS_1_0", "TLS_1_2"),
		},
	},
	"AWS::ApiGateway::BasePathMapping": {
		Required: []string{"DomainName", "RestApiId"},
		Properties: map[string]PropertySchema{
			"DomainName": str,
			"RestApiId":  str,
			"Stage":      str,
			"BasePath":   str,
		},
	},
	"AWS::Route53::RecordSet": {
		Required: []string{"Name", "Type"},
		Properties: map[string]PropertySchema{
			"HostedZoneId":    str,
			"Name":            str,
			"Type":            oneOf("A", "AAAA", "CAA", "CNAME", "DS", "HTTPS", "MX", "NAPTR", "NS", "PTR", "SOA", "SPF", "SRV", "SSHFP", "SVCB", "TLSA", "TXT"),
			"AliasTarget":     object,
			"ResourceRecords": list,
			"TTL":             str,
			"Comment":         str,
		},
	},
}
