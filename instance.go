package snooze

import "strings"

// Providers a selector can name.
const (
	ProviderAWS = "aws"
	ProviderGCP = "gcp"
)

// An Instance is a discovered database instance.
// Only the fields used for targeting are carried here.
type Instance struct {
	Name     string            `json:"name" yaml:"name"`
	Provider string            `json:"provider" yaml:"provider"`
	Region   string            `json:"region" yaml:"region"`
	Engine   string            `json:"engine" yaml:"engine"`
	Tags     map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ProviderClass classifies a raw provider identifier such as
// "aws_123456789012_us-east-1". Anything not starting with "aws" is GCP.
func ProviderClass(raw string) string {
	if strings.HasPrefix(raw, ProviderAWS) {
		return ProviderAWS
	}
	return ProviderGCP
}
