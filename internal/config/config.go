package config

import (
	"fmt"
	"os"
)

const (
	StoreS3 = "s3"
	StoreFS = "fs"
)

// Config holds application configuration.
type Config struct {
	InternalRole string
	ExternalRole string
	ExternalID   string
	Bucket       string

	S3Endpoint  string
	STSEndpoint string
	Region      string
	UseSSL      bool

	Store  string // "s3" or "fs"
	FSRoot string // bucket directory when Store is "fs"
}

type ErrMissingRequiredEnvVar struct {
	Name string
}

func (e *ErrMissingRequiredEnvVar) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

type ErrInvalidEnvVar struct {
	Name  string
	Value string
}

func (e *ErrInvalidEnvVar) Error() string {
	return fmt.Sprintf("environment variable %q has invalid value %q", e.Name, e.Value)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string, dst *string) error {
	*dst = os.Getenv(key)
	if *dst == "" {
		return &ErrMissingRequiredEnvVar{Name: key}
	}
	return nil
}

// Load reads configuration from environment variables.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	config := Config{}
	if err := requireEnv("AWS_INTERNAL_ROLE", &config.InternalRole); err != nil {
		return nil, err
	}
	if err := requireEnv("AWS_EXTERNAL_ROLE", &config.ExternalRole); err != nil {
		return nil, err
	}
	if err := requireEnv("AWS_EXTERNAL_ID", &config.ExternalID); err != nil {
		return nil, err
	}
	if err := requireEnv("AWS_BUCKET", &config.Bucket); err != nil {
		return nil, err
	}

	config.S3Endpoint = getEnv("S3_ENDPOINT", "s3.amazonaws.com")
	config.STSEndpoint = getEnv("STS_ENDPOINT", "https://sts.amazonaws.com")
	config.Region = getEnv("AWS_REGION", "us-east-1")
	config.UseSSL = os.Getenv("S3_DISABLE_SSL") != "true"

	config.Store = getEnv("BUCKETSYNC_STORE", StoreS3)
	switch config.Store {
	case StoreS3:
	case StoreFS:
		if err := requireEnv("BUCKETSYNC_FS_ROOT", &config.FSRoot); err != nil {
			return nil, err
		}
	default:
		return nil, &ErrInvalidEnvVar{Name: "BUCKETSYNC_STORE", Value: config.Store}
	}

	return &config, nil
}
