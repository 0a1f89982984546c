package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	internalSessionName = "InternalSession"
	externalSessionName = "ExternalSession"
)

// Credentials are temporary keys returned by a role assumption.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (c Credentials) IsZero() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

type AssumeRoleInput struct {
	RoleARN     string
	SessionName string
	ExternalID  string // only sent when non-empty
}

// CredentialProvider exchanges base credentials for the credentials of another role.
// Zero base credentials mean "whatever the environment provides".
type CredentialProvider interface {
	AssumeRole(ctx context.Context, base Credentials, in AssumeRoleInput) (Credentials, error)
}

// RoleChain names the two roles assumed before every bucket operation.
type RoleChain struct {
	InternalRole string
	ExternalRole string
	ExternalID   string
}

// STSProvider implements CredentialProvider against an AWS STS compatible endpoint.
type STSProvider struct {
	endpoint string
	region   string
	ambient  *credentials.Credentials
}

var _ CredentialProvider = (*STSProvider)(nil)

// NewSTSProvider creates a provider that calls AssumeRole on endpoint
// (e.g., "https://sts.amazonaws.com"). Ambient credentials are looked up in the
// environment, then the shared credentials file, then the instance metadata service.
func NewSTSProvider(endpoint, region string) *STSProvider {
	return &STSProvider{
		endpoint: endpoint,
		region:   region,
		ambient: credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		}),
	}
}

func (p *STSProvider) AssumeRole(ctx context.Context, base Credentials, in AssumeRoleInput) (Credentials, error) {
	// minio's STS provider has no context hook, so cancellation is only honoured up front.
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	if base.IsZero() {
		v, err := p.ambient.Get()
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to resolve ambient credentials: %w", err)
		}
		if v.AccessKeyID == "" {
			return Credentials{}, errors.New("no ambient credentials found")
		}
		base = Credentials{AccessKeyID: v.AccessKeyID, SecretAccessKey: v.SecretAccessKey, SessionToken: v.SessionToken}
	}

	sts, err := credentials.NewSTSAssumeRole(p.endpoint, credentials.STSAssumeRoleOptions{
		AccessKey:       base.AccessKeyID,
		SecretKey:       base.SecretAccessKey,
		SessionToken:    base.SessionToken,
		Location:        p.region,
		RoleARN:         in.RoleARN,
		RoleSessionName: in.SessionName,
		ExternalID:      in.ExternalID,
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to create sts client: %w", err)
	}

	v, err := sts.Get()
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{
		AccessKeyID:     v.AccessKeyID,
		SecretAccessKey: v.SecretAccessKey,
		SessionToken:    v.SessionToken,
	}, nil
}

// StaticProvider hands out the same credentials for every role.
// Used with the filesystem backend where there is nothing to assume.
type StaticProvider struct {
	Creds Credentials
}

func (p StaticProvider) AssumeRole(ctx context.Context, _ Credentials, _ AssumeRoleInput) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	return p.Creds, nil
}
