package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var ErrEmptySecret = errors.New("secret has no usable value")

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsManagerClient builds a client from the default AWS credential chain.
func NewSecretsManagerClient(ctx context.Context) (*secretsmanager.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// ResolveAPIKey returns apiKey when set. Otherwise it reads secretID from
// Secrets Manager. The secret may be the bare key or a JSON object holding
// RESEND_API_KEY or api_key. An empty apiKey and secretID yields "".
func ResolveAPIKey(ctx context.Context, getter SecretGetter, apiKey, secretID string) (string, error) {
	if apiKey != "" || secretID == "" {
		return apiKey, nil
	}
	if getter == nil {
		return "", errors.New("secrets manager client is not configured")
	}

	out, err := getter.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret %q: %w", secretID, err)
	}

	raw := strings.TrimSpace(aws.ToString(out.SecretString))
	if raw == "" {
		return "", ErrEmptySecret
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("failed to parse secret %q: %w", secretID, err)
	}
	for _, k := range []string{"RESEND_API_KEY", "api_key"} {
		if v := fields[k]; v != "" {
			return v, nil
		}
	}
	return "", ErrEmptySecret
}
