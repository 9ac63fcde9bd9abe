package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		store, err := New(Config{Bucket: "reports", AccessKeyID: "key", SecretAccessKey: "secret", Prefix: "/items/"})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", store.region)
		assert.Equal(t, time.Hour, store.presignDuration)
		assert.Equal(t, "items/exports/a.csv", store.key("exports/a.csv"))
	})
}

func TestStore_URLIsPresigned(t *testing.T) {
	store, err := New(Config{
		Bucket:          "reports",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		PresignDuration: 600,
	})
	require.NoError(t, err)

	url, err := store.URL(context.Background(), "exports/2024/05/01/a.csv")
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:9000/reports/exports/2024/05/01/a.csv")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=600")
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"wrapped not found", fmt.Errorf("head: %w", &smithy.GenericAPIError{Code: "NotFound"}), true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.csv", baseName("exports/2024/a.csv"))
	assert.Equal(t, "a.csv", baseName("a.csv"))
}
