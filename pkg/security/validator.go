// Package security validates destination descriptors before a
// provisioner turns them into a real externally-allocated resource.
// Adapted from the teacher's tar-extraction path validator: the same
// path-traversal class of bug applies to a consumer-supplied
// destination key, just without the tarball in between.
package security

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// Validator guards against malformed or adversarial destination
// descriptors on the way into a provisioner.
type Validator struct {
	maxKeyLength int
}

// NewValidator creates a new destination descriptor validator.
func NewValidator(maxKeyLength int) *Validator {
	slog.Info("security_validator_init", "max_key_length", maxKeyLength)
	return &Validator{maxKeyLength: maxKeyLength}
}

// ValidateDestinationKey checks a consumer-supplied object key for
// path traversal and length before a provisioner is allowed to use it.
func (v *Validator) ValidateDestinationKey(key string) error {
	if key == "" {
		return fmt.Errorf("security: destination key must not be empty")
	}

	if len(key) > v.maxKeyLength {
		slog.Error("security_key_length_exceeded", "key", key, "length", len(key), "max", v.maxKeyLength)
		return fmt.Errorf("security: destination key length %d exceeds max %d", len(key), v.maxKeyLength)
	}

	if strings.HasPrefix(key, "/") {
		slog.Error("security_key_validation_failed", "key", key, "reason", "absolute_path")
		return fmt.Errorf("security: absolute destination key not allowed: %s", key)
	}

	clean := path.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		slog.Error("security_key_validation_failed", "key", key, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected in destination key: %s", key)
	}

	return nil
}

// ValidateBucketName applies the S3 bucket naming rules the provisioner
// checks before it addresses its configured bucket.
func (v *Validator) ValidateBucketName(bucket string) error {
	if len(bucket) < 3 || len(bucket) > 63 {
		slog.Error("security_bucket_validation_failed", "bucket", bucket, "reason", "length")
		return fmt.Errorf("security: bucket name length must be between 3 and 63 characters: %s", bucket)
	}
	for _, r := range bucket {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '-') {
			slog.Error("security_bucket_validation_failed", "bucket", bucket, "reason", "invalid_character")
			return fmt.Errorf("security: bucket name contains invalid character %q: %s", r, bucket)
		}
	}
	return nil
}
