package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/registration-ledger/interfaces"
)

// VaultBackend implements a document store using a HashiCorp Vault KV v2 secret.
// The version token is the KV version number; writes use check-and-set so Vault
// itself refuses a write based on a stale version.
type VaultBackend struct {
	client      *api.Client
	kv          *api.KVv2
	mountPath   string
	secretPath  string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault KV v2 document store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token with read/write access to the secret
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - secretPath: Path of the secret within the mount (e.g. "registrations")
//   - log: Structured logger for operational insights
func NewVaultBackend(address, token, mountPath, secretPath string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	secretPath = strings.Trim(secretPath, "/")
	if mountPath == "" || secretPath == "" {
		return nil, fmt.Errorf("%w: vault mount and secret path are required", interfaces.ErrInvalidLocationURI)
	}

	return &VaultBackend{
		client:      client,
		kv:          client.KVv2(mountPath),
		mountPath:   mountPath,
		secretPath:  secretPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, secretPath),
	}, nil
}

// Read returns the latest version of the secret.
func (b *VaultBackend) Read(ctx context.Context) (*interfaces.Document, error) {
	start := time.Now()

	secret, err := b.kv.Get(ctx, b.secretPath)
	if errors.Is(err, api.ErrSecretNotFound) {
		b.log.Debug("Document not found in Vault",
			slog.String("path", b.secretPath))
		return nil, interfaces.ErrDocumentNotFound
	}
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", b.secretPath),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil || secret.VersionMetadata == nil {
		return nil, interfaces.ErrDocumentNotFound
	}

	content, ok := secret.Data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	b.log.Debug("Fetched document from Vault",
		slog.Int("version", secret.VersionMetadata.Version),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Document{
		Content: []byte(content),
		SHA:     strconv.Itoa(secret.VersionMetadata.Version),
	}, nil
}

// Write stores a new version using check-and-set. The create path uses cas=0,
// which Vault only accepts if the secret has no versions. A secret whose latest
// version was deleted or destroyed reads as missing, so creating it checks
// against that latest version instead.
func (b *VaultBackend) Write(ctx context.Context, req interfaces.WriteRequest) (*interfaces.Document, error) {
	cas := 0
	if req.IsCreate() {
		latest, err := b.deletedVersion(ctx)
		if err != nil {
			return nil, err
		}
		cas = latest
	} else {
		version, err := strconv.Atoi(req.SHA)
		if err != nil {
			return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusUnprocessableEntity,
				[]byte(fmt.Sprintf(`{"message":"invalid version token %q"}`, req.SHA)))
		}
		cas = version
	}

	secret, err := b.kv.Put(ctx, b.secretPath, map[string]interface{}{
		"content": string(req.Content),
		"message": req.Message,
	}, api.WithCheckAndSet(cas))
	if err != nil {
		var respErr *api.ResponseError
		if errors.As(err, &respErr) {
			status := respErr.StatusCode
			if isCheckAndSetMismatch(respErr) {
				status = http.StatusConflict
			}
			details, _ := json.Marshal(map[string]interface{}{
				"errors": respErr.Errors,
				"status": respErr.StatusCode,
			})
			return nil, interfaces.NewWriteRejectedError(b.Name(), status, details)
		}
		b.log.Error("Failed to write to Vault",
			slog.String("path", b.secretPath),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.VersionMetadata == nil {
		return nil, fmt.Errorf("vault returned no version metadata")
	}

	return &interfaces.Document{
		Content: req.Content,
		SHA:     strconv.Itoa(secret.VersionMetadata.Version),
	}, nil
}

// deletedVersion returns the latest version number of a secret whose latest
// version holds no data, or 0 if the secret has never been written. A live
// latest version is left to Vault to reject.
func (b *VaultBackend) deletedVersion(ctx context.Context) (int, error) {
	secret, err := b.kv.Get(ctx, b.secretPath)
	if errors.Is(err, api.ErrSecretNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.VersionMetadata == nil || secret.Data != nil {
		return 0, nil
	}

	b.log.Debug("Recreating deleted Vault secret",
		slog.String("path", b.secretPath),
		slog.Int("version", secret.VersionMetadata.Version))
	return secret.VersionMetadata.Version, nil
}

func isCheckAndSetMismatch(respErr *api.ResponseError) bool {
	for _, e := range respErr.Errors {
		if strings.Contains(e, "check-and-set") {
			return true
		}
	}
	return false
}

// Available checks if Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, strings.ReplaceAll(b.secretPath, "/", "-"))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}
