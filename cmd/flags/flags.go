package flags

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/registration-ledger/common"
	"github.com/ruteri/registration-ledger/httpserver"
	"github.com/ruteri/registration-ledger/interfaces"
	"github.com/ruteri/registration-ledger/registration"
	"github.com/ruteri/registration-ledger/storage"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             60 * time.Second,
	}
}

// ConfigureRegistrar collects the registrar settings.
func ConfigureRegistrar(cCtx *cli.Context) registration.Config {
	return registration.Config{
		CommitMessage: cCtx.String(CommitMessageFlag.Name),
	}
}

// PrimaryLocation returns --store-uri, or the github:// location assembled
// from the --github-* flags when it is not set.
func PrimaryLocation(cCtx *cli.Context) (interfaces.StoreLocation, error) {
	uri := cCtx.String(StoreURIFlag.Name)
	if uri == "" {
		owner := cCtx.String(GitHubOwnerFlag.Name)
		repo := cCtx.String(GitHubRepoFlag.Name)
		path := strings.TrimPrefix(cCtx.String(GitHubPathFlag.Name), "/")
		if owner == "" || repo == "" || path == "" {
			return interfaces.StoreLocation{}, fmt.Errorf("%w: github owner, repo and path are required", interfaces.ErrInvalidLocationURI)
		}

		uri = fmt.Sprintf("github://%s/%s/%s", owner, repo, path)
		if branch := cCtx.String(GitHubBranchFlag.Name); branch != "" {
			uri += "?branch=" + url.QueryEscape(branch)
		}
	}
	return interfaces.NewStoreLocation(uri)
}

// BuildStore creates the primary document store wrapped with any --mirror-uri stores.
func BuildStore(cCtx *cli.Context, logger *slog.Logger) (interfaces.DocumentStore, error) {
	primary, err := PrimaryLocation(cCtx)
	if err != nil {
		return nil, err
	}

	var mirrors []interfaces.StoreLocation
	for _, raw := range cCtx.StringSlice(MirrorURIFlag.Name) {
		loc, err := interfaces.NewStoreLocation(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid mirror %q: %w", raw, err)
		}
		mirrors = append(mirrors, loc)
	}

	var factory interfaces.DocumentStoreFactory = storage.NewDocumentStoreFactory(logger, storage.FactoryOptions{
		GitHubToken:  cCtx.String(GitHubTokenFlag.Name),
		GitHubAPIURL: cCtx.String(GitHubAPIURLFlag.Name),
		VaultToken:   cCtx.String(VaultTokenFlag.Name),
		Timeout:      cCtx.Duration(StoreTimeoutFlag.Name),
	})

	return factory.CreateMirroredStore(primary, mirrors)
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}

var StoreURIFlag = &cli.StringFlag{
	Name:    "store-uri",
	Usage:   "document store location (github://, file://, vault://, s3://, ipfs://); overrides the github-* flags",
	EnvVars: []string{"STORE_URI"},
}

var MirrorURIFlag = &cli.StringSliceFlag{
	Name:    "mirror-uri",
	Usage:   "document store that receives a best-effort copy of every successful write (repeatable)",
	EnvVars: []string{"MIRROR_URIS"},
}

var StoreTimeoutFlag = &cli.DurationFlag{
	Name:  "store-timeout",
	Value: 30 * time.Second,
	Usage: "timeout of each document store call",
}

var GitHubOwnerFlag = &cli.StringFlag{
	Name:    "github-owner",
	Value:   "akashverma-ctrl",
	Usage:   "owner of the repository holding the registrations file",
	EnvVars: []string{"GITHUB_OWNER"},
}

var GitHubRepoFlag = &cli.StringFlag{
	Name:    "github-repo",
	Value:   "receiptify-data",
	Usage:   "repository holding the registrations file",
	EnvVars: []string{"GITHUB_REPO"},
}

var GitHubPathFlag = &cli.StringFlag{
	Name:    "github-path",
	Value:   "registrations.yaml",
	Usage:   "path of the registrations file in the repository",
	EnvVars: []string{"GITHUB_FILE_PATH"},
}

var GitHubBranchFlag = &cli.StringFlag{
	Name:    "github-branch",
	Value:   "main",
	Usage:   "branch to read from and commit to",
	EnvVars: []string{"GITHUB_BRANCH"},
}

var GitHubAPIURLFlag = &cli.StringFlag{
	Name:    "github-api-url",
	Value:   storage.DefaultGitHubAPIURL,
	Usage:   "GitHub REST API base URL",
	EnvVars: []string{"GITHUB_API_URL"},
}

var GitHubTokenFlag = &cli.StringFlag{
	Name:    "github-token",
	Usage:   "GitHub token with contents read/write access",
	EnvVars: []string{"GITHUB_TOKEN"},
}

var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault token for vault:// stores",
	EnvVars: []string{"VAULT_TOKEN"},
}

var CommitMessageFlag = &cli.StringFlag{
	Name:  "commit-message",
	Value: registration.DefaultCommitMessage,
	Usage: "commit message template, %s is replaced with the transaction id",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "registration-ledger",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var StoreFlags = []cli.Flag{
	StoreURIFlag,
	MirrorURIFlag,
	StoreTimeoutFlag,
	GitHubOwnerFlag,
	GitHubRepoFlag,
	GitHubPathFlag,
	GitHubBranchFlag,
	GitHubAPIURLFlag,
	GitHubTokenFlag,
	VaultTokenFlag,
}

var CommonFlags = []cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
