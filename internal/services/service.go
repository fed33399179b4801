// Package services provides the capability-based hosting service
// abstraction consumed by the Publish phase.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/relicta-tech/nyx/internal/config"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Capability is a feature a hosting provider may support.
type Capability string

const (
	// CapabilityGitHosting covers remote git repositories.
	CapabilityGitHosting Capability = "GIT_HOSTING"
	// CapabilityReleases covers hosted releases.
	CapabilityReleases Capability = "RELEASES"
	// CapabilityUsers covers user inquiries.
	CapabilityUsers Capability = "USERS"
)

// Provider identifies a hosting provider implementation.
type Provider string

const (
	// ProviderGitHub is github.com or a GitHub Enterprise instance.
	ProviderGitHub Provider = "GITHUB"
	// ProviderGitLab is gitlab.com or a self-managed GitLab instance.
	ProviderGitLab Provider = "GITLAB"
)

// Well-known service option keys. Values are template-resolved before they
// reach the provider.
const (
	OptionAuthenticationToken = "AUTHENTICATION_TOKEN"
	OptionRepositoryName      = "REPOSITORY_NAME"
	OptionRepositoryOwner     = "REPOSITORY_OWNER"
	OptionBaseURI             = "BASE_URI"
)

// DefaultTimeout bounds every network operation unless configured otherwise.
const DefaultTimeout = 60 * time.Second

// User is an authenticated provider user.
type User struct {
	ID    string
	Login string
	Name  string
}

// Release is a hosted release.
type Release struct {
	// ID is the provider-internal release identifier.
	ID int64
	// Title is the release title.
	Title string
	// Tag is the tag the release points at.
	Tag string
	// Body is the release description.
	Body string
	// URL is the provider page for the release.
	URL string
}

// Asset is a release asset to attach on publication.
type Asset struct {
	// Name is the asset display name.
	Name string
	// Description is the asset description.
	Description string
	// Type is the MIME type.
	Type string
	// Path is a local file path or a URL, depending on the provider.
	Path string
}

// Service is a hosting provider as consumed by Publish. Calling an operation
// outside the provider's declared capabilities fails with an unsupported
// operation error.
type Service interface {
	// Name returns the configured service name.
	Name() string
	// Provider returns the provider kind.
	Provider() Provider
	// Supports reports whether the provider declares the capability.
	Supports(capability Capability) bool

	// GetAuthenticatedUser returns the user owning the configured token.
	GetAuthenticatedUser(ctx context.Context) (*User, error)
	// GetReleaseByTag returns the release for a tag, nil when none exists.
	GetReleaseByTag(ctx context.Context, tag string) (*Release, error)
	// CreateRelease publishes a new release for the tag.
	CreateRelease(ctx context.Context, title, tag, body string) (*Release, error)
	// PublishReleaseAssets attaches assets to an existing release.
	PublishReleaseAssets(ctx context.Context, release *Release, assets []Asset) error
}

// Options are the resolved provider options.
type Options map[string]string

// Token returns the authentication token option.
func (o Options) Token() string { return o[OptionAuthenticationToken] }

// RepositoryName returns the repository name option.
func (o Options) RepositoryName() string { return o[OptionRepositoryName] }

// RepositoryOwner returns the repository owner option.
func (o Options) RepositoryOwner() string { return o[OptionRepositoryOwner] }

// BaseURI returns the base URI option.
func (o Options) BaseURI() string { return o[OptionBaseURI] }

// New instantiates the provider configured for the named service. Option
// values must already be template-resolved.
func New(name string, cfg config.ServiceConfig, options Options) (Service, error) {
	const op = "services.New"

	switch Provider(strings.ToUpper(cfg.Type)) {
	case ProviderGitHub:
		return newGitHubService(name, options)
	case ProviderGitLab:
		return newGitLabService(name, options)
	default:
		return nil, nyxerrors.Newf(nyxerrors.KindConfiguration, op, "service %q has an unsupported type %q", name, cfg.Type).
			WithFields("services." + name + ".type")
	}
}

// Unsupported builds the error returned for capability violations.
func Unsupported(provider Provider, capability Capability) error {
	return nyxerrors.Newf(nyxerrors.KindService, "services.Unsupported", "the %s provider does not support the %s capability", string(provider), string(capability))
}

// newReadRetry builds the retry policy for idempotent network reads:
// three attempts with exponential backoff from one to four seconds.
// Writes are never auto-retried.
func newReadRetry[T any]() retry.Retry[T] {
	return retry.New[T](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      4 * time.Second,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    2.0,
		Jitter:        true,
		IsRetryable:   isRetryableError,
	})
}

// isRetryableError limits retries to transient transport failures.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if nyxerrors.IsKind(err, nyxerrors.KindSecurity) {
		return false
	}

	message := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "500", "502", "503", "504", "timeout", "connection", "temporary"} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// withTimeout applies the default network deadline unless the caller set a
// shorter one.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
