package services

import (
	"context"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// gitLabService implements Service over the GitLab REST API.
type gitLabService struct {
	name    string
	client  *gitlab.Client
	options Options
}

var gitLabCapabilities = map[Capability]struct{}{
	CapabilityGitHosting: {},
	CapabilityReleases:   {},
	CapabilityUsers:      {},
}

func newGitLabService(name string, options Options) (Service, error) {
	const op = "services.GitLab"

	token := options.Token()
	if token == "" {
		return nil, nyxerrors.Security(op, "the GitLab service requires the AUTHENTICATION_TOKEN option").
			WithFields("services." + name + ".options.AUTHENTICATION_TOKEN")
	}

	var clientOptions []gitlab.ClientOptionFunc
	if uri := options.BaseURI(); uri != "" {
		clientOptions = append(clientOptions, gitlab.WithBaseURL(uri))
	}
	client, err := gitlab.NewClient(token, clientOptions...)
	if err != nil {
		return nil, nyxerrors.ServiceWrap(err, op, "unable to build the GitLab client")
	}

	return &gitLabService{name: name, client: client, options: options}, nil
}

func (s *gitLabService) Name() string { return s.name }

func (s *gitLabService) Provider() Provider { return ProviderGitLab }

func (s *gitLabService) Supports(capability Capability) bool {
	_, ok := gitLabCapabilities[capability]
	return ok
}

// projectID is the owner/name path GitLab uses to address projects.
func (s *gitLabService) projectID() (string, error) {
	owner := s.options.RepositoryOwner()
	repo := s.options.RepositoryName()
	if owner == "" || repo == "" {
		return "", nyxerrors.Configuration("services.GitLab", "the GitLab service requires the REPOSITORY_OWNER and REPOSITORY_NAME options").
			WithFields("services." + s.name + ".options.REPOSITORY_OWNER", "services."+s.name+".options.REPOSITORY_NAME")
	}
	return owner + "/" + repo, nil
}

// GetAuthenticatedUser returns the user owning the configured token.
func (s *gitLabService) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	const op = "services.GitLab.GetAuthenticatedUser"

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	retrier := newReadRetry[*User]()
	return retrier.Do(ctx, func(ctx context.Context) (*User, error) {
		user, resp, err := s.client.Users.CurrentUser(gitlab.WithContext(ctx))
		if err != nil {
			return nil, s.wrap(err, resp, op, "unable to get the authenticated user")
		}
		return &User{
			ID:    strconv.Itoa(user.ID),
			Login: user.Username,
			Name:  user.Name,
		}, nil
	})
}

// GetReleaseByTag returns the release for the tag, nil when none exists.
func (s *gitLabService) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	const op = "services.GitLab.GetReleaseByTag"

	project, err := s.projectID()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	retrier := newReadRetry[*Release]()
	return retrier.Do(ctx, func(ctx context.Context) (*Release, error) {
		release, resp, err := s.client.Releases.GetRelease(project, tag, gitlab.WithContext(ctx))
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return nil, nil
			}
			return nil, s.wrap(err, resp, op, "unable to get the release for tag "+tag)
		}
		return releaseFromGitLab(release), nil
	})
}

// CreateRelease publishes a new release for the tag. Never retried.
func (s *gitLabService) CreateRelease(ctx context.Context, title, tag, body string) (*Release, error) {
	const op = "services.GitLab.CreateRelease"

	project, err := s.projectID()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	release, resp, err := s.client.Releases.CreateRelease(project, &gitlab.CreateReleaseOptions{
		Name:        gitlab.Ptr(title),
		TagName:     gitlab.Ptr(tag),
		Description: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, s.wrap(err, resp, op, "unable to create the release for tag "+tag)
	}
	log.Debug("created GitLab release", "service", s.name, "tag", tag)
	return releaseFromGitLab(release), nil
}

// PublishReleaseAssets attaches assets as release links. GitLab models
// release assets as URLs, so each asset path must be a link.
func (s *gitLabService) PublishReleaseAssets(ctx context.Context, release *Release, assets []Asset) error {
	const op = "services.GitLab.PublishReleaseAssets"

	project, err := s.projectID()
	if err != nil {
		return err
	}

	for _, asset := range assets {
		linkCtx, cancel := withTimeout(ctx)
		_, resp, err := s.client.ReleaseLinks.CreateReleaseLink(project, release.Tag, &gitlab.CreateReleaseLinkOptions{
			Name: gitlab.Ptr(asset.Name),
			URL:  gitlab.Ptr(asset.Path),
		}, gitlab.WithContext(linkCtx))
		cancel()
		if err != nil {
			return s.wrap(err, resp, op, "unable to attach release asset "+asset.Name)
		}
		log.Debug("attached release asset", "service", s.name, "asset", asset.Name)
	}
	return nil
}

func (s *gitLabService) wrap(err error, resp *gitlab.Response, op, message string) error {
	err = nyxerrors.RedactError(err)
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nyxerrors.Wrap(err, nyxerrors.KindSecurity, op, message+": credentials rejected")
		}
	}
	return nyxerrors.ServiceWrap(err, op, message)
}

func releaseFromGitLab(release *gitlab.Release) *Release {
	return &Release{
		Title: release.Name,
		Tag:   release.TagName,
		Body:  release.Description,
	}
}
