package services

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// gitHubService implements Service over the GitHub REST API.
type gitHubService struct {
	name    string
	client  *github.Client
	options Options
}

var gitHubCapabilities = map[Capability]struct{}{
	CapabilityGitHosting: {},
	CapabilityReleases:   {},
	CapabilityUsers:      {},
}

func newGitHubService(name string, options Options) (Service, error) {
	const op = "services.GitHub"

	token := options.Token()
	if token == "" {
		return nil, nyxerrors.Security(op, "the GitHub service requires the AUTHENTICATION_TOKEN option").
			WithFields("services." + name + ".options.AUTHENTICATION_TOKEN")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))

	if uri := options.BaseURI(); uri != "" {
		if !strings.HasSuffix(uri, "/") {
			uri += "/"
		}
		var err error
		client, err = client.WithEnterpriseURLs(uri, uri)
		if err != nil {
			return nil, nyxerrors.ServiceWrap(err, op, "invalid BASE_URI "+uri).
				WithFields("services." + name + ".options.BASE_URI")
		}
	}

	return &gitHubService{name: name, client: client, options: options}, nil
}

func (s *gitHubService) Name() string { return s.name }

func (s *gitHubService) Provider() Provider { return ProviderGitHub }

func (s *gitHubService) Supports(capability Capability) bool {
	_, ok := gitHubCapabilities[capability]
	return ok
}

func (s *gitHubService) repository() (owner, repo string, err error) {
	owner = s.options.RepositoryOwner()
	repo = s.options.RepositoryName()
	if owner == "" || repo == "" {
		return "", "", nyxerrors.Configuration("services.GitHub", "the GitHub service requires the REPOSITORY_OWNER and REPOSITORY_NAME options").
			WithFields("services." + s.name + ".options.REPOSITORY_OWNER", "services."+s.name+".options.REPOSITORY_NAME")
	}
	return owner, repo, nil
}

// GetAuthenticatedUser returns the user owning the configured token.
func (s *gitHubService) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	const op = "services.GitHub.GetAuthenticatedUser"

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	retrier := newReadRetry[*User]()
	return retrier.Do(ctx, func(ctx context.Context) (*User, error) {
		user, resp, err := s.client.Users.Get(ctx, "")
		if err != nil {
			return nil, s.wrap(err, resp, op, "unable to get the authenticated user")
		}
		return &User{
			ID:    strconv.FormatInt(user.GetID(), 10),
			Login: user.GetLogin(),
			Name:  user.GetName(),
		}, nil
	})
}

// GetReleaseByTag returns the release for the tag, nil when none exists.
func (s *gitHubService) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	const op = "services.GitHub.GetReleaseByTag"

	owner, repo, err := s.repository()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	retrier := newReadRetry[*Release]()
	return retrier.Do(ctx, func(ctx context.Context) (*Release, error) {
		release, resp, err := s.client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return nil, nil
			}
			return nil, s.wrap(err, resp, op, "unable to get the release for tag "+tag)
		}
		return releaseFromGitHub(release), nil
	})
}

// CreateRelease publishes a new release for the tag. Never retried.
func (s *gitHubService) CreateRelease(ctx context.Context, title, tag, body string) (*Release, error) {
	const op = "services.GitHub.CreateRelease"

	owner, repo, err := s.repository()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	release, resp, err := s.client.Repositories.CreateRelease(ctx, owner, repo, &github.RepositoryRelease{
		TagName: github.String(tag),
		Name:    github.String(title),
		Body:    github.String(body),
	})
	if err != nil {
		return nil, s.wrap(err, resp, op, "unable to create the release for tag "+tag)
	}
	log.Debug("created GitHub release", "service", s.name, "tag", tag, "url", release.GetHTMLURL())
	return releaseFromGitHub(release), nil
}

// PublishReleaseAssets uploads local files as release assets.
func (s *gitHubService) PublishReleaseAssets(ctx context.Context, release *Release, assets []Asset) error {
	const op = "services.GitHub.PublishReleaseAssets"

	owner, repo, err := s.repository()
	if err != nil {
		return err
	}

	for _, asset := range assets {
		file, err := os.Open(asset.Path)
		if err != nil {
			return nyxerrors.IOWrap(err, op, "unable to open release asset "+asset.Path)
		}

		uploadCtx, cancel := withTimeout(ctx)
		_, resp, err := s.client.Repositories.UploadReleaseAsset(uploadCtx, owner, repo, release.ID, &github.UploadOptions{
			Name:      asset.Name,
			MediaType: asset.Type,
		}, file)
		cancel()
		_ = file.Close()
		if err != nil {
			return s.wrap(err, resp, op, "unable to upload release asset "+asset.Name)
		}
		log.Debug("uploaded release asset", "service", s.name, "asset", asset.Name)
	}
	return nil
}

func (s *gitHubService) wrap(err error, resp *github.Response, op, message string) error {
	err = nyxerrors.RedactError(err)
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nyxerrors.Wrap(err, nyxerrors.KindSecurity, op, message+": credentials rejected")
		}
	}
	return nyxerrors.ServiceWrap(err, op, message)
}

func releaseFromGitHub(release *github.RepositoryRelease) *Release {
	return &Release{
		ID:    release.GetID(),
		Title: release.GetName(),
		Tag:   release.GetTagName(),
		Body:  release.GetBody(),
		URL:   release.GetHTMLURL(),
	}
}
