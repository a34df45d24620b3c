package updater

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/adt-dev/adt/internal/branding"
	"github.com/tcnksm/go-latest"
)

// Result is the outcome of a release check.
type Result struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	// Outdated is true when Latest is newer than Current.
	Outdated bool `json:"outdated"`
	// ReleaseURL points at the release page of the repository.
	ReleaseURL string `json:"release_url"`
}

// LatestFunc returns the newest released version.
type LatestFunc func(ctx context.Context) (string, error)

// Checker compares the running version with the newest release.
type Checker struct {
	Owner      string
	Repository string
	// Latest looks up the newest release. Defaults to the GitHub tags of
	// Owner/Repository.
	Latest LatestFunc
}

// New returns a Checker for the repository named by branding.GitHubRepo.
func New() *Checker {
	owner, repo, _ := strings.Cut(branding.GitHubRepo(), "/")
	return &Checker{Owner: owner, Repository: repo}
}

// Check fetches the newest release and compares it with current. A current
// version that is not semver (e.g. "dev") is never reported as outdated.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	lookup := c.Latest
	if lookup == nil {
		lookup = c.githubTags
	}
	newest, err := lookup(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Current:    current,
		Latest:     newest,
		ReleaseURL: fmt.Sprintf("https://github.com/%s/%s/releases/latest", c.Owner, c.Repository),
	}
	if _, err := parseSemver(current); err != nil {
		return res, nil
	}
	outdated, err := IsUpdateAvailable(current, newest)
	if err != nil {
		return nil, err
	}
	res.Outdated = outdated
	return res, nil
}

// githubTags asks go-latest for the newest tag. The lookup has no context
// support, so it runs in a goroutine the caller may abandon.
func (c *Checker) githubTags(ctx context.Context) (string, error) {
	type answer struct {
		version string
		err     error
	}
	ch := make(chan answer, 1)
	go func() {
		src := &latest.GithubTag{
			Owner:             c.Owner,
			Repository:        c.Repository,
			FixVersionStrFunc: latest.DeleteFrontV(),
		}
		res, err := latest.Check(src, "0.0.0")
		if err != nil {
			ch <- answer{err: fmt.Errorf("checking latest release of %s/%s: %w", c.Owner, c.Repository, err)}
			return
		}
		ch <- answer{version: res.Current}
	}()
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("checking latest release: %w", ctx.Err())
	case a := <-ch:
		return a.version, a.err
	}
}

// CompareVersions compares two versions, tolerating a leading "v".
// Returns -1 if current < latest, 0 if equal, 1 if current > latest.
func CompareVersions(current, latest string) (int, error) {
	cv, err := parseSemver(current)
	if err != nil {
		return 0, fmt.Errorf("parsing current version %q: %w", current, err)
	}
	lv, err := parseSemver(latest)
	if err != nil {
		return 0, fmt.Errorf("parsing latest version %q: %w", latest, err)
	}
	return cv.Compare(lv), nil
}

// IsUpdateAvailable returns true if latest is newer than current.
func IsUpdateAvailable(current, latest string) (bool, error) {
	cmp, err := CompareVersions(current, latest)
	if err != nil {
		return false, err
	}
	return cmp < 0, nil
}

// PrintResult writes a one or two line summary of res.
func PrintResult(w io.Writer, res *Result) {
	switch {
	case res.Outdated:
		fmt.Fprintf(w, "Update available: %s -> %s\n", res.Current, res.Latest)
		fmt.Fprintf(w, "    Download it from %s\n", res.ReleaseURL)
	case res.Latest == "":
		fmt.Fprintln(w, "No releases found")
	default:
		fmt.Fprintf(w, "Latest release is %s; %s is up to date\n", res.Latest, res.Current)
	}
}

func parseSemver(version string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(version, "v"))
}
