package api

import (
	"context"

	version "github.com/hashicorp/go-version"

	"github.com/matshelf/matshelf/pkg/errors"
)

// UpdateInfo is the result of a client version check against the backend.
type UpdateInfo struct {
	LatestVersion   string
	UpdateAvailable bool
	// Required means the running client is older than the minimum version
	// the backend still serves and must be updated.
	Required bool
}

type versionResponse struct {
	Latest  string `json:"latest_version"`
	Minimum string `json:"minimum_version"`
}

// CheckUpdate compares the running client version against the versions the
// backend reports.
func (c *Client) CheckUpdate(ctx context.Context, currentVersion string) (*UpdateInfo, error) {
	var resp versionResponse
	if err := c.request(ctx, "GET", "/client/version", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to check for updates")
	}
	if resp.Latest == "" {
		return nil, errors.Wrap(errors.ErrNotPopulated, "latest version missing from response")
	}

	current, err := version.NewVersion(currentVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid client version %q", currentVersion)
	}
	latest, err := version.NewVersion(resp.Latest)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid latest version %q", resp.Latest)
	}

	info := &UpdateInfo{
		LatestVersion:   resp.Latest,
		UpdateAvailable: current.LessThan(latest),
	}
	if resp.Minimum != "" {
		minimum, err := version.NewVersion(resp.Minimum)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid minimum version %q", resp.Minimum)
		}
		info.Required = current.LessThan(minimum)
	}
	return info, nil
}
