package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/matshelf/matshelf/pkg/errors"
)

// AssetRecord is the wire format of one asset in catalog listings. The local
// index turns records into its own asset data via its construction rules.
type AssetRecord struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	URL         string   `json:"url,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Credits     int      `json:"credit"`
	ThumbURLs   []string `json:"thumb_urls,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	PurchasedAt string   `json:"purchased_at,omitempty"`

	// Render schema: per-workflow map descriptors and offered tags.
	Workflows   map[string][]MapDescRecord `json:"workflows,omitempty"`
	Sizes       []string                   `json:"sizes,omitempty"`
	Variants    []string                   `json:"variants,omitempty"`
	LODs        []string                   `json:"lods,omitempty"`
	SizeDefault string                     `json:"size_default,omitempty"`

	// Physical size as "2.4 x 2.4 m", empty when not surface-mapped.
	Dimensions string `json:"dimensions,omitempty"`

	// Watermarked free preview texture URLs.
	WatermarkedURLs []string `json:"toolbox_previews,omitempty"`
}

// MapDescRecord is the wire format of one offered texture map.
type MapDescRecord struct {
	TypeCode        string   `json:"type_code"`
	Sizes           []string `json:"sizes,omitempty"`
	Variants        []string `json:"variants,omitempty"`
	FilenamePreview string   `json:"filename_preview,omitempty"`
}

// AssetQuery selects a catalog listing page.
type AssetQuery struct {
	Category  string
	Search    string
	Page      int
	PerPage   int
	UserOwned bool
}

type assetListResponse struct {
	Assets []AssetRecord `json:"assets"`
	Total  int           `json:"total"`
}

func (q AssetQuery) encode() string {
	values := url.Values{}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Page > 0 {
		values.Set("page", fmt.Sprintf("%d", q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", fmt.Sprintf("%d", q.PerPage))
	}
	encoded := values.Encode()
	if encoded == "" {
		return ""
	}
	return "?" + encoded
}

// GetAssets fetches one page of the public catalog.
func (c *Client) GetAssets(ctx context.Context, query AssetQuery) ([]AssetRecord, int, error) {
	var resp assetListResponse
	if err := c.request(ctx, "GET", "/assets"+query.encode(), nil, &resp); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list assets")
	}
	return resp.Assets, resp.Total, nil
}

// GetUserAssets fetches one page of the purchased-assets listing.
func (c *Client) GetUserAssets(ctx context.Context, query AssetQuery) ([]AssetRecord, int, error) {
	if err := c.ensureToken(); err != nil {
		return nil, 0, err
	}
	var resp assetListResponse
	if err := c.request(ctx, "GET", "/user/assets"+query.encode(), nil, &resp); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list user assets")
	}
	return resp.Assets, resp.Total, nil
}

// GetAsset fetches a single asset record.
func (c *Client) GetAsset(ctx context.Context, assetID int) (*AssetRecord, error) {
	var record AssetRecord
	if err := c.request(ctx, "GET", fmt.Sprintf("/assets/%d", assetID), nil, &record); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch asset %d", assetID)
	}
	return &record, nil
}

// Category is one node of the catalog category tree.
type Category struct {
	Name     string     `json:"name"`
	Children []Category `json:"children,omitempty"`
}

// GetCategories fetches the category tree per asset type.
func (c *Client) GetCategories(ctx context.Context) (map[string][]Category, error) {
	var resp struct {
		Categories map[string][]Category `json:"categories"`
	}
	if err := c.request(ctx, "GET", "/categories", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch categories")
	}
	if resp.Categories == nil {
		return nil, errors.Wrap(errors.ErrNotPopulated, "categories missing from response")
	}
	return resp.Categories, nil
}

// UserBalance is the account's credit state.
type UserBalance struct {
	Credits          int `json:"credits"`
	SubscriptionLeft int `json:"subscription_credits_left"`
}

// GetUserBalance fetches the account's available credits.
func (c *Client) GetUserBalance(ctx context.Context) (*UserBalance, error) {
	if err := c.ensureToken(); err != nil {
		return nil, err
	}
	var balance UserBalance
	if err := c.request(ctx, "GET", "/user/balance", nil, &balance); err != nil {
		return nil, errors.Wrap(err, "failed to fetch balance")
	}
	return &balance, nil
}

// PurchaseAsset spends credits on an asset so it can be downloaded at full
// quality.
func (c *Client) PurchaseAsset(ctx context.Context, assetID int) error {
	if err := c.ensureToken(); err != nil {
		return err
	}
	payload := map[string]int{"asset_id": assetID}
	if err := c.request(ctx, "POST", "/user/purchases", payload, nil); err != nil {
		return errors.Wrapf(err, "failed to purchase asset %d", assetID)
	}
	return nil
}
