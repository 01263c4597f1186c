// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/recommend"
)

// listResponse is the paginated envelope of search and list endpoints.
type listResponse struct {
	Page         int          `json:"page"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
	Results      []listResult `json:"results"`
}

type listResult struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Page         int                     `json:"page"`
	TotalPages   int                     `json:"totalPages"`
	TotalResults int                     `json:"totalResults"`
	Items        []recommend.CatalogItem `json:"items"`
}

// Search queries the catalog by free text. An empty media type searches
// movies and tv together.
func (c *Client) Search(ctx context.Context, query string, page int, mediaType recommend.MediaType) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	scope := "multi"
	if mediaType != "" {
		scope = string(mediaType.CatalogType())
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("include_adult", "false")

	var resp listResponse
	if err := c.getJSON(ctx, endpointSearch, "/search/"+scope, q, &resp); err != nil {
		return nil, err
	}

	out := &SearchPage{Page: resp.Page, TotalPages: resp.TotalPages, TotalResults: resp.TotalResults}
	for _, r := range resp.Results {
		mt := recommend.MediaType(r.MediaType)
		if scope != "multi" {
			mt = recommend.MediaType(scope)
		}
		// multi search also returns people
		if mt != recommend.MediaMovie && mt != recommend.MediaTV {
			continue
		}
		out.Items = append(out.Items, toCatalogItem(r, mt))
	}
	return out, nil
}

// Details fetches full title details and maps them onto a Title without an
// id. Credits, keywords and age ratings are requested in the same call.
func (c *Client) Details(ctx context.Context, externalID int64, mediaType recommend.MediaType) (*recommend.Title, error) {
	ct := mediaType.CatalogType()
	q := url.Values{}
	if ct == recommend.MediaMovie {
		q.Set("append_to_response", "credits,keywords,release_dates")
	} else {
		q.Set("append_to_response", "credits,keywords,content_ratings")
	}

	var d details
	path := fmt.Sprintf("/%s/%d", ct, externalID)
	if err := c.getJSON(ctx, endpointDetails, path, q, &d); err != nil {
		return nil, err
	}
	t := d.toTitle(ct)
	if mediaType.Valid() {
		t.MediaType = mediaType
	}
	return t, nil
}

// Similar returns titles similar to the given one.
func (c *Client) Similar(ctx context.Context, mediaType recommend.MediaType, externalID int64) ([]recommend.CatalogItem, error) {
	ct := mediaType.CatalogType()
	return c.list(ctx, endpointSimilar, fmt.Sprintf("/%s/%d/similar", ct, externalID), ct)
}

// Trending returns this week's trending titles.
func (c *Client) Trending(ctx context.Context, mediaType recommend.MediaType) ([]recommend.CatalogItem, error) {
	ct := mediaType.CatalogType()
	return c.list(ctx, endpointTrending, fmt.Sprintf("/trending/%s/week", ct), ct)
}

// Popular returns the currently popular titles.
func (c *Client) Popular(ctx context.Context, mediaType recommend.MediaType) ([]recommend.CatalogItem, error) {
	ct := mediaType.CatalogType()
	return c.list(ctx, endpointPopular, fmt.Sprintf("/%s/popular", ct), ct)
}

func (c *Client) list(ctx context.Context, endpoint, path string, mt recommend.MediaType) ([]recommend.CatalogItem, error) {
	var resp listResponse
	if err := c.getJSON(ctx, endpoint, path, url.Values{}, &resp); err != nil {
		return nil, err
	}
	items := make([]recommend.CatalogItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, toCatalogItem(r, mt))
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	body, err := c.get(ctx, endpoint, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %v: %w", endpoint, err, recommend.ErrUpstream)
	}
	return nil
}

func toCatalogItem(r listResult, mt recommend.MediaType) recommend.CatalogItem {
	name := r.Title
	if name == "" {
		name = r.Name
	}
	return recommend.CatalogItem{
		ExternalID:  r.ID,
		MediaType:   mt,
		Title:       name,
		Popularity:  r.Popularity,
		VoteAverage: r.VoteAverage,
	}
}

var (
	_ recommend.Catalog = (*Client)(nil)
)
