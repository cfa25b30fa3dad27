package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// UsersClient implements was.UsersClient. The user directory lives at the
// account level, outside the scanning API base path.
type UsersClient struct {
	httpClient *http.Client
	cache      *was.CacheManager
}

// NewUsersClient creates a new users client.
func NewUsersClient(httpClient *http.Client, cache *was.CacheManager) *UsersClient {
	return &UsersClient{
		httpClient: httpClient,
		cache:      cache,
	}
}

// List implements was.UsersClient.List.
func (c *UsersClient) List(ctx context.Context) ([]was.User, error) {
	body, err := c.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	users, err := decodeUsers(body)
	if err != nil {
		return nil, err
	}

	return users, nil
}

// Get implements was.UsersClient.Get.
func (c *UsersClient) Get(ctx context.Context, userID string) (*was.User, error) {
	if userID == "" {
		return nil, constants.ErrUserIDRequired
	}

	return getResource[was.User](ctx, c.httpClient, "/users/"+userID, "user")
}

// BuildOwnerMap implements was.UsersClient.BuildOwnerMap. The directory is
// fetched once per cache TTL; a single map serves owner lookups for every
// scan in a listing.
func (c *UsersClient) BuildOwnerMap(ctx context.Context) (map[string]was.OwnerInfo, error) {
	body, err := c.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	users, err := decodeUsers(body)
	if err != nil {
		return nil, err
	}

	owners := make(map[string]was.OwnerInfo, len(users))
	for _, user := range users {
		name := user.Name
		if name == "" {
			name = user.Username
		}

		owners[user.UserID] = was.OwnerInfo{
			Name:  name,
			Email: user.Email,
		}
	}

	return owners, nil
}

// EnrichScans implements was.UsersClient.EnrichScans. Scans are updated in
// place; owners missing from the directory leave the display fields blank
// rather than failing the whole listing.
func (c *UsersClient) EnrichScans(ctx context.Context, scans []was.Scan) error {
	if len(scans) == 0 {
		return nil
	}

	owners, err := c.BuildOwnerMap(ctx)
	if err != nil {
		return fmt.Errorf("building owner map: %w", err)
	}

	for i := range scans {
		owner, ok := owners[scans[i].OwnerID]
		if !ok {
			continue
		}

		scans[i].OwnerName = owner.Name
		scans[i].OwnerEmail = owner.Email
	}

	return nil
}

// fetchUsers returns the raw user directory payload, served from cache when
// one is configured.
func (c *UsersClient) fetchUsers(ctx context.Context) ([]byte, error) {
	fetch := func(ctx context.Context) ([]byte, error) {
		resp, err := c.httpClient.Get(ctx, "/users", nil)
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}

		return resp.Body, nil
	}

	if c.cache == nil {
		return fetch(ctx)
	}

	key := c.cache.GetCacheKey("GET", "/users", nil)

	return c.cache.GetOrCompute(ctx, key, constants.UsersCacheTTL, fetch)
}

// decodeUsers parses the user directory payload, which may be a bare array
// or an enveloped list.
func decodeUsers(body []byte) ([]was.User, error) {
	var list was.UserList

	err := json.Unmarshal(body, &list)
	if err != nil {
		return nil, fmt.Errorf("parsing users response: %w", err)
	}

	return list.Items, nil
}
