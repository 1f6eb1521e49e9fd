package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/turuturu/turuturu/internal/cache"
	"github.com/turuturu/turuturu/internal/clock"
	"github.com/turuturu/turuturu/internal/config"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	verifyTimeout = 5 * time.Second
	principalTTL  = 60 * time.Second
)

// Client verifies bearer tokens against the identity provider's
// user-info endpoint and upserts the matching Profile row. Verified
// principals are cached briefly; admin status is re-read from the
// profile row on every hit so a revoked admin loses access within the
// cache window, not the token lifetime.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	log        *zap.Logger
	clock      clock.Clock
	profiles   profiledomain.Service
	cache      *cache.TTLCache[string, Principal]
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Profiles profiledomain.Service
}

func New(p Params) Verifier {
	return &Client{
		baseURL:    strings.TrimRight(p.Config.IdentityURL, "/"),
		serviceKey: p.Config.IdentityServiceKey,
		http:       &http.Client{Timeout: verifyTimeout},
		log:        p.Log.Named("identity.client"),
		clock:      p.Clock,
		profiles:   p.Profiles,
		cache:      cache.NewTTLCache[string, Principal](),
	}
}

type userInfo struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

func (c *Client) Verify(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrUnauthenticated
	}

	key := cacheKey(token)
	if principal, ok := c.cache.Get(key); ok {
		return c.withAdmin(ctx, principal)
	}

	info, err := c.fetchUser(ctx, token)
	if err != nil {
		return Principal{}, err
	}

	name := info.UserMetadata.Name
	if name == "" {
		name = info.UserMetadata.FullName
	}
	req := profiledomain.UpsertProfileRequest{
		ID:    info.ID,
		Email: info.Email,
	}
	if name != "" {
		req.Name = &name
	}
	profile, err := c.profiles.Upsert(ctx, req)
	if err != nil {
		return Principal{}, err
	}

	principal := Principal{
		UserID: profile.ID,
		Email:  profile.Email,
	}
	if profile.Name != nil {
		principal.Name = *profile.Name
	}
	c.cache.Set(key, principal, principalTTL)

	principal.IsAdmin = profile.IsAdmin
	return principal, nil
}

func (c *Client) fetchUser(ctx context.Context, token string) (userInfo, error) {
	info, err := c.fetchUserOnce(ctx, token)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		c.log.Warn("identity verify retried", zap.Error(err))
		info, err = c.fetchUserOnce(ctx, token)
	}
	return info, err
}

func (c *Client) fetchUserOnce(ctx context.Context, token string) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return userInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return userInfo{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return userInfo{}, ErrUnauthenticated
	case resp.StatusCode >= http.StatusInternalServerError:
		return userInfo{}, ErrUnavailable
	default:
		return userInfo{}, ErrUnauthenticated
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return userInfo{}, ErrUnavailable
	}
	if strings.TrimSpace(info.ID) == "" || strings.TrimSpace(info.Email) == "" {
		return userInfo{}, ErrUnauthenticated
	}
	return info, nil
}

// withAdmin refreshes admin status from the profile row for a cached
// principal.
func (c *Client) withAdmin(ctx context.Context, principal Principal) (Principal, error) {
	profile, err := c.profiles.GetByID(ctx, principal.UserID)
	if err != nil {
		return Principal{}, err
	}
	principal.IsAdmin = profile.IsAdmin
	return principal, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func isTransient(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

var Module = fx.Module("identity",
	fx.Provide(New),
)
