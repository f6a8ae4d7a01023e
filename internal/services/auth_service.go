package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/luvnest/internal/config"
	"github.com/localnerve/luvnest/internal/utils"
	"github.com/rs/zerolog"
)

// ErrInvalidSession is returned for cookies the authorizer rejects.
var ErrInvalidSession = errors.New("session is not valid")

// SessionValidator resolves an authorizer session cookie to the user it
// belongs to. The user is a plain map with at least an "id" key.
type SessionValidator interface {
	ValidateSession(cookie string, roles []string) (map[string]interface{}, error)
}

// AuthService validates sessions against the Authorizer service. The client
// is created on first use, once the request origin is known.
type AuthService struct {
	cfg    *config.Config
	log    zerolog.Logger
	once   sync.Once
	client *authorizer.AuthorizerClient
	err    error
}

// NewAuthService creates an AuthService.
func NewAuthService(cfg *config.Config, log zerolog.Logger) *AuthService {
	return &AuthService{cfg: cfg, log: log.With().Str("component", "auth").Logger()}
}

// Init creates the Authorizer client. Only the first call has any effect.
func (a *AuthService) Init(requestProtocol, requestHost string) error {
	a.once.Do(func() {
		if err := utils.PingAuthorizer(a.cfg.AuthzURL); err != nil {
			a.err = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		a.log.Info().
			Str("authorizerURL", a.cfg.AuthzURL).
			Str("clientID", a.cfg.AuthzClientID).
			Str("redirectURL", redirectURL).
			Msg("initializing authorizer")

		a.client, a.err = authorizer.NewAuthorizerClient(a.cfg.AuthzClientID, a.cfg.AuthzURL, redirectURL, nil)
		if a.err != nil {
			a.err = fmt.Errorf("failed to create authorizer client: %w", a.err)
		}
	})
	return a.err
}

// Initialized reports whether the client is ready.
func (a *AuthService) Initialized() bool {
	return a.client != nil
}

// ValidateSession validates cookie for roles and returns the session user.
func (a *AuthService) ValidateSession(cookie string, roles []string) (map[string]interface{}, error) {
	if a.client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolePtrs := make([]*string, len(roles))
	for i := range roles {
		rolePtrs[i] = &roles[i]
	}

	res, err := a.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolePtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, ErrInvalidSession
	}

	// Handlers read the user as a map.
	b, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("failed to read session user: %w", err)
	}
	var user map[string]interface{}
	if err := json.Unmarshal(b, &user); err != nil {
		return nil, fmt.Errorf("failed to read session user: %w", err)
	}
	if _, ok := user["id"].(string); !ok {
		return nil, ErrInvalidSession
	}
	return user, nil
}
