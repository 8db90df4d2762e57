package auth

import (
	"context"
	"time"
)

// Auther is the concrete Authenticator. It verifies identities through the
// IdentityProvider, delegates registrations to the AccountRegisterer, and
// mints token pairs through the TokenService.
type Auther struct {
	provider     IdentityProvider
	registrar    AccountRegisterer
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, registrar AccountRegisterer, cfg Config) *Auther {
	return &Auther{
		provider:     provider,
		registrar:    registrar,
		tokenService: NewTokenService(cfg, defLogger{}),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService overrides the token service, mostly for tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and mints a fresh token pair
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, *User, error) {
	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": NormalizeEmail(email),
			"error": err.Error(),
		})
		return nil, nil, err
	}

	pair, err := s.mintTokenPair(user)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"error": err.Error(),
		})
		return nil, nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), nil)

	return pair, user, nil
}

// Register creates the account and logs the new user in
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*TokenPair, *User, error) {
	user, err := s.registrar.RegisterUser(ctx, msg)
	if err != nil {
		s.logger.Error("Register user error", "error", err)
		return nil, nil, err
	}

	pair, err := s.mintTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventRegistration, s.actorFromUser(user), user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return pair, user, nil
}

// Refresh validates the refresh token and re-issues the access token only.
// The refresh token is never rotated here; it stays valid until expiry.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := s.tokenService.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Info("Refresh token rejected", "error", err)
		return "", nil, err
	}

	user, err := s.provider.FindByID(ctx, claims.UserID())
	if err != nil {
		s.logger.Warn("Refresh token references missing user", "user_id", claims.UserID())
		return "", nil, err
	}

	access, err := s.tokenService.IssueAccess(user)
	if err != nil {
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRefresh, s.actorFromUser(user), user.ID.String(), nil)

	return access, user, nil
}

// UserFromAccessToken resolves the user behind a valid access token
func (s *Auther) UserFromAccessToken(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokenService.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	return s.provider.FindByID(ctx, claims.UserID())
}

func (s *Auther) mintTokenPair(user *User) (*TokenPair, error) {
	access, err := s.tokenService.IssueAccess(user)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		return nil, err
	}

	refresh, err := s.tokenService.IssueRefresh(user.ID.String())
	if err != nil {
		s.logger.Error("failed to issue refresh token", "error", err)
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}

var _ Authenticator = (*Auther)(nil)
