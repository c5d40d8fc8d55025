package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

// plainVerifier accepts password p when the stored hash is "hashed:"+p.
func plainVerifier(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

func authAccounts() *accountRepoStub {
	return newAccountRepoStub(
		Account{ID: "host-1", Email: "host@example.com", PasswordHash: "hashed:secret", Role: RoleReceptionist, Status: AccountActive},
		Account{ID: "guest-9", Email: "gone@example.com", PasswordHash: "hashed:secret", Role: RoleCustomer, Status: AccountDisabled},
	)
}

func sequence(values ...string) func() string {
	return func() string {
		if len(values) == 0 {
			return "exhausted"
		}
		next := values[0]
		values = values[1:]
		return next
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("opens a session for the host", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		svc := NewAuthService(authAccounts(), sessions, plainVerifier, sequence("sess-1", "tok-1"), fixedClock, 8*time.Hour)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: " Host@Example.com ", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if result.Session.ID != "sess-1" || result.Session.Token != "tok-1" || result.Session.AccountID != "host-1" {
			t.Fatalf("unexpected session %#v", result.Session)
		}
		if want := fixedNow.Add(8 * time.Hour); !result.Session.ExpiresAt.Equal(want) {
			t.Fatalf("expires at %v, want %v", result.Session.ExpiresAt, want)
		}
		if result.Account.PasswordHash != "" {
			t.Fatal("password hash leaked into the result")
		}
		if len(sessions.deleteCalls) != 1 || !sessions.deleteCalls[0].Equal(fixedNow) {
			t.Fatalf("expired sessions not swept at sign-in: %v", sessions.deleteCalls)
		}
	})

	t.Run("falls back to the session id when no separate token is produced", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(authAccounts(), newSessionRepositoryStub(), plainVerifier, sequence("only", ""), fixedClock, 0)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "host@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if result.Session.Token != "only" {
			t.Fatalf("token = %q", result.Session.Token)
		}
		if want := fixedNow.Add(defaultSessionTTL); !result.Session.ExpiresAt.Equal(want) {
			t.Fatalf("expires at %v, want default ttl", result.Session.ExpiresAt)
		}
	})

	t.Run("verifies argon2id hashes by default", func(t *testing.T) {
		t.Parallel()

		hash, err := CreatePasswordHash("correct horse", Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
		if err != nil {
			t.Fatalf("CreatePasswordHash: %v", err)
		}
		accounts := newAccountRepoStub(Account{ID: "guest-1", Email: "guest@example.com", PasswordHash: hash, Role: RoleCustomer, Status: AccountActive})
		svc := NewAuthService(accounts, newSessionRepositoryStub(), nil, sequence("a", "b", "c", "d"), fixedClock, time.Hour)

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "guest@example.com", Password: "correct horse"}); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "guest@example.com", Password: "wrong horse"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	rejections := []struct {
		name   string
		params AuthenticateParams
		want   error
	}{
		{name: "wrong password", params: AuthenticateParams{Email: "host@example.com", Password: "nope"}, want: ErrInvalidCredentials},
		{name: "unknown email", params: AuthenticateParams{Email: "nobody@example.com", Password: "secret"}, want: ErrInvalidCredentials},
		{name: "blank email", params: AuthenticateParams{Password: "secret"}, want: ErrInvalidCredentials},
		{name: "blank password", params: AuthenticateParams{Email: "host@example.com"}, want: ErrInvalidCredentials},
		{name: "disabled account", params: AuthenticateParams{Email: "gone@example.com", Password: "secret"}, want: ErrAccountDisabled},
	}
	for _, tc := range rejections {
		tc := tc
		t.Run("rejects "+tc.name, func(t *testing.T) {
			t.Parallel()

			sessions := newSessionRepositoryStub()
			svc := NewAuthService(authAccounts(), sessions, plainVerifier, sequence("s", "t"), fixedClock, time.Hour)

			if _, err := svc.Authenticate(context.Background(), tc.params); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(sessions.sessionsByID) != 0 {
				t.Fatal("no session should be stored on rejection")
			}
		})
	}

	t.Run("propagates session store failures", func(t *testing.T) {
		t.Parallel()

		for name, configure := range map[string]func(*sessionRepositoryStub, error){
			"create": func(s *sessionRepositoryStub, err error) { s.createErr = err },
			"sweep":  func(s *sessionRepositoryStub, err error) { s.deleteErr = err },
		} {
			expected := errors.New(name + " failed")
			sessions := newSessionRepositoryStub()
			configure(sessions, expected)
			svc := NewAuthService(authAccounts(), sessions, plainVerifier, sequence("s", "t"), fixedClock, time.Hour)

			if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "host@example.com", Password: "secret"}); !errors.Is(err, expected) {
				t.Fatalf("%s: expected %v, got %v", name, expected, err)
			}
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("stamps the revocation time", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		sessions.seed(Session{ID: "sess-1", AccountID: "host-1", Token: "tok", CreatedAt: fixedNow, UpdatedAt: fixedNow, ExpiresAt: fixedNow.Add(time.Hour)})
		svc := NewAuthService(nil, sessions, nil, nil, fixedClock, time.Hour)

		if err := svc.RevokeSession(context.Background(), " tok "); err != nil {
			t.Fatalf("RevokeSession: %v", err)
		}
		if revoked := sessions.sessionsByID["sess-1"].RevokedAt; revoked == nil || !revoked.Equal(fixedNow) {
			t.Fatalf("RevokedAt = %v, want %v", revoked, fixedNow)
		}
	})

	boom := errors.New("boom")
	cases := []struct {
		name      string
		token     string
		revokeErr error
		want      error
	}{
		{name: "blank token", token: "  ", want: ErrInvalidCredentials},
		{name: "unknown token", token: "missing", want: ErrInvalidCredentials},
		{name: "storage failure", token: "tok", revokeErr: boom, want: boom},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sessions := newSessionRepositoryStub()
			sessions.revokeErr = tc.revokeErr
			svc := NewAuthService(nil, sessions, nil, nil, fixedClock, time.Hour)

			if err := svc.RevokeSession(context.Background(), tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	seeded := func(mutate func(*Session)) *sessionRepositoryStub {
		session := Session{ID: "sess-1", AccountID: "host-1", Token: "tok", CreatedAt: fixedNow, UpdatedAt: fixedNow, ExpiresAt: fixedNow.Add(time.Hour)}
		if mutate != nil {
			mutate(&session)
		}
		sessions := newSessionRepositoryStub()
		sessions.seed(session)
		return sessions
	}

	t.Run("resolves the principal", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(authAccounts(), seeded(nil), nil, nil, fixedClock, time.Hour)

		principal, err := svc.ValidateSession(context.Background(), " tok ")
		if err != nil {
			t.Fatalf("ValidateSession: %v", err)
		}
		if principal != (Principal{UserID: "host-1", Role: RoleReceptionist}) {
			t.Fatalf("unexpected principal %#v", principal)
		}
	})

	t.Run("reads the current role on every request", func(t *testing.T) {
		t.Parallel()

		accounts := authAccounts()
		svc := NewAuthService(accounts, seeded(nil), nil, nil, fixedClock, time.Hour)

		account, _ := accounts.GetAccount(context.Background(), "host-1")
		account.Role = RoleCustomer
		if err := accounts.UpdateAccount(context.Background(), account); err != nil {
			t.Fatalf("UpdateAccount: %v", err)
		}

		principal, err := svc.ValidateSession(context.Background(), "tok")
		if err != nil || principal.Role != RoleCustomer {
			t.Fatalf("expected demoted principal, got %#v (%v)", principal, err)
		}
	})

	revokedAt := fixedNow.Add(-time.Minute)
	boom := errors.New("boom")
	cases := []struct {
		name   string
		token  string
		mutate func(*Session)
		getErr error
		want   error
	}{
		{name: "blank token", token: " ", want: ErrInvalidCredentials},
		{name: "unknown token", token: "other", want: ErrUnauthorized},
		{name: "expired", token: "tok", mutate: func(s *Session) { s.ExpiresAt = fixedNow }, want: ErrSessionExpired},
		{name: "revoked", token: "tok", mutate: func(s *Session) { s.RevokedAt = &revokedAt }, want: ErrSessionRevoked},
		{name: "disabled account", token: "tok", mutate: func(s *Session) { s.AccountID = "guest-9" }, want: ErrAccountDisabled},
		{name: "deleted account", token: "tok", mutate: func(s *Session) { s.AccountID = "ghost" }, want: ErrUnauthorized},
		{name: "storage failure", token: "tok", getErr: boom, want: boom},
	}
	for _, tc := range cases {
		tc := tc
		t.Run("rejects "+tc.name, func(t *testing.T) {
			t.Parallel()

			sessions := seeded(tc.mutate)
			sessions.getErr = tc.getErr
			svc := NewAuthService(authAccounts(), sessions, nil, nil, fixedClock, time.Hour)

			if _, err := svc.ValidateSession(context.Background(), tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// sessionRepositoryStub keeps sessions in memory, keyed by id and token.
type sessionRepositoryStub struct {
	sessionsByID map[string]Session
	tokenToID    map[string]string

	createErr error
	getErr    error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{
		sessionsByID: make(map[string]Session),
		tokenToID:    make(map[string]string),
	}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(s.sessionsByID[id]), nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session := s.sessionsByID[id]
	session.RevokedAt = &revokedAt
	session.UpdatedAt = revokedAt
	s.sessionsByID[id] = session
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleteCalls = append(s.deleteCalls, reference)
	for id, session := range s.sessionsByID {
		if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(reference) {
			delete(s.sessionsByID, id)
			delete(s.tokenToID, session.Token)
		}
	}
	return nil
}

func cloneSession(session Session) Session {
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		session.RevokedAt = &revoked
	}
	return session
}
