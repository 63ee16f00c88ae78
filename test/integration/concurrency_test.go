//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

func TestRefreshRacingLockout_NoDeadlockAndEveryFailureCounted(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	u, err := env.svc.Register(ctx, "It User", email, password)
	require.NoError(t, err)

	const sessions = 8
	refresh := make([]string, 0, sessions)
	for i := 0; i < sessions; i++ {
		res, err := env.svc.Login(ctx, email, password)
		require.NoError(t, err)
		refresh = append(refresh, res.Tokens.RefreshToken)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	start := make(chan struct{})
	for _, tok := range refresh {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			<-start
			_, err := env.svc.Refresh(ctx, tok)
			record(err)
		}(tok)
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.svc.Login(ctx, email, "wrong-password")
			assert.True(t, domain.Is(err, domain.CodeInvalidCredentials), "login: %v", err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, err := env.svc.RevokeAllSessions(ctx, u.ID)
		record(err)
	}()

	close(start)
	wg.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		assert.False(t, domain.Is(err, domain.CodeDBUnavailable), "unexpected store failure: %v", err)
		assert.True(t,
			domain.Is(err, domain.CodeTokenRevoked) || domain.Is(err, domain.CodeAccountLocked),
			"unexpected refresh error: %v", err)
	}

	// all five failures landed, so the account is locked with no live sessions
	assert.Equal(t, 1, env.count(t,
		`SELECT count(*) FROM users WHERE id = $1 AND locked_until IS NOT NULL`, u.ID))
	assert.Equal(t, 0, env.count(t,
		`SELECT count(*) FROM refresh_tokens WHERE user_id = $1 AND revoked = FALSE`, u.ID))

	_, err = env.svc.Login(ctx, email, password)
	assert.True(t, domain.Is(err, domain.CodeAccountLocked), "got %v", err)
}
