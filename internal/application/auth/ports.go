package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

/*
Store
-----
Transactional persistence port for users and their tokens.
Only describes WHAT the credential engine needs, not HOW it's stored.

WithTx commits iff fn returns nil. Every read-modify-write sequence of an
operation runs inside one WithTx call.
*/
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Non-transactional read used by the bearer guard.
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	Ping(ctx context.Context) error
}

/*
Tx
--
Operations available inside a transaction. User and token lookups lock
the returned row until the transaction ends, except the *Owner reads.

Lock order is user row first, then token rows. An operation that starts
from a token resolves its owner with an unlocked *Owner read, locks the
user, then locks and re-checks the token.

Not-found is reported as domain.ErrUserNotFound / ErrRefreshTokenNotFound /
ErrResetTokenNotFound. Any other failure aborts the transaction.
*/
type Tx interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	SaveUser(ctx context.Context, u domain.User) error
	// DeleteUser removes the user and every token it owns.
	DeleteUser(ctx context.Context, id string) error

	RefreshTokenOwner(ctx context.Context, digest string) (string, error)
	FindRefreshTokenByDigest(ctx context.Context, digest string) (domain.RefreshToken, error)
	SaveRefreshToken(ctx context.Context, t domain.RefreshToken) error
	ListUnrevokedRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	ResetTokenOwner(ctx context.Context, digest string) (string, error)
	FindResetTokenByDigest(ctx context.Context, digest string) (domain.PasswordResetToken, error)
	SaveResetToken(ctx context.Context, t domain.PasswordResetToken) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
AccessCodec
-----------
Issues and verifies short-lived signed access tokens (JWT).
Used by service + auth middleware.
*/
type AccessCodec interface {
	Issue(userID string) (token string, ttlSeconds int64, err error)
	Verify(token string) (userID string, err error)
}

/*
ResetNotifier
-------------
Delivers raw reset tokens to the account owner (via RabbitMQ in prod).
Called fire-and-forget after the reset token is committed.
*/
type ResetNotifier interface {
	PublishPasswordReset(ctx context.Context, evt PasswordResetEvent) error
}

type PasswordResetEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

/*
TokenHasher
-----------
Deterministic one-way digest used to index opaque tokens.
Unsalted, since lookups are exact matches on the digest.
*/
type TokenHasher interface {
	Digest(raw string) string
}
