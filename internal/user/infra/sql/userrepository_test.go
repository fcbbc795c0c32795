package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "github.com/klwxsrx/event-booking/data/sql/user"
	"github.com/klwxsrx/event-booking/internal/pkg/sqltest"
	"github.com/klwxsrx/event-booking/internal/user/domain"
	"github.com/klwxsrx/event-booking/internal/user/infra/sql"
)

func TestUserRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := sql.NewUserRepository(sqltest.Open(t, migrations.Migrations))

	aliceID, err := repo.Add(ctx, &domain.User{Login: "alice", Email: "alice@example.com", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	bobID, err := repo.Add(ctx, &domain.User{Login: "bob", Email: "bob@example.com", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.NotEqual(t, aliceID, bobID)

	alice, err := repo.FindOne(ctx, domain.FindUserSpecification{Logins: []string{"alice"}})
	require.NoError(t, err)
	assert.Equal(t, aliceID, alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)

	require.NoError(t, repo.Delete(ctx, aliceID))
	assert.ErrorIs(t, repo.Delete(ctx, aliceID), domain.ErrUserNotFound)

	_, err = repo.FindOne(ctx, domain.FindUserSpecification{IDs: []int64{aliceID}})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	bob, err := repo.FindOne(ctx, domain.FindUserSpecification{IDs: []int64{bobID}})
	require.NoError(t, err)
	assert.Equal(t, "bob", bob.Login)
}
