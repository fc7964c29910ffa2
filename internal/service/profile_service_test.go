package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
)

func newTestProfileService() (*ProfileService, *memUserRepo) {
	repo := newMemUserRepo()
	// No cache in unit tests; the service must work without Redis.
	svc := NewProfileService(repo, nil, zap.NewNop(), 0)
	return svc, repo
}

func seedUser(t *testing.T, repo *memUserRepo, name, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestGetSelf(t *testing.T) {
	svc, repo := newTestProfileService()
	ann := seedUser(t, repo, "Ann", "ann@x.com")

	user, err := svc.GetSelf(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@x.com", user.Email)
}

func TestGetSelfUnknownUser(t *testing.T) {
	svc, _ := newTestProfileService()

	_, err := svc.GetSelf(context.Background(), "ghost")
	assert.Equal(t, "NOT_FOUND", domainErr(t, err).Code)
}

func TestUpdateSelfName(t *testing.T) {
	svc, repo := newTestProfileService()
	ann := seedUser(t, repo, "Ann", "ann@x.com")

	name := "Ann B."
	user, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", user.Name)
	assert.Equal(t, "ann@x.com", user.Email)
}

func TestUpdateSelfEmailRevalidatesUniqueness(t *testing.T) {
	svc, repo := newTestProfileService()
	ann := seedUser(t, repo, "Ann", "ann@x.com")
	seedUser(t, repo, "Bob", "bob@x.com")

	taken := "BOB@x.com"
	_, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Email: &taken})
	assert.Equal(t, "DUPLICATE_EMAIL", domainErr(t, err).Code)

	free := "ann2@x.com"
	user, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Email: &free})
	require.NoError(t, err)
	assert.Equal(t, "ann2@x.com", user.Email)
}

func TestUpdateSelfKeepingOwnEmail(t *testing.T) {
	svc, repo := newTestProfileService()
	ann := seedUser(t, repo, "Ann", "ann@x.com")

	same := "Ann@X.com"
	user, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Email: &same})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", user.Email)
}

func TestUpdateSelfWritesOnlyChangedColumns(t *testing.T) {
	repo := &recordingUserRepo{memUserRepo: newMemUserRepo()}
	svc := NewProfileService(repo, nil, zap.NewNop(), 0)
	ann := seedUser(t, repo.memUserRepo, "Ann", "ann@x.com")

	name := "Ann B."
	_, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Name: &name})
	require.NoError(t, err)

	require.Len(t, repo.patches, 1)
	patch := repo.patches[0]
	require.NotNil(t, patch.Name)
	assert.Nil(t, patch.Email)
	assert.Nil(t, patch.PasswordHash)
}

func TestUpdateSelfWithoutChangesSkipsWrite(t *testing.T) {
	repo := &recordingUserRepo{memUserRepo: newMemUserRepo()}
	svc := NewProfileService(repo, nil, zap.NewNop(), 0)
	ann := seedUser(t, repo.memUserRepo, "Ann", "ann@x.com")

	user, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Empty(t, repo.patches)
}

func TestUpdateSelfSurvivesConcurrentPasswordChange(t *testing.T) {
	repo := &recordingUserRepo{memUserRepo: newMemUserRepo()}
	authSvc := NewAuthService(testConfig(), AuthDependencies{UserRepo: repo})
	profileSvc := NewProfileService(repo, nil, zap.NewNop(), 0)
	ctx := context.Background()

	ann, _, _, err := authSvc.Signup(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	// Rotate the password between the profile read and its write.
	repo.afterGet = func() {
		require.NoError(t, authSvc.ChangePassword(ctx, ann.ID, "secret1", "secret2"))
	}

	name := "Ann B."
	user, err := profileSvc.UpdateSelf(ctx, ann.ID, ProfileUpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", user.Name)

	_, _, _, err = authSvc.Login(ctx, "ann@x.com", "secret2")
	assert.NoError(t, err)
}

func TestUpdateSelfValidation(t *testing.T) {
	svc, repo := newTestProfileService()
	ann := seedUser(t, repo, "Ann", "ann@x.com")

	empty := ""
	_, err := svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Name: &empty})
	assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)

	bad := "not-an-email"
	_, err = svc.UpdateSelf(context.Background(), ann.ID, ProfileUpdateInput{Email: &bad})
	assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
}
