package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	items      []models.Notification
	next       *pagination.Cursor
	unread     int64
	lastParams listParams
	markFound  bool
	marked     []uuid.UUID
	markedAll  bool
}

func (r *stubNotificationsRepo) List(ctx context.Context, params listParams) ([]models.Notification, *pagination.Cursor, error) {
	r.lastParams = params
	return r.items, r.next, nil
}

func (r *stubNotificationsRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.unread, nil
}

func (r *stubNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	if !r.markFound {
		return markResult{}, nil
	}
	r.marked = append(r.marked, notificationID)
	return markResult{Found: true, Updated: true}, nil
}

func (r *stubNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	r.markedAll = true
	return r.unread, nil
}

func buildNotificationsService(t *testing.T, repo *stubNotificationsRepo) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func TestListReturnsCursorAndUnreadCount(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &stubNotificationsRepo{
		items:  []models.Notification{{ID: uuid.New()}},
		next:   next,
		unread: 4,
	}
	svc := buildNotificationsService(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 1, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.EqualValues(t, 4, result.UnreadCount)
	assert.True(t, repo.lastParams.UnreadOnly)

	decoded, err := pagination.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, next.ID, decoded.ID)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc := buildNotificationsService(t, &stubNotificationsRepo{})

	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "not-a-cursor"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := buildNotificationsService(t, &stubNotificationsRepo{markFound: false})

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkReadAndMarkAllRead(t *testing.T) {
	repo := &stubNotificationsRepo{markFound: true, unread: 3}
	svc := buildNotificationsService(t, repo)

	notificationID := uuid.New()
	require.NoError(t, svc.MarkRead(context.Background(), uuid.New(), notificationID))
	assert.Equal(t, []uuid.UUID{notificationID}, repo.marked)

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.True(t, repo.markedAll)
}
