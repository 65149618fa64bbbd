package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func authedRequest(method, target string, body []byte, userID uint) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), utils.UserIDKey, userID)
	return req.WithContext(ctx)
}

func messagesRouter(h *ChatHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/channels/{id}/messages", h.GetChannelMessages)
	return router
}

func TestGetChannelMessagesRequiresAuth(t *testing.T) {
	h := NewChatHandler(nil)

	rec := httptest.NewRecorder()
	messagesRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels/3/messages", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetChannelMessagesRejectsNonMember(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewChatHandler(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "channel_clients"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rec := httptest.NewRecorder()
	messagesRouter(h).ServeHTTP(rec, authedRequest(http.MethodGet, "/channels/3/messages", nil, 7))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not a channel member")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetChannelMessagesForMember(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewChatHandler(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "channel_clients"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT (.+) FROM "channel_messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel_id", "sender_id", "content"}).
			AddRow(1, 3, 7, "hello").
			AddRow(2, 3, 9, "hi there"))

	rec := httptest.NewRecorder()
	messagesRouter(h).ServeHTTP(rec, authedRequest(http.MethodGet, "/channels/3/messages", nil, 7))

	require.Equal(t, http.StatusOK, rec.Code)

	var messages []models.ChannelMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}
