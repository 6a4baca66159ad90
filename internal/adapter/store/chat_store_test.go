package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/hiddenrole/mafia/internal/domain/service"
)

func TestChatStore_SaveMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO messages").
		WithArgs("m1", "ABC123", "p1", "Alice", "hello", int64(1000)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewWithDB(db)
	err = s.SaveMessage(service.ChatMessage{
		ID:         "m1",
		Room:       "ABC123",
		SenderID:   "p1",
		SenderName: "Alice",
		Text:       "hello",
		TS:         1000,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatStore_History_OldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "room", "sender_id", "sender_name", "text", "ts"}).
		AddRow("m2", "ABC123", "p1", "Alice", "second", int64(2000)).
		AddRow("m1", "ABC123", "p1", "Alice", "first", int64(1000))

	mock.ExpectQuery("SELECT id, room, sender_id, sender_name, text, ts FROM messages").
		WithArgs("ABC123", 10).
		WillReturnRows(rows)

	s := NewWithDB(db)
	msgs, err := s.History("ABC123", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "m1", msgs[0].ID)
	require.Equal(t, "m2", msgs[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatStore_DeleteRoom(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM messages").WithArgs("ABC123").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM messages").WithArgs("ABC123__killers").WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewWithDB(db)
	err = s.DeleteRoom("ABC123", "ABC123__killers")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
