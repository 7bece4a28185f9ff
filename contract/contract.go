//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"geochat/domain"
	"geochat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Member is the registry handle of one live connection.
// Identity is comparison-only, through ID.
type Member interface {
	ID() string
	Deliver(ctx context.Context, e event.BroadcastEvent) error
	Close() error
}

// IRegistry tracks which members currently belong to which room.
// MembersOf always returns a copy.
type IRegistry interface {
	Join(roomID domain.RoomID, member Member)
	Leave(roomID domain.RoomID, member Member)
	MembersOf(roomID domain.RoomID) []Member
	Count() int
}

// IRouter delivers one event to every member present in a room.
type IRouter interface {
	Dispatch(ctx context.Context, roomID domain.RoomID, e event.BroadcastEvent) int
}

// ISubmitter accepts messages coming from live connections without blocking.
type ISubmitter interface {
	Submit(cmd domain.SubmitMessageCommand) error
}

// PersistenceListener is notified by the message store after Create.
type PersistenceListener interface {
	OnMessagePersisted(ctx context.Context, message domain.Message)
}

// IMessageStore is an append-only chat log ordered by creation time.
// Append never notifies listeners; Create always does.
type IMessageStore interface {
	Append(message domain.Message) (domain.MessageID, error)
	Create(ctx context.Context, message domain.Message) (domain.MessageID, error)
	Recent(roomID domain.RoomID, n int) ([]domain.Message, error)
	Subscribe(listener PersistenceListener)
}

// IUserDirectory resolves sender identities to display names.
type IUserDirectory interface {
	DisplayName(userID int64) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
