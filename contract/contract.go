//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"mixmatch/domain"
	"mixmatch/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker) error
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

type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

type IRegistry interface {
	Register(connID domain.ConnID, sink EventSink)
	Unregister(connID domain.ConnID)
	Join(code domain.RoomCode, connID domain.ConnID)
	Leave(code domain.RoomCode, connID domain.ConnID)
	RemoveRoom(code domain.RoomCode) []domain.ConnID
	SinkFor(connID domain.ConnID) (EventSink, bool)
	GetSinksForRoom(code domain.RoomCode) []EventSink
}

// QuestionProvider generates a question for a track. Implementations must
// honour ctx: the caller bounds every call with a timeout.
type QuestionProvider interface {
	Generate(ctx context.Context, track domain.Track) (domain.Question, error)
}

type SummaryRepository interface {
	Store(summary event.Summary) error
	List(limit int) ([]event.Summary, error)
}

type IOrchestrator interface {
	CreateRoom(ctx context.Context, host domain.ConnID) (domain.RoomCode, error)
	Dispatch(ctx context.Context, code domain.RoomCode, cmd domain.Command) (any, error)
	Close(ctx context.Context, code domain.RoomCode) error
	Rooms() int
	Start(ctx context.Context) error
	Stop()
}
