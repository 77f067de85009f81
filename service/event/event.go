package event

import "time"

// Type identifies a process lifecycle or scheduling event
type Type string

const (
	TypeForked        Type = "forked"
	TypeExited        Type = "exited"
	TypeReaped        Type = "reaped"
	TypeKilled        Type = "killed"
	TypeWindowEntered Type = "windowEntered"
	TypeWindowLeft    Type = "windowLeft"
	TypeOverdue       Type = "overdue"
)

type Context struct {
	Pid    int    `json:"pid"`
	Name   string `json:"name"`
	Type   Type   `json:"type"`
	CPU    int    `json:"cpu"`
	BootID string `json:"bootID,omitempty"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
