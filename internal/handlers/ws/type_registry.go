package ws

import (
	"reflect"
)

var typeRegistry = map[string]reflect.Type{}

func init() {
	// Register all message types
	RegisterType(&MessageAuthenticate{})
	RegisterType(&MessageJoinChat{})
	RegisterType(&MessageLeaveChat{})
	RegisterType(&MessageSend{})
	RegisterType(&MessageEdit{})
	RegisterType(&MessageDelete{})
	RegisterType(&MessageTypingStart{})
	RegisterType(&MessageTypingStop{})
	RegisterType(&MessageAddReaction{})
	RegisterType(&MessageRemoveReaction{})
	RegisterType(&MessageMarkRead{})
	RegisterType(&MessageSetStatus{})
	RegisterType(&MessagePing{})
	RegisterType(&MessagePong{})
}

func RegisterType(msg Message) {
	typeRegistry[msg.GetType()] = reflect.TypeOf(msg).Elem()
}

// GetTypeRegistry returns the type registry for testing
func GetTypeRegistry() map[string]reflect.Type {
	return typeRegistry
}
