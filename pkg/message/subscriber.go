package message

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

// SubscriberName identifies a consumer group, consumers with the same name share the topic messages.
type SubscriberName string

func NewSubscriberName(name string) SubscriberName {
	return SubscriberName(strcase.ToKebab(name))
}

func NewSubscriberCustomName(service, purpose string) SubscriberName {
	return NewSubscriberName(fmt.Sprintf("%s-%s", service, purpose))
}
