package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrDeserializeUnknownMessage  = errors.New("unknown message type")
	ErrDeserializeNotValidMessage = errors.New("message has not valid struct")
)

type (
	Deserializer interface {
		Deserialize(*Message) (StructuredMessage, error)
	}

	DeserializerFunc func(*Message) (StructuredMessage, error)

	// JSONSchemaDeserializer validates the payload against the schema before decoding it into T.
	JSONSchemaDeserializer[T StructuredMessage] struct {
		schema   *gojsonschema.Schema
		finalize []func(*T, *Message) error
	}
)

func (f DeserializerFunc) Deserialize(msg *Message) (StructuredMessage, error) {
	return f(msg)
}

func NewJSONSchemaDeserializer[T StructuredMessage](
	schema []byte,
	finalize ...func(*T, *Message) error,
) (*JSONSchemaDeserializer[T], error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		var blank T
		return nil, fmt.Errorf("compile json schema for %T: %w", blank, err)
	}

	return &JSONSchemaDeserializer[T]{
		schema:   compiled,
		finalize: finalize,
	}, nil
}

func (d *JSONSchemaDeserializer[T]) Deserialize(msg *Message) (StructuredMessage, error) {
	if !json.Valid(msg.Payload) {
		return nil, fmt.Errorf("%w: payload is not a json document", ErrDeserializeNotValidMessage)
	}

	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(msg.Payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserializeNotValidMessage, err)
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			violations = append(violations, violation.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrDeserializeNotValidMessage, strings.Join(violations, "; "))
	}

	var typed T
	err = json.Unmarshal(msg.Payload, &typed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserializeNotValidMessage, err)
	}

	for _, fn := range d.finalize {
		err = fn(&typed, msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeserializeNotValidMessage, err)
		}
	}

	return typed, nil
}

// NewJSONMessage encodes msg as the payload of a message for topic.
func NewJSONMessage(topic Topic, key string, msg StructuredMessage) (*Message, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message %v %s: %w", msg.ID(), msg.Type(), err)
	}

	return &Message{
		ID:      msg.ID(),
		Topic:   topic,
		Key:     key,
		Payload: payload,
	}, nil
}
