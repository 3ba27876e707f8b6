// Package blob converts composite game objects to and from the
// base64-encoded binary strings stored in snapshot columns. Persistence
// treats the payloads as opaque; only the types themselves know their
// layout.
//
// Corrupt or unreadable payloads degrade to "nothing stored": callers get
// nil and the failure is logged, because a missing snapshot must never
// turn into a hard failure of the surrounding command.
package blob

import (
	"encoding/base64"
	"log"

	"github.com/emberforge/embercore/structs"
)

var encoding = base64.StdEncoding

// Serializable is the contract payload types implement. Marshal writes
// exactly Size() bytes.
type Serializable[T any] interface {
	*T
	Size() int
	Marshal(b []byte)
	Unmarshal(b []byte) error
}

func Encode[T any, S Serializable[T]](v *T) string {
	s := S(v)
	b := make([]byte, s.Size())
	s.Marshal(b)
	return encoding.EncodeToString(b)
}

func Decode[T any, S Serializable[T]](in string) *T {
	b, err := encoding.DecodeString(in)
	if err != nil {
		log.Printf("decoding payload blob: %v", err)
		return nil
	}
	t := new(T)
	if err := S(t).Unmarshal(b); err != nil {
		log.Printf("unmarshalling payload blob: %v", err)
		return nil
	}
	return t
}

// EncodeStacks encodes an item stack array, preserving arity and nil
// elements.
func EncodeStacks(stacks structs.ItemStacks) string {
	return Encode[structs.ItemStacks](&stacks)
}

// DecodeStacks is the inverse of EncodeStacks. Corrupt input yields nil.
func DecodeStacks(in string) structs.ItemStacks {
	stacks := Decode[structs.ItemStacks](in)
	if stacks == nil {
		return nil
	}
	return *stacks
}
