package core

import "github.com/google/uuid"

// ID is a unique identifier for runs and artifacts
type ID string

// NewID generates a new random identifier
func NewID() ID {
	return ID(uuid.NewString())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// RunID identifies one sweep execution
type RunID ID

func NewRunID() RunID { return RunID(NewID()) }

func (id RunID) String() string { return string(id) }
