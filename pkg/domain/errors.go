package domain

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a record does not exist or belongs to another owner.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DuplicateError is returned when a uniqueness constraint would be violated.
type DuplicateError struct {
	Entity EntityType
	Field  string
	Value  string
}

func (e DuplicateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s with the same %s already exists", e.Entity, e.Field)
	}
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// FieldProblem describes one invalid input field.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field problems found while validating an entity.
type ValidationError struct {
	Entity   EntityType
	Problems []FieldProblem
}

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// InvariantError reports an operation that would break a cross-record rule,
// such as leaving a linked pet without a primary vet.
type InvariantError struct {
	Rule    string
	Message string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// ArchivedError is returned when an operation requires an active record.
type ArchivedError struct {
	Entity EntityType
	ID     string
}

func (e ArchivedError) Error() string {
	return fmt.Sprintf("%s %s is archived", e.Entity, e.ID)
}

// RulePrimaryVet names the one-primary-vet-per-pet invariant.
const RulePrimaryVet = "primary_vet"

type problems struct {
	entity EntityType
	list   []FieldProblem
}

func (p *problems) add(field, msg string) {
	p.list = append(p.list, FieldProblem{Field: field, Message: msg})
}

func (p *problems) err() error {
	if len(p.list) == 0 {
		return nil
	}
	return ValidationError{Entity: p.entity, Problems: p.list}
}
