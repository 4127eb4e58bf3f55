package services

import (
	"fmt"
	"strings"

	"github.com/abrezinsky/talentscout/internal/models"
)

// Service errors
var (
	ErrNoCandidateIDs = &ServiceError{Message: "no candidate ids specified"}
	ErrEmptyImport    = &ServiceError{Message: "import file contains no rows"}
	ErrMissingHeader  = &ServiceError{Message: "import file has no header row"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// UnknownSportError is returned when a sport id is not in the schema
type UnknownSportError struct {
	Sport string
}

func (e *UnknownSportError) Error() string {
	return fmt.Sprintf("unknown sport: %s", e.Sport)
}

// BlockedTransitionError lists the candidates that cannot move to Status
type BlockedTransitionError struct {
	Status models.Status
	IDs    []string
}

func (e *BlockedTransitionError) Error() string {
	return fmt.Sprintf("cannot move to %s: %s", e.Status, strings.Join(e.IDs, ", "))
}
