package memory

import (
	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
)

// Memory is an in-memory repository for development and tests
type Memory struct {
	sessions *sessionRepository
}

var _ interfaces.Repository = &Memory{}

// New creates an empty in-memory repository
func New() *Memory {
	return &Memory{
		sessions: newSessionRepository(),
	}
}

func (m *Memory) Session() interfaces.SessionRepository {
	return m.sessions
}

func (m *Memory) Close() error {
	return nil
}
