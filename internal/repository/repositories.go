// Package repository persists client card requests.
//
// ClientRepository has two implementations: PostgreSQL for deployments and
// an in-memory store for local runs and tests. NewRepositories picks one
// from the configured primary store.
package repository

import (
	"fmt"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Client ClientRepository
}

// NewRepositories builds the repositories for the configured store.
func NewRepositories(s *server.Server) (*Repositories, error) {
	switch s.Config.Primary.Store {
	case config.StoreMemory:
		s.Logger.Warn().Msg("using the in-memory client store, data is lost on restart")
		return &Repositories{Client: NewMemoryClientRepository()}, nil
	case config.StorePostgres, "":
		if s.DB == nil {
			return nil, fmt.Errorf("postgres store selected but no database connection is available")
		}
		return &Repositories{Client: NewPostgresClientRepository(s.DB.Pool)}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", s.Config.Primary.Store)
	}
}
