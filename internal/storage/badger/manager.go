package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	job        interfaces.JobStorage
	source     interfaces.SourceStorage
	manuscript interfaces.ManuscriptStorage
	posting    interfaces.PostingStorage
	tracking   interfaces.TrackingStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manuscript := NewManuscriptStorage(db, logger)

	manager := &Manager{
		db:         db,
		job:        NewJobStorage(db, logger),
		source:     NewSourceStorage(db, manuscript, logger),
		manuscript: manuscript,
		posting:    NewPostingStorage(db, logger),
		tracking:   NewTrackingStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the job queue storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// SourceStorage returns the source storage interface
func (m *Manager) SourceStorage() interfaces.SourceStorage {
	return m.source
}

// ManuscriptStorage returns the manuscript storage interface
func (m *Manager) ManuscriptStorage() interfaces.ManuscriptStorage {
	return m.manuscript
}

// PostingStorage returns the posting storage interface
func (m *Manager) PostingStorage() interfaces.PostingStorage {
	return m.posting
}

// TrackingStorage returns the tracking storage interface
func (m *Manager) TrackingStorage() interfaces.TrackingStorage {
	return m.tracking
}

// DB returns the underlying database connection
func (m *Manager) DB() *BadgerDB {
	return m.db
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
