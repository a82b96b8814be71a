package service

import (
	"github.com/pavemap/backend/internal/domain"
)

// DatasetRepository is re-exported from domain for convenience
type DatasetRepository = domain.DatasetRepository

// DatasetCache is re-exported from domain for convenience
type DatasetCache = domain.DatasetCache
