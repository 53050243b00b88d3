package pipeline

import (
	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
	"github.com/c360/fileingest/store"
)

// StageContext is the append-only envelope threaded through a pipeline run.
// Each stage fills in its own field and never overwrites an earlier one. A
// context belongs to exactly one run and is never shared between goroutines.
type StageContext struct {
	Locator       string                    `json:"locator"`
	MappingSource string                    `json:"mappingSource"`
	FileType      *filetype.Descriptor      `json:"fileType,omitempty"`
	Validation    *mapping.ValidationResult `json:"validation,omitempty"`
	ParsedData    []*mapping.Record         `json:"parsedData,omitempty"`
	MappedData    *mapping.MapResult        `json:"mappedData,omitempty"`
	StorageResult *store.BatchResult        `json:"storageResult,omitempty"`
}

// NewStageContext creates the initial envelope for a run
func NewStageContext(locator, mappingSource string) *StageContext {
	if mappingSource == "" {
		mappingSource = mapping.DefaultName
	}
	return &StageContext{
		Locator:       locator,
		MappingSource: mappingSource,
	}
}
