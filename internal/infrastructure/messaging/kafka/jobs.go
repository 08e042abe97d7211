// Package kafka carries the job queue: receptor preparation and batch
// process jobs published by the API side and consumed by workers.
package kafka

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Topic constants.  Each job topic has a companion dead-letter topic
// with the ".dlq" suffix.
const (
	TopicReceptorPrepare = "docking.receptor.prepare"
	TopicProcessRun      = "docking.process.run"

	dlqSuffix = ".dlq"
)

// DLQTopic returns the dead-letter topic for a job topic.
func DLQTopic(topic string) string {
	return topic + dlqSuffix
}

// ReceptorPreparationJob asks a worker to prepare one receptor's grid
// maps.  GridSize, GridCenter and LigandFilename follow the preparation
// job's optionality rules; MacromoleculeID is zero when the run is not
// bound to a catalog record.
type ReceptorPreparationJob struct {
	Workdir          string    `json:"workdir"`
	ReceptorFilename string    `json:"receptor_filename"`
	GridSize         string    `json:"grid_size,omitempty"`
	GridCenter       string    `json:"grid_center,omitempty"`
	LigandFilename   string    `json:"ligand_filename,omitempty"`
	MacromoleculeID  uuid.UUID `json:"macromolecule_id,omitempty"`
}

// BatchProcessJob asks a worker to run one batch docking process.  The
// job carries only the ID; everything else lives in the process record.
type BatchProcessJob struct {
	ProcessID uuid.UUID `json:"process_id"`
}

func encodeJob(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal job payload")
	}
	return data, nil
}

// DecodeReceptorPreparationJob parses a message value.
func DecodeReceptorPreparationJob(value []byte) (ReceptorPreparationJob, error) {
	var job ReceptorPreparationJob
	if err := json.Unmarshal(value, &job); err != nil {
		return job, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal preparation job")
	}
	if job.ReceptorFilename == "" {
		return job, errors.New(errors.ErrCodeValidation, "preparation job missing receptor_filename")
	}
	return job, nil
}

// DecodeBatchProcessJob parses a message value.
func DecodeBatchProcessJob(value []byte) (BatchProcessJob, error) {
	var job BatchProcessJob
	if err := json.Unmarshal(value, &job); err != nil {
		return job, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal process job")
	}
	if job.ProcessID == uuid.Nil {
		return job, errors.New(errors.ErrCodeValidation, "process job missing process_id")
	}
	return job, nil
}
