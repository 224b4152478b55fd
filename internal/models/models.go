// package models defines the persisted records of the weekly copier
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Trigger says what started a copy run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// RunStatus is the lifecycle state of a copy run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunSucceeded RunStatus = "succeeded"
	RunSkipped   RunStatus = "skipped"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition is expected.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunSkipped || s == RunFailed
}

func (s RunStatus) valid() bool {
	return s == RunPending || s.Terminal()
}

// CopyRun is one journal row describing a weekly copy attempt.
type CopyRun struct {
	id               string
	sequence         int
	trigger          Trigger
	week             int
	targetName       string
	sourcePlaylistID string
	destPlaylistID   string
	trackCount       int
	status           RunStatus
	errorMessage     string
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewCopyRun returns a pending run stamped with now.
func NewCopyRun(trigger Trigger, week int, targetName, sourcePlaylistID string, now time.Time) *CopyRun {
	return &CopyRun{
		trigger:          trigger,
		week:             week,
		targetName:       targetName,
		sourcePlaylistID: sourcePlaylistID,
		status:           RunPending,
		createdAt:        now,
		updatedAt:        now,
	}
}

func (c *CopyRun) ID() string { return c.id }
func (c *CopyRun) Sequence() int { return c.sequence }
func (c *CopyRun) Trigger() Trigger { return c.trigger }
func (c *CopyRun) Week() int { return c.week }
func (c *CopyRun) TargetName() string { return c.targetName }
func (c *CopyRun) SourcePlaylistID() string { return c.sourcePlaylistID }
func (c *CopyRun) DestPlaylistID() string { return c.destPlaylistID }
func (c *CopyRun) TrackCount() int { return c.trackCount }
func (c *CopyRun) Status() RunStatus { return c.status }
func (c *CopyRun) ErrorMessage() string { return c.errorMessage }
func (c *CopyRun) CreatedAt() time.Time { return c.createdAt }
func (c *CopyRun) UpdatedAt() time.Time { return c.updatedAt }
func (c *CopyRun) DeletedAt() *time.Time { return c.deletedAt }

func (c *CopyRun) SetID(id string) { c.id = id }
func (c *CopyRun) SetSequence(seq int) { c.sequence = seq }
func (c *CopyRun) SetDestPlaylistID(id string) { c.destPlaylistID = id }
func (c *CopyRun) SetTrackCount(n int) { c.trackCount = n }
func (c *CopyRun) SetCreatedAt(t time.Time) { c.createdAt = t }
func (c *CopyRun) SetUpdatedAt(t time.Time) { c.updatedAt = t }
func (c *CopyRun) SetDeletedAt(t *time.Time) { c.deletedAt = t }
func (c *CopyRun) SetStatus(status RunStatus) { c.status = status }
func (c *CopyRun) SetErrorMessage(msg string) { c.errorMessage = msg }

// Finish records the terminal status. A non-nil err marks the run failed.
func (c *CopyRun) Finish(status RunStatus, err error) {
	c.status = status
	if err != nil {
		c.status = RunFailed
		c.errorMessage = err.Error()
	}
}

func (c *CopyRun) Validate() error {
	if c.trigger != TriggerScheduled && c.trigger != TriggerManual {
		return fmt.Errorf("invalid trigger %q", c.trigger)
	}
	if c.week < 1 || c.week > 53 {
		return fmt.Errorf("week %d out of range", c.week)
	}
	if c.targetName == "" {
		return fmt.Errorf("target name is required")
	}
	if c.sourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	if !c.status.valid() {
		return fmt.Errorf("invalid status %q", c.status)
	}
	return nil
}

// MarshalJSON exposes the run for machine-readable history output.
func (c *CopyRun) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID               string    `json:"id"`
		Sequence         int       `json:"sequence"`
		Trigger          Trigger   `json:"trigger"`
		Week             int       `json:"week"`
		TargetName       string    `json:"target_name"`
		SourcePlaylistID string    `json:"source_playlist_id"`
		DestPlaylistID   string    `json:"dest_playlist_id,omitempty"`
		TrackCount       int       `json:"track_count"`
		Status           RunStatus `json:"status"`
		Error            string    `json:"error,omitempty"`
		CreatedAt        time.Time `json:"created_at"`
		UpdatedAt        time.Time `json:"updated_at"`
	}{
		ID:               c.id,
		Sequence:         c.sequence,
		Trigger:          c.trigger,
		Week:             c.week,
		TargetName:       c.targetName,
		SourcePlaylistID: c.sourcePlaylistID,
		DestPlaylistID:   c.destPlaylistID,
		TrackCount:       c.trackCount,
		Status:           c.status,
		Error:            c.errorMessage,
		CreatedAt:        c.createdAt,
		UpdatedAt:        c.updatedAt,
	})
}
