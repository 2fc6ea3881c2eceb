package messaging

import "time"

// DefectEvent is the payload of every defect lifecycle message
type DefectEvent struct {
	DefectID   uint      `json:"defectId"`
	ProjectID  uint      `json:"projectId,omitempty"`
	Title      string    `json:"title,omitempty"`
	Status     string    `json:"status,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	CommentID  uint      `json:"commentId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
