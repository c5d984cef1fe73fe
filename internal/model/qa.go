package model

import "time"

// ContainerKind annotates a sniffed format with its outer wrapping.
type ContainerKind string

// ContainerZIP is currently the only container kind.
const ContainerZIP ContainerKind = "ZIP"

// SniffResult is the format sniffer's verdict for one file.
type SniffResult struct {
	// Format is the canonical short name from the format registry,
	// e.g. "CSV", "XLS", "SHP".
	Format    string        `json:"format"`
	Container ContainerKind `json:"container,omitempty"`
}

// ScoreResult is the outcome of one openness-scoring pass for a
// resource. It supersedes any previous result for the same resource.
type ScoreResult struct {
	OpennessScore       int    `json:"openness_score"`
	OpennessScoreReason string `json:"openness_score_reason"`
	Format              string `json:"format,omitempty"`
	// ArchivalTimestamp records which archival snapshot this score was
	// based on. Nil when the resource has never been archived.
	ArchivalTimestamp *time.Time `json:"archival_timestamp,omitempty"`
}

// QARecord is the persisted per-resource openness-score record.
type QARecord struct {
	ID                  string     `json:"id"`
	ResourceID          string     `json:"resource_id"`
	OpennessScore       int        `json:"openness_score"`
	OpennessScoreReason string     `json:"openness_score_reason"`
	Format              string     `json:"format,omitempty"`
	ArchivalTimestamp   *time.Time `json:"archival_timestamp,omitempty"`
	Created             time.Time  `json:"created"`
	Updated             time.Time  `json:"updated"`
}

// ScoreDescriptions maps each openness score to its five-star
// description, for status displays and the HTTP API.
var ScoreDescriptions = map[int]string{
	0: "Not obtainable or license is not open",
	1: "Obtainable and open license",
	2: "Machine readable format",
	3: "Open and standardized format",
	4: "Ontologically represented",
	5: "Fully Linked Open Data as appropriate",
}
