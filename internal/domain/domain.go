// Package domain holds the core record types that flow through the
// reconstruction pipeline: Segment, Timeline, RewrittenTimeline, CutPlan,
// VersionNode/VersionTree, VersionAnchor and ValidationReport.
//
// These are tagged-union-flavored structs rather than the deep class
// hierarchies and runtime-typed dict payloads the pipeline was originally
// built on: every artifact has a strict schema, and the only free-form
// areas are VersionNode.Metadata and VersionAnchor.Data.
package domain

import "time"

// Language is the detected dominant language of a Timeline.
type Language string

const (
	LanguageZH      Language = "zh"
	LanguageEN      Language = "en"
	LanguageUnknown Language = "unknown"
)

// Segment is one subtitle unit.
type Segment struct {
	Index   int    `json:"index"`    // 1..N after renumbering, unique within a Timeline
	StartMS int64  `json:"start_ms"` // inclusive
	EndMS   int64  `json:"end_ms"`   // exclusive; must be > StartMS
	Text    string `json:"text"`     // UTF-8, may be empty after trim
}

// Timeline is an ordered, non-overlapping sequence of Segments.
type Timeline struct {
	Segments    []Segment `json:"segments"`
	Language    Language  `json:"language"`
	Fingerprint string    `json:"fingerprint"` // SHA-256 over normalized text+timing
}

// TransformTag marks which viral transform touched a rewritten segment.
type TransformTag string

const (
	TransformNone      TransformTag = ""
	TransformHook      TransformTag = "hook"
	TransformAmplifier TransformTag = "amplifier"
	TransformSuspense  TransformTag = "suspense"
	TransformClimax    TransformTag = "climax"
	TransformTrigger   TransformTag = "trigger"
)

// RewrittenSegment is a Segment plus provenance back to its source
// segment index(es) and an optional transform tag. Timings here are
// tentative; C4 is the sole authority on final timing.
type RewrittenSegment struct {
	Segment
	SourceIndexes []int        `json:"source_indexes"` // empty => pure insertion (e.g. hook-only)
	Transform     TransformTag `json:"transform,omitempty"`
}

// RewrittenTimeline is the C3 output: a Timeline plus provenance.
type RewrittenTimeline struct {
	Segments    []RewrittenSegment `json:"segments"`
	Language    Language           `json:"language"`
	Fingerprint string             `json:"fingerprint"`
	Score       float64            `json:"score"`    // final self-score, 0-10
	Fallback    bool               `json:"fallback"` // true if FallbackRewritten applied
	QualityWarn string             `json:"quality_warning,omitempty"`
}

// Cut is one entry of a CutPlan.
type Cut struct {
	SrcStartMS    int64  `json:"src_start_ms"`
	SrcEndMS      int64  `json:"src_end_ms"`
	OutStartMS    int64  `json:"out_start_ms"`
	OutEndMS      int64  `json:"out_end_ms"`
	Text          string `json:"text"`
	ProvenanceIDs []int  `json:"provenance_ids"`
}

// CutPlan is the final edit-decision list, ready for an editor to execute
// against the original media.
type CutPlan struct {
	Cuts            []Cut  `json:"cuts"`
	TotalDurationMS int64  `json:"total_duration_ms"`
	QualityWarn     string `json:"quality_warning,omitempty"`
}

// VersionKind classifies a VersionNode's relationship to its parent.
type VersionKind string

const (
	VersionLinear       VersionKind = "linear"
	VersionExperimental VersionKind = "experimental"
	VersionRestructured VersionKind = "restructured"
	VersionOptimized    VersionKind = "optimized"
	VersionCustom       VersionKind = "custom"
)

// BlobKind tags which artifact type a VersionNode's content holds.
type BlobKind string

const (
	BlobTimeline          BlobKind = "timeline"
	BlobRewrittenTimeline BlobKind = "rewritten_timeline"
	BlobCutPlan           BlobKind = "cut_plan"
)

// VersionNode is one node of the content-addressed version tree.
type VersionNode struct {
	ID          string         `json:"id"`
	ParentID    string         `json:"parent_id,omitempty"`
	Kind        VersionKind    `json:"kind"`
	BlobKind    BlobKind       `json:"blob_kind"`
	ContentHash string         `json:"content_hash"`
	Signature   string         `json:"signature,omitempty"` // HMAC-SHA256, present iff SECRET_KEY configured
	Operation   string         `json:"operation"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	NearDup     bool           `json:"near_duplicate,omitempty"`
}

// AnchorKind classifies a VersionAnchor.
type AnchorKind string

const (
	AnchorMilestone AnchorKind = "milestone"
	AnchorReference AnchorKind = "reference"
	AnchorCritical  AnchorKind = "critical"
)

// VersionAnchor is an immutable, out-of-tree marker pinned to a node id.
type VersionAnchor struct {
	ID         string         `json:"id"`
	NodeID     string         `json:"node_id"`
	Kind       AnchorKind     `json:"kind"`
	Importance int            `json:"importance"` // 1..10
	Data       map[string]any `json:"data,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Severity ranks a ValidationIssue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidationIssue is one finding from a single validator.
type ValidationIssue struct {
	Kind         string   `json:"kind"`
	Severity     Severity `json:"severity"`
	Confidence   float64  `json:"confidence"` // 0..1
	Location     string   `json:"location"`   // segment index or range, e.g. "3" or "3-5"
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// ValidatorReport is the result of a single validator (V1..V8).
type ValidatorReport struct {
	Validator string            `json:"validator"`
	Issues    []ValidationIssue `json:"issues"`
}

// HasCritical reports whether any issue in this sub-report is critical.
func (r ValidatorReport) HasCritical() bool {
	for _, iss := range r.Issues {
		if iss.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ValidationReport is the union of all eight validator sub-reports.
type ValidationReport struct {
	Reports []ValidatorReport `json:"reports"`
}

// Accepted reports whether the plan may be published: no validator found
// a critical-severity issue.
func (r ValidationReport) Accepted() bool {
	for _, sub := range r.Reports {
		if sub.HasCritical() {
			return false
		}
	}
	return true
}

// AllIssues flattens every sub-report's issues into one slice.
func (r ValidationReport) AllIssues() []ValidationIssue {
	var out []ValidationIssue
	for _, sub := range r.Reports {
		out = append(out, sub.Issues...)
	}
	return out
}

// SceneAnnotation is the shared input validators V1, V3, V4 and V8 consume
// alongside the CutPlan/RewrittenTimeline: a per-segment description of
// the dramatized world (not just its text), supplementing spec.md 4.5's
// "scene annotations" with one concrete shape instead of ad hoc maps.
type SceneAnnotation struct {
	SegmentIndex int      `json:"segment_index"`
	Era          int      `json:"era,omitempty"` // approximate year the scene is set in
	Region       string   `json:"region,omitempty"`
	Location     string   `json:"location,omitempty"`
	Characters   []string `json:"characters,omitempty"`
	Props        []string `json:"props,omitempty"`
	TransportCue bool     `json:"transport_cue,omitempty"` // e.g. a cut/travel montage justifying a location jump
	Tags         []string `json:"tags,omitempty"`          // e.g. "flashback", "dream", "montage"
}

// EventKind classifies a narrative Event node for V2's causality graph.
type EventKind string

const (
	EventProblem    EventKind = "problem"
	EventResolution EventKind = "resolution"
	EventClue       EventKind = "clue"
	EventOther      EventKind = "other"
)

// Event is a declared cause/effect node, one per plot-relevant scene
// occurrence, consumed by V2 (causality) and V7 (multi-thread
// coordination). CauseIndexes names the Event.Index values this event
// is declared to be caused by; V2 also infers problem -> resolution
// edges between same-character events when no explicit link exists.
type Event struct {
	Index        int       `json:"index"`
	SegmentIndex int       `json:"segment_index"`
	Kind         EventKind `json:"kind"`
	CauseIndexes []int     `json:"cause_indexes,omitempty"`
	Characters   []string  `json:"characters,omitempty"`
	Importance   float64   `json:"importance,omitempty"` // 0..1, drives V2's isolated-high-importance check
	ThreadID     string    `json:"thread_id,omitempty"`  // V7: which parallel narrative thread this belongs to
}

// ConflictIntensity ranks a Conflict's severity for V6's compatibility table.
type ConflictIntensity string

const (
	ConflictLow    ConflictIntensity = "low"
	ConflictMedium ConflictIntensity = "medium"
	ConflictHigh   ConflictIntensity = "high"
)

// Conflict is a declared dramatic conflict with its resolution, consumed
// by V6.
type Conflict struct {
	SegmentIndex     int               `json:"segment_index"`
	Type             string            `json:"type"` // e.g. "interpersonal", "internal", "societal"
	Intensity        ConflictIntensity `json:"intensity"`
	ResolutionMethod string            `json:"resolution_method"` // e.g. "mediation", "confrontation", "compromise", "avoidance"
	MediatorSkillTag string            `json:"mediator_skill_tag,omitempty"`
}

// EmotionTag is a per-character, per-scene emotion declaration consumed
// by V1, V4 and V5 continuity checks.
type EmotionTag struct {
	SegmentIndex int    `json:"segment_index"`
	Character    string `json:"character"`
	Category     string `json:"category"` // positive|negative|intense|conflict|resolution
}

// Thread is one parallel narrative thread spanning a subset of scenes,
// consumed by V7.
type Thread struct {
	ID             string `json:"id"`
	SegmentIndexes []int  `json:"segment_indexes"`
	Concluded      bool   `json:"concluded"`
	Convergent     bool   `json:"convergent"` // merges into another thread rather than concluding independently
}
