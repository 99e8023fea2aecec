package logging

const (
	// FieldComponent names the subsystem that emitted a record.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable tag for a record.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldFile is the arriving file's base name.
	FieldFile = "file"
	// FieldSourceTag is the watched directory tag (1 primary, 2 secondary).
	FieldSourceTag = "source_tag"
	// FieldClassification is GOOD, BAD or INVALID.
	FieldClassification = "classification"
	// FieldRunID identifies a single watcher run.
	FieldRunID = "run_id"
	// FieldAlert flags anomalies that should stand out.
	FieldAlert = "alert"
)
