package models

// GenerationRequest describes one "create/update N pages" request. Fields are
// validated synchronously before a Job is ever created; a malformed request
// never leaves a job record behind.
type GenerationRequest struct {
	Action     ActionKind `json:"action" validate:"required,oneof=ALL_STATES ALL_CITIES STATE_CITIES TOP_CITIES MAJOR_METROS CATEGORY_MATRIX CSV_IMPORT"`
	Name       string     `json:"name,omitempty"`
	CategoryID string     `json:"category_id,omitempty"`
	StateID    string     `json:"state_id,omitempty"`

	// Headers preserves source column order; mapping inference scans headers
	// left-to-right, so order matters for determinism.
	Headers []string `json:"headers,omitempty"`
	Rows    []Row    `json:"rows,omitempty"`

	// Limit bounds TOP_CITIES (default 500)
	Limit int `json:"limit,omitempty" validate:"gte=0"`

	Options GenerationOptions `json:"options"`
}

// GenerationOptions carries the policy flags. Pointers distinguish "not set"
// from an explicit false so per-action defaults can apply.
type GenerationOptions struct {
	PublishOnCreate *bool `json:"publish_on_create,omitempty"`
	UpdateExisting  *bool `json:"update_existing,omitempty"`
	SkipExisting    *bool `json:"skip_existing,omitempty"`
}

// PublishOnCreateOrDefault resolves the publish flag (default true, matching
// preset behavior).
func (o GenerationOptions) PublishOnCreateOrDefault() bool {
	if o.PublishOnCreate == nil {
		return true
	}
	return *o.PublishOnCreate
}

// UpdateExistingOrDefault resolves the update flag (default false)
func (o GenerationOptions) UpdateExistingOrDefault() bool {
	if o.UpdateExisting == nil {
		return false
	}
	return *o.UpdateExisting
}

// SkipExistingOrDefault resolves the skip flag (default true; never silently
// overwrite).
func (o GenerationOptions) SkipExistingOrDefault() bool {
	if o.SkipExisting == nil {
		return true
	}
	return *o.SkipExisting
}
