package models

// State is one top-level geography entity
type State struct {
	ID       string `json:"id" yaml:"id" badgerhold:"key"`
	Name     string `json:"name" yaml:"name"`
	Code     string `json:"code" yaml:"code"`
	Slug     string `json:"slug" yaml:"slug"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

// City is one child geography entity belonging to a state
type City struct {
	ID          string `json:"id" yaml:"id" badgerhold:"key"`
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	StateID     string `json:"state_id" yaml:"state_id"`
	Population  int    `json:"population" yaml:"population"`
	IsMajorCity bool   `json:"is_major_city" yaml:"is_major_city"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`
}

// InsuranceType is one content category pages are generated for
type InsuranceType struct {
	ID       string `json:"id" yaml:"id" badgerhold:"key"`
	Name     string `json:"name" yaml:"name"`
	Slug     string `json:"slug" yaml:"slug"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}
