package domain

import (
	"regexp"

	"github.com/felixgeelhaar/covergate/internal/wildcard"
)

// ClassFilters holds class-name and annotation templates as written by users.
type ClassFilters struct {
	Includes           []string `json:"includes,omitempty"`
	Excludes           []string `json:"excludes,omitempty"`
	ExcludeAnnotations []string `json:"excludeAnnotations,omitempty"`
}

// IsEmpty returns true when no filter is configured.
func (f ClassFilters) IsEmpty() bool {
	return len(f.Includes) == 0 && len(f.Excludes) == 0 && len(f.ExcludeAnnotations) == 0
}

// ClassScope is the compiled form of ClassFilters. It decides which classes
// contribute to aggregation and verification.
type ClassScope struct {
	filters            ClassFilters
	includes           []*regexp.Regexp
	excludes           []*regexp.Regexp
	excludeAnnotations []*regexp.Regexp
}

// NewClassScope compiles every template of filters.
func NewClassScope(filters ClassFilters) (ClassScope, error) {
	includes, err := compileTemplates(filters.Includes)
	if err != nil {
		return ClassScope{}, err
	}
	excludes, err := compileTemplates(filters.Excludes)
	if err != nil {
		return ClassScope{}, err
	}
	annotations, err := compileTemplates(filters.ExcludeAnnotations)
	if err != nil {
		return ClassScope{}, err
	}
	return ClassScope{
		filters:            filters,
		includes:           includes,
		excludes:           excludes,
		excludeAnnotations: annotations,
	}, nil
}

func compileTemplates(templates []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(templates))
	for _, template := range templates {
		re, err := wildcard.Compile(template)
		if err != nil {
			return nil, &PatternError{Template: template, Err: err}
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// Filters returns the templates the scope was built from.
func (s ClassScope) Filters() ClassFilters {
	return s.filters
}

// Includes reports whether the fully qualified className is in scope.
// An empty include list admits every class that is not excluded.
func (s ClassScope) Includes(className string) bool {
	if matchesAny(s.excludes, className) {
		return false
	}
	return len(s.includes) == 0 || matchesAny(s.includes, className)
}

// ExcludedByAnnotation reports whether any of the annotations marks a class as excluded.
func (s ClassScope) ExcludedByAnnotation(annotations []string) bool {
	for _, annotation := range annotations {
		if matchesAny(s.excludeAnnotations, annotation) {
			return true
		}
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
