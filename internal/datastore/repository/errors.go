// Package repository implements persistence for alarm templates, alarm
// events, node identity and metric samples on top of GORM.
package repository

import "errors"

// Sentinel errors returned by repository lookups.
var (
	ErrTemplateNotFound = errors.New("alarm template not found")
	ErrNodeNotFound     = errors.New("node not found")
)
