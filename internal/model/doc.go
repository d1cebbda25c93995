// Package model defines the types shared by every nysig package.
//
// This package contains type definitions, their JSON codecs and content
// hashes. All other internal packages import model; model imports nothing
// internal.
//
// Key design constraints:
//   - Rule conditions are a closed set of variants, never a free-form map
//   - Signals are a sum type: a common core plus exactly one payload
//   - All JSON tags use snake_case and match the persisted file formats
package model
