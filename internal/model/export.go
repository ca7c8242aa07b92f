package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownFormat marks a format string outside the closed set.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is the closed set of export targets. Keeping it a tagged constant
// set (rather than an open interface) lets the encoder switch exhaustively.
type Format string

// Supported export formats.
const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
)

// ParseFormat normalizes and validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// NamingContext holds the read-only inputs to naming template rendering.
type NamingContext struct {
	Timestamp time.Time
	Profile   string
	Format    Format
	Counter   int
	PageCount int
	DPI       int
}

// ExportJob is an immutable export request. Pages is a snapshot taken at
// submission time and never aliases the live session.
type ExportJob struct {
	SubmittedAt time.Time
	JobID       string
	SessionID   string
	Destination string
	Template    string
	Profile     string
	Pages       []Page
	Format      Format
	DPI         int
	Quality     int
	CounterBase int
}

// ExportedFile describes one file successfully written by an export.
type ExportedFile struct {
	Path   string
	Bytes  int64
	PageID int64
}

// PageFailure describes one page that could not be exported, with enough
// detail for a caller-driven retry of just that page.
type PageFailure struct {
	Err    error
	Name   string
	PageID int64
}

// ExportResult reports what an export job wrote and what it could not.
type ExportResult struct {
	Files    []ExportedFile
	Failed   []PageFailure
	Duration time.Duration
}

// TotalBytes sums the sizes of all written files.
func (r ExportResult) TotalBytes() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Bytes
	}
	return n
}
