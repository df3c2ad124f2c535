package model

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// FeedItem is one disclosure as published by the upstream feed.
type FeedItem struct {
	ID          string    `json:"id"`
	CompanyCode string    `json:"company_code"`
	CompanyName string    `json:"company_name"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	DisclosedAt time.Time `json:"disclosed_at"`
	DocumentURL string    `json:"document_url"`
}

// Disclosure is the persisted metadata record for one collected document.
type Disclosure struct {
	RecordID    string    `json:"record_id"              db:"record_id"`
	CompanyCode string    `json:"company_code"           db:"company_code"`
	CompanyName string    `json:"company_name"           db:"company_name"`
	Title       string    `json:"title"                  db:"title"`
	Category    string    `json:"category,omitempty"     db:"category"`
	DisclosedAt time.Time `json:"disclosed_at"           db:"disclosed_at"`
	DateKey     string    `json:"date_key"               db:"date_key"`
	SourceURL   string    `json:"source_url"             db:"source_url"`
	StorageKey  *string   `json:"storage_key,omitempty"  db:"storage_key"`
	JobID       string    `json:"job_id"                 db:"job_id"`
	CreatedAt   time.Time `json:"created_at"             db:"created_at"`
}

// NewDisclosure builds a fully-derived record from a feed item.
// DateKey is fixed here so that any retried write carries identical fields.
func NewDisclosure(item FeedItem, jobID string, now time.Time) (*Disclosure, error) {
	d := &Disclosure{
		RecordID:    strings.TrimSpace(item.ID),
		CompanyCode: strings.TrimSpace(item.CompanyCode),
		CompanyName: strings.TrimSpace(item.CompanyName),
		Title:       strings.TrimSpace(item.Title),
		Category:    strings.TrimSpace(item.Category),
		DisclosedAt: item.DisclosedAt.UTC(),
		SourceURL:   strings.TrimSpace(item.DocumentURL),
		JobID:       jobID,
		CreatedAt:   now.UTC(),
	}
	d.DateKey = DateKeyFor(d.DisclosedAt)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// DateKeyFor returns the UTC partition key for t.
func DateKeyFor(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Validate checks the record's required fields and derived key.
func (d *Disclosure) Validate() error {
	var errs []error
	if d.RecordID == "" {
		errs = append(errs, errors.New("record_id is required"))
	} else if !validRecordID(d.RecordID) {
		errs = append(errs, fmt.Errorf("record_id %q is not a valid object key segment", d.RecordID))
	}
	if d.CompanyCode == "" {
		errs = append(errs, errors.New("company_code is required"))
	}
	if d.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if d.DisclosedAt.IsZero() {
		errs = append(errs, errors.New("disclosed_at is required"))
	} else if d.DateKey != DateKeyFor(d.DisclosedAt) {
		errs = append(errs, fmt.Errorf("date_key %q does not match disclosed_at", d.DateKey))
	}
	if d.StorageKey != nil && strings.TrimSpace(*d.StorageKey) == "" {
		errs = append(errs, errors.New("storage_key cannot be blank"))
	}
	return errors.Join(errs...)
}

const maxRecordIDLength = 128

// validRecordID reports whether id can be used verbatim as one segment of an object key.
func validRecordID(id string) bool {
	if len(id) > maxRecordIDLength || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// HasArtifact reports whether the record points to a stored document.
func (d *Disclosure) HasArtifact() bool {
	return d.StorageKey != nil && *d.StorageKey != ""
}

// DocumentKey is the object key the record's document is stored under.
func (d *Disclosure) DocumentKey() string {
	ext := strings.ToLower(path.Ext(strings.SplitN(d.SourceURL, "?", 2)[0]))
	if ext == "" || len(ext) > 5 {
		ext = ".pdf"
	}
	return "disclosures/" + d.DateKey + "/" + d.RecordID + ext
}

// PutResult tags the outcome of a conditional create.
type PutResult int

const (
	// PutCreated means this call created the record.
	PutCreated PutResult = iota + 1
	// PutAlreadyExists means the record was created earlier; nothing was written.
	PutAlreadyExists
)

func (r PutResult) String() string {
	switch r {
	case PutCreated:
		return "created"
	case PutAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// DisclosureQuery selects records by the date partition and, optionally, company.
type DisclosureQuery struct {
	Range       DateRange
	CompanyCode string
	Limit       int
}
