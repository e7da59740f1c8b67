package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var idRegex = regexp.MustCompile(`^[\p{L}\p{N}_.:-]+$`)

// MaxContentSize is the maximum passage size in bytes.
const MaxContentSize = 163840 // 160KB

// Partition keys understood by Document.Partition.
const (
	PartitionArea     = "area"
	PartitionLocation = "location"
	PartitionCategory = "category"
)

// Metadata describes where a passage comes from and how it is categorized.
type Metadata struct {
	Source   string
	Location string
	Category string
	Area     string
	Tags     []string
}

// Document is an immutable corpus passage.
type Document struct {
	id       string
	content  string
	section  string
	source   string
	location string
	category string
	area     string
	tags     map[string]struct{}
	tagList  []string
}

// New validates and creates a Document.
// ID: letters, digits, _ . : -, 1-256 chars. Content: non-empty, max 160KB.
func New(id, section, content string, meta Metadata) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID %q contains unsupported characters", id)
	}
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	d := Document{
		id:       id,
		content:  content,
		section:  section,
		source:   meta.Source,
		location: normalizeValue(meta.Location),
		category: normalizeValue(meta.Category),
		area:     normalizeValue(meta.Area),
	}
	d.tags, d.tagList = tagSet(meta.Tags)
	return d, nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the passage text.
func (d *Document) Content() string { return d.content }

// Section returns the heading the passage was chunked under.
func (d *Document) Section() string { return d.section }

// Source returns the originating guide or file.
func (d *Document) Source() string { return d.source }

// Location returns the location metadata.
func (d *Document) Location() string { return d.location }

// Category returns the category metadata.
func (d *Document) Category() string { return d.category }

// Area returns the area metadata.
func (d *Document) Area() string { return d.area }

// Tags returns the tags in sorted order.
func (d *Document) Tags() []string { return d.tagList }

// HasTag reports whether the passage carries the tag.
func (d *Document) HasTag(tag string) bool {
	_, ok := d.tags[tag]
	return ok
}

// Partition returns the metadata value used to scope searches.
func (d *Document) Partition(key string) string {
	switch key {
	case PartitionArea:
		return d.area
	case PartitionLocation:
		return d.location
	case PartitionCategory:
		return d.category
	default:
		return ""
	}
}

// Prefix returns the first n runes of the content, used as a near-duplicate key.
func (d *Document) Prefix(n int) string {
	if n <= 0 {
		return d.content
	}
	i := 0
	for pos := range d.content {
		if i == n {
			return d.content[:pos]
		}
		i++
	}
	return d.content
}

func normalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func tagSet(tags []string) (map[string]struct{}, []string) {
	if len(tags) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	list := make([]string, 0, len(set))
	for t := range set {
		list = append(list, t)
	}
	sort.Strings(list)
	return set, list
}
