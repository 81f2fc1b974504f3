// Package classify maps file names onto category labels by extension.
package classify

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jvs-project/tidy/pkg/pathutil"
)

// Category is a label files are sorted into. It doubles as the name of the
// category directory.
type Category string

const (
	Audio      Category = "Audio"
	Video      Category = "Video"
	Documents  Category = "Documents"
	Images     Category = "Images"
	Archives   Category = "Archives"
	Installers Category = "Installers"
	Others     Category = "Others"
)

// DefaultCategories lists the categories in the order their directories are
// created and their files are moved. Others is always last and catches every
// unmatched extension.
var DefaultCategories = []Category{Audio, Video, Documents, Images, Archives, Installers, Others}

var defaultExtensions = map[Category][]string{
	Audio:      {".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4a"},
	Video:      {".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".mpeg"},
	Documents:  {".pdf", ".docx", ".txt", ".xlsx", ".pptx", ".odt", ".rtf"},
	Images:     {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".svg"},
	Archives:   {".zip", ".rar", ".tar", ".gz", ".7z"},
	Installers: {".exe", ".msi", ".dmg", ".pkg"},
}

// Classifier assigns every non-hidden file name to exactly one category.
type Classifier struct {
	categories []Category
	byExt      map[string]Category
}

// New returns a classifier with the built-in extension table.
func New() *Classifier {
	c, _ := NewWithExtensions(nil)
	return c
}

// NewWithExtensions returns a classifier whose table is the built-in one
// extended by extra. Keys of extra are category labels; an unknown label adds
// a new category placed before Others. Extensions are matched
// case-insensitively and may be given with or without the leading dot. A later
// mapping for the same extension wins.
func NewWithExtensions(extra map[string][]string) (*Classifier, error) {
	c := &Classifier{
		categories: append([]Category(nil), DefaultCategories[:len(DefaultCategories)-1]...),
		byExt:      make(map[string]Category),
	}
	for _, cat := range c.categories {
		for _, ext := range defaultExtensions[cat] {
			c.byExt[ext] = cat
		}
	}

	for _, label := range slices.Sorted(maps.Keys(extra)) {
		if err := pathutil.ValidateCategoryName(label); err != nil {
			return nil, err
		}
		cat := Category(pathutil.NormalizeName(label))
		if cat == Others {
			return nil, fmt.Errorf("category %q is the default and cannot take extensions", label)
		}
		if !slices.Contains(c.categories, cat) {
			c.categories = append(c.categories, cat)
		}
		for _, ext := range extra[label] {
			norm := normalizeExt(ext)
			if norm == "" {
				return nil, fmt.Errorf("category %q: empty extension", label)
			}
			c.byExt[norm] = cat
		}
	}

	c.categories = append(c.categories, Others)
	return c, nil
}

// Categories returns the category labels in processing order.
func (c *Classifier) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Classify returns the category for name. Hidden names (leading dot) are not
// classified and report false.
func (c *Classifier) Classify(name string) (Category, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	_, ext := pathutil.SplitExt(name)
	if cat, ok := c.byExt[strings.ToLower(ext)]; ok {
		return cat, true
	}
	return Others, true
}

// Group is the set of files routed to one category.
type Group struct {
	Category Category
	Files    []string
}

// Group classifies names and returns one entry per category that received
// files, in category order. File order within a group follows the input.
func (c *Classifier) Group(names []string) []Group {
	buckets := make(map[Category][]string)
	for _, name := range names {
		cat, ok := c.Classify(name)
		if !ok {
			continue
		}
		buckets[cat] = append(buckets[cat], name)
	}

	var groups []Group
	for _, cat := range c.categories {
		if files := buckets[cat]; len(files) > 0 {
			groups = append(groups, Group{Category: cat, Files: files})
		}
	}
	return groups
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
