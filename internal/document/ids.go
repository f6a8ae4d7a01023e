package document

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// SlugLength is the length of a public page slug.
const SlugLength = 10

var slugEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns an opaque identifier for sections and nested list items.
func NewID() string {
	return uuid.NewString()
}

// NewSlug returns a random, URL safe, lowercase slug unrelated to the title.
func NewSlug() string {
	u := uuid.New()
	return strings.ToLower(slugEncoding.EncodeToString(u[:]))[:SlugLength]
}
