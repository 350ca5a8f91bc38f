package bed12

import (
	"strings"

	"github.com/grailbio/umicount/interval"
)

const (
	// BarcodeTag is the name-column key of the UMI barcode.
	BarcodeTag = "BC"
	// FingerprintTag is the name-column key of the molecule fingerprint.
	FingerprintTag = "FP"
)

// Tag is one KEY:value element of a record name.
type Tag struct {
	Key, Value string
}

// Tags is the parsed name column, in the order the tags appear.
type Tags []Tag

// ParseTags splits a name of the form "K1:v1;K2:v2;..." into tags.  Empty
// elements (e.g. after a trailing ';') are ignored.  Every other element must
// contain a ':' preceded by a non-empty key.
func ParseTags(name string) (Tags, error) {
	var tags Tags
	for _, elem := range strings.Split(name, ";") {
		if elem == "" {
			continue
		}
		colon := strings.IndexByte(elem, ':')
		if colon <= 0 {
			return nil, formatErrorf("malformed tag %q in name %q", elem, name)
		}
		tags = append(tags, Tag{Key: elem[:colon], Value: elem[colon+1:]})
	}
	return tags, nil
}

// Get returns the value of the first tag with the given key.
func (t Tags) Get(key string) (string, bool) {
	for _, tag := range t {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Set replaces the value of the first tag with the given key, or appends a
// new tag.
func (t Tags) Set(key, value string) Tags {
	for i := range t {
		if t[i].Key == key {
			t[i].Value = value
			return t
		}
	}
	return append(t, Tag{Key: key, Value: value})
}

func (t Tags) String() string {
	var b strings.Builder
	for i, tag := range t {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(tag.Key)
		b.WriteByte(':')
		b.WriteString(tag.Value)
	}
	return b.String()
}

// IdentityName returns the name column of a consolidated record,
// "BC:<barcode>;FP:<fingerprint>".
func IdentityName(barcode, fingerprint string) string {
	return Tags{{BarcodeTag, barcode}, {FingerprintTag, fingerprint}}.String()
}

// Identity extracts both the barcode and the fingerprint of r.
func Identity(r *Record) (barcode, fingerprint string, err error) {
	tags, err := ParseTags(r.Name)
	if err != nil {
		return "", "", err
	}
	var ok bool
	if barcode, ok = tags.Get(BarcodeTag); !ok {
		return "", "", formatErrorf("name %q has no %s tag", r.Name, BarcodeTag)
	}
	if fingerprint, ok = tags.Get(FingerprintTag); !ok {
		return "", "", formatErrorf("name %q has no %s tag", r.Name, FingerprintTag)
	}
	return barcode, fingerprint, nil
}

func tag(r *Record, key string) (string, error) {
	tags, err := ParseTags(r.Name)
	if err != nil {
		return "", err
	}
	v, ok := tags.Get(key)
	if !ok {
		return "", formatErrorf("name %q has no %s tag", r.Name, key)
	}
	return v, nil
}

// Barcode returns the BC tag of r's name.
func Barcode(r *Record) (string, error) {
	return tag(r, BarcodeTag)
}

// Fingerprint returns the FP tag of r's name.
func Fingerprint(r *Record) (string, error) {
	return tag(r, FingerprintTag)
}

// AbsoluteBlocks returns the blocks of r as absolute [start, end) intervals,
// in block order.
func AbsoluteBlocks(r *Record) ([]interval.Interval, error) {
	return AppendAbsoluteBlocks(nil, r)
}

// AppendAbsoluteBlocks appends the absolute blocks of r to dst.
func AppendAbsoluteBlocks(dst []interval.Interval, r *Record) ([]interval.Interval, error) {
	if len(r.BlockSizes) != len(r.BlockStarts) {
		return dst, formatErrorf("%s:%d-%d: %d block sizes but %d block starts",
			r.Chrom, r.Start, r.End, len(r.BlockSizes), len(r.BlockStarts))
	}
	if len(r.BlockSizes) == 0 {
		return dst, formatErrorf("%s:%d-%d: record has no blocks", r.Chrom, r.Start, r.End)
	}
	for i, size := range r.BlockSizes {
		start := r.Start + r.BlockStarts[i]
		dst = append(dst, interval.Interval{Start: start, End: start + size})
	}
	return dst, nil
}
