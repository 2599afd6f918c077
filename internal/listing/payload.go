package listing

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// envelopePaths are tried in order when the payload is not a bare array.
// The properties API returns {"success":true,"data":{"data":[...]}}; the
// deeper data.data.data nesting is tolerated as a fallback.
var envelopePaths = []string{"data.data", "data.data.data", "data", "properties"}

// DecodePayload extracts listings from a loosely-shaped API response. It never
// fails: invalid JSON or a missing list yields an empty slice, and entries
// that are not objects are skipped. Every decoded listing is normalized.
func DecodePayload(body []byte) []Listing {
	if !gjson.ValidBytes(body) {
		return []Listing{}
	}
	items := locateArray(gjson.ParseBytes(body))
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		out = append(out, Normalize(decodeItem(item)))
	}
	return out
}

func locateArray(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, path := range envelopePaths {
		if r := root.Get(path); r.IsArray() {
			return r.Array()
		}
	}
	return nil
}

func decodeItem(item gjson.Result) Listing {
	return Listing{
		ID:           scalarString(item, "_id", "id"),
		Title:        scalarString(item, "title", "name"),
		City:         scalarString(item, "city"),
		Region:       scalarString(item, "region", "area"),
		Category:     scalarString(item, "propertyType", "type", "category"),
		Price:        number(item, "rentAmount", "price", "rent"),
		Currency:     scalarString(item, "currency"),
		Verified:     flag(item, "isVerified", "verified"),
		Availability: Availability(scalarString(item, "availabilityStatus", "availability", "status")),
		Images:       stringList(item.Get("images")),
		Amenities:    stringList(item.Get("amenities")),
	}
}

// scalarString returns the first key holding a string or number.
func scalarString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		r := item.Get(key)
		switch r.Type {
		case gjson.String:
			return r.Str
		case gjson.Number:
			return r.Raw
		}
	}
	return ""
}

// number reads the first key holding a number or a numeric string.
func number(item gjson.Result, keys ...string) float64 {
	for _, key := range keys {
		r := item.Get(key)
		switch r.Type {
		case gjson.Number:
			return r.Num
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func flag(item gjson.Result, keys ...string) bool {
	for _, key := range keys {
		r := item.Get(key)
		switch r.Type {
		case gjson.True:
			return true
		case gjson.False:
			return false
		case gjson.Number:
			return r.Num != 0
		case gjson.String:
			if b, err := strconv.ParseBool(strings.TrimSpace(r.Str)); err == nil {
				return b
			}
		}
	}
	return false
}

// stringList keeps string elements and the "url" of object elements. Anything
// that is not an array becomes an empty list.
func stringList(r gjson.Result) []string {
	if !r.IsArray() {
		return []string{}
	}
	elems := r.Array()
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		switch {
		case e.Type == gjson.String:
			out = append(out, e.Str)
		case e.IsObject():
			if u := e.Get("url"); u.Type == gjson.String {
				out = append(out, u.Str)
			}
		}
	}
	return out
}
