package domain

import (
	"sort"
	"strings"
)

// FilterAll disables a status or type filter
const FilterAll = "all"

// Filter narrows the admin enquiry list. All criteria are AND-combined.
type Filter struct {
	// Search is matched case-insensitively against contact name, email and agency name.
	Search string
	// Status is an exact status, or "all"/empty.
	Status string
	// Type matches either the funnel label or the package type, or "all"/empty.
	Type string
}

// Match reports whether e passes every criterion of f
func (f Filter) Match(e *Enquiry) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(e.ContactName), term) &&
			!strings.Contains(strings.ToLower(e.Email), term) &&
			!strings.Contains(strings.ToLower(e.AgencyName), term) {
			return false
		}
	}
	if f.Status != "" && f.Status != FilterAll && string(e.Status) != f.Status {
		return false
	}
	if f.Type != "" && f.Type != FilterAll && e.Type != f.Type && string(e.PackageType) != f.Type {
		return false
	}
	return true
}

// Apply returns the enquiries in list that match f, preserving order
func (f Filter) Apply(list []*Enquiry) []*Enquiry {
	out := make([]*Enquiry, 0, len(list))
	for _, e := range list {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// SortNewestFirst orders enquiries by CreatedAt descending. Ties keep their
// storage order.
func SortNewestFirst(list []*Enquiry) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// Paginate slices list by skip and limit; limit <= 0 means no limit
func Paginate(list []*Enquiry, skip, limit int) []*Enquiry {
	if skip >= len(list) {
		return []*Enquiry{}
	}
	if skip > 0 {
		list = list[skip:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// Stats summarises the dashboard counters
type Stats struct {
	Total    int `json:"total"`
	New      int `json:"new"`
	InReview int `json:"inReview"`
	Won      int `json:"won"`
}

// Summarize counts enquiries per dashboard bucket
func Summarize(list []*Enquiry) Stats {
	stats := Stats{Total: len(list)}
	for _, e := range list {
		switch e.Status {
		case StatusNew:
			stats.New++
		case StatusInReview:
			stats.InReview++
		case StatusWon:
			stats.Won++
		}
	}
	return stats
}
