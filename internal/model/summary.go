package model

import (
	"math"
	"sort"
)

// AuditSummary condenses an audit into counts and duplicate clusters.
type AuditSummary struct {
	// PagesTotal is the number of page results.
	PagesTotal int `json:"pages_total"`

	// PagesAnalyzed counts pages that were fingerprinted and scored.
	PagesAnalyzed int `json:"pages_analyzed"`

	// PagesSkipped counts pages with insufficient content or a timeout.
	PagesSkipped int `json:"pages_skipped"`

	// PagesFailed counts pages whose analysis raised a computation error.
	PagesFailed int `json:"pages_failed"`

	// ExactDuplicatePages counts pages with at least one exact duplicate.
	ExactDuplicatePages int `json:"exact_duplicate_pages"`

	// NearDuplicatePages counts pages with near duplicates but no exact one.
	NearDuplicatePages int `json:"near_duplicate_pages"`

	// MeanOriginality is the mean score over analyzed pages.
	MeanOriginality float64 `json:"mean_originality"`

	// MinOriginality is the lowest score over analyzed pages.
	MinOriginality int `json:"min_originality"`

	// HighCount, MediumCount, LowCount and InfoCount count indicators by severity.
	HighCount   int `json:"high_count"`
	MediumCount int `json:"medium_count"`
	LowCount    int `json:"low_count"`
	InfoCount   int `json:"info_count"`

	// Clusters groups pages linked by exact or near duplicate relations.
	// Each cluster has at least two URLs, sorted; clusters are sorted by
	// size descending, then by first URL.
	Clusters [][]string `json:"clusters,omitempty"`
}

// NewAuditSummary computes a summary from page results.
func NewAuditSummary(results []PageResult) *AuditSummary {
	s := &AuditSummary{PagesTotal: len(results)}

	var total float64
	s.MinOriginality = 100
	for _, res := range results {
		rep := res.Report
		switch {
		case rep.HasError():
			s.PagesFailed++
			continue
		case rep.AnalysisSkipped:
			s.PagesSkipped++
			continue
		}

		s.PagesAnalyzed++
		total += float64(rep.OriginalityScore)
		if rep.OriginalityScore < s.MinOriginality {
			s.MinOriginality = rep.OriginalityScore
		}

		if len(rep.ExactDuplicates) > 0 {
			s.ExactDuplicatePages++
		} else if len(rep.NearDuplicates) > 0 {
			s.NearDuplicatePages++
		}

		for _, ind := range rep.Indicators {
			switch ind.Severity {
			case SeverityHigh:
				s.HighCount++
			case SeverityMedium:
				s.MediumCount++
			case SeverityLow:
				s.LowCount++
			default:
				s.InfoCount++
			}
		}
	}

	if s.PagesAnalyzed > 0 {
		s.MeanOriginality = math.Round(total/float64(s.PagesAnalyzed)*10) / 10
	} else {
		s.MinOriginality = 0
	}

	s.Clusters = duplicateClusters(results)
	return s
}

// TotalIndicators returns the number of indicators across all pages.
func (s *AuditSummary) TotalIndicators() int {
	return s.HighCount + s.MediumCount + s.LowCount + s.InfoCount
}

// HasDuplicates reports whether any duplicate cluster was found.
func (s *AuditSummary) HasDuplicates() bool {
	return len(s.Clusters) > 0
}

// duplicateClusters joins pages connected by exact or near links.
func duplicateClusters(results []PageResult) [][]string {
	parent := make(map[string]string)

	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for _, res := range results {
		for _, d := range res.Report.ExactDuplicates {
			union(res.URL, d.OtherURL)
		}
		for _, d := range res.Report.NearDuplicates {
			union(res.URL, d.OtherURL)
		}
	}

	groups := make(map[string][]string)
	for url := range parent {
		root := find(url)
		groups[root] = append(groups[root], url)
	}

	clusters := make([][]string, 0, len(groups))
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		clusters = append(clusters, members)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})
	return clusters
}
