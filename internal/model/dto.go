package model

import "time"

// ProspectFilter narrows listing and export. Empty fields are not applied.
type ProspectFilter struct {
	Search  string `json:"search,omitempty"`
	Geo     string `json:"geo,omitempty"`
	Month   string `json:"month,omitempty"`
	Quarter string `json:"quarter,omitempty"`
	RAG     string `json:"rag,omitempty"`
}

type ListQuery struct {
	Page   int
	Limit  int
	Filter ProspectFilter
}

// Skip is the number of records before the requested page.
func (q ListQuery) Skip() int64 {
	if q.Page < 1 {
		return 0
	}
	return int64(q.Page-1) * int64(q.Limit)
}

type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type ListResult struct {
	Data []Prospect `json:"data"`
	Meta PageMeta   `json:"meta"`
}

// LabelCount is one axis bucket of a pivot group.
type LabelCount struct {
	Label string `bson:"label"`
	Count int    `bson:"count"`
}

// PivotGroup holds the axis counts for one series value.
type PivotGroup struct {
	Series string       `bson:"series"`
	Counts []LabelCount `bson:"counts"`
}

// ChartResponse is the axis/series/matrix shape consumed by charting UIs.
type ChartResponse struct {
	XAxis        []string         `json:"xAxis"`
	SeriesLabels []string         `json:"seriesLabels"`
	Data         map[string][]int `json:"data"`
	FilterNames  []string         `json:"filterNames,omitempty"`
}

// OrphanJob records an object-store file whose delete failed.
type OrphanJob struct {
	StorageID  string    `json:"storage_id"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recorded_at"`
}
