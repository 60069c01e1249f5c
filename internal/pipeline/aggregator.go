package pipeline

import "optimizer.app/relay/internal/model"

type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// DisplayNamer resolves a backend id to its label. Unknown ids resolve to themselves.
type DisplayNamer interface {
	DisplayName(id string) string
}

type Column struct {
	BackendID   string                 `json:"backend_id"`
	DisplayName string                 `json:"display_name"`
	Status      Status                 `json:"status"`
	Result      model.GenerationResult `json:"result"`
}

// ChartPoint is one bar pair of the complexity comparison.
type ChartPoint struct {
	BackendID   string     `json:"backend_id"`
	DisplayName string     `json:"display_name"`
	TimeRank    model.Rank `json:"time_rank"`
	TimeLabel   string     `json:"time_label"`
	SpaceRank   model.Rank `json:"space_rank"`
	SpaceLabel  string     `json:"space_label"`
}

type Presentation struct {
	Columns []Column     `json:"columns"`
	Chart   []ChartPoint `json:"chart"`
}

// Aggregate labels results for display, keeping request order.
func Aggregate(names DisplayNamer, results []model.GenerationResult) Presentation {
	p := Presentation{
		Columns: make([]Column, 0, len(results)),
		Chart:   []ChartPoint{},
	}

	for _, r := range results {
		name := names.DisplayName(r.BackendID)
		p.Columns = append(p.Columns, Column{
			BackendID:   r.BackendID,
			DisplayName: name,
			Status:      statusOf(r),
			Result:      r,
		})

		if r.Error != nil || r.ComplexityError != nil || r.TimeComplexity == nil || r.SpaceComplexity == nil {
			continue
		}
		if !r.TimeComplexity.Rank.Known() || !r.SpaceComplexity.Rank.Known() {
			continue
		}
		p.Chart = append(p.Chart, ChartPoint{
			BackendID:   r.BackendID,
			DisplayName: name,
			TimeRank:    r.TimeComplexity.Rank,
			TimeLabel:   r.TimeComplexity.Label,
			SpaceRank:   r.SpaceComplexity.Rank,
			SpaceLabel:  r.SpaceComplexity.Label,
		})
	}

	return p
}

func statusOf(r model.GenerationResult) Status {
	switch {
	case r.Succeeded():
		return StatusOK
	case r.HasCode():
		return StatusPartial
	default:
		return StatusFailed
	}
}
